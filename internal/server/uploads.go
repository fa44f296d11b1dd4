package server

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"cadenza/internal/catalog"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temp files
const multipartMemory = 32 << 20

// multipartForm wraps a parsed upload form and the files opened from it
type multipartForm struct {
	request *http.Request
	opened  []multipart.File
}

// parseMultipart parses a multipart request bounded by the largest media limit
func (cs *CatalogServer) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipartForm, bool) {
	maxBytes := int64(cs.config.Media.MaxAudioSizeMB+2*cs.config.Media.MaxImageSizeMB)*1024*1024 + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			cs.respondWithError(w, r, http.StatusRequestEntityTooLarge, "Upload is too large", err)
			return nil, false
		}
		cs.respondWithError(w, r, http.StatusBadRequest, "Failed to parse upload form", err)
		return nil, false
	}
	return &multipartForm{request: r}, true
}

// value returns a trimmed form value
func (f *multipartForm) value(name string) string {
	return strings.TrimSpace(f.request.FormValue(name))
}

// optional returns a pointer to the value when the field was sent
func (f *multipartForm) optional(name string) *string {
	if f.request.MultipartForm == nil {
		return nil
	}
	values, ok := f.request.MultipartForm.Value[name]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

// float parses an optional numeric field
func (f *multipartForm) float(name string) (*float64, error) {
	raw := f.value(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &catalog.ValidationError{Field: name, Message: "Must be a number", Err: err}
	}
	return &v, nil
}

// file opens an uploaded file, or returns nil when none was sent
func (f *multipartForm) file(name string) (*catalog.Upload, error) {
	file, header, err := f.request.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.opened = append(f.opened, file)

	return &catalog.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
	}, nil
}

// Close releases opened files and temp files of the form
func (f *multipartForm) Close() {
	for _, file := range f.opened {
		file.Close()
	}
	if f.request.MultipartForm != nil {
		f.request.MultipartForm.RemoveAll()
	}
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
