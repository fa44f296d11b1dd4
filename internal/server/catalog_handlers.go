package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"cadenza/internal/catalog"
)

func (cs *CatalogServer) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("API Running"))
}

// handleCreateAlbum accepts name, description, backgroundColor, categoryName and
// an image file.
func (cs *CatalogServer) handleCreateAlbum(w http.ResponseWriter, r *http.Request) {
	form, ok := cs.parseMultipart(w, r)
	if !ok {
		return
	}
	defer form.Close()

	image, err := form.file("image")
	if err != nil {
		cs.respondWithError(w, r, http.StatusBadRequest, "Failed to read image", err)
		return
	}

	album, err := cs.catalog.CreateAlbum(r.Context(), catalog.AlbumInput{
		Name:            form.value("name"),
		Description:     form.value("description"),
		BackgroundColor: form.value("backgroundColor"),
		CategoryName:    form.value("categoryName"),
		Image:           image,
	})
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}

	cs.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Album created successfully!",
		"album":   album,
	})
}

func (cs *CatalogServer) handleGetAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := cs.catalog.ListAlbums(r.Context())
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusOK, albums)
}

func (cs *CatalogServer) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	album, err := cs.catalog.GetAlbum(r.Context(), r.PathValue("id"))
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusOK, album)
}

func (cs *CatalogServer) handleRecomputeAlbum(w http.ResponseWriter, r *http.Request) {
	album, err := cs.catalog.RecomputeAlbum(r.Context(), r.PathValue("id"))
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"album":   album,
	})
}

// handleCreateSong accepts name, artist, albumId, rating, duration,
// releaseDate and the audioFile and image files.
func (cs *CatalogServer) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	form, ok := cs.parseMultipart(w, r)
	if !ok {
		return
	}
	defer form.Close()

	rating, err := form.float("rating")
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}

	var releaseDate time.Time
	if raw := form.value("releaseDate"); raw != "" {
		releaseDate, err = parseReleaseDate(raw)
		if err != nil {
			cs.respondWithFieldError(w, r, http.StatusBadRequest, "releaseDate", "Release date must be YYYY-MM-DD or RFC 3339", err)
			return
		}
	}

	audio, err := form.file("audioFile")
	if err != nil {
		cs.respondWithError(w, r, http.StatusBadRequest, "Failed to read audio file", err)
		return
	}
	image, err := form.file("image")
	if err != nil {
		cs.respondWithError(w, r, http.StatusBadRequest, "Failed to read image", err)
		return
	}

	song, err := cs.catalog.CreateSong(r.Context(), catalog.SongInput{
		Name:        form.value("name"),
		Artist:      form.value("artist"),
		AlbumID:     form.value("albumId"),
		Rating:      rating,
		Duration:    form.value("duration"),
		ReleaseDate: releaseDate,
		Audio:       audio,
		Image:       image,
	})
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}

	cs.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Song created successfully",
		"song":    song,
	})
}

func parseReleaseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func (cs *CatalogServer) handleGetSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := cs.catalog.ListSongs(r.Context())
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"songs":   songs,
	})
}

func (cs *CatalogServer) handleGetSong(w http.ResponseWriter, r *http.Request) {
	song, err := cs.catalog.GetSong(r.Context(), r.PathValue("id"))
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"song":    song,
	})
}

// songUpdateRequest is the JSON body of a song update. Absent fields are
// left unchanged; "albumId": "" detaches the song.
type songUpdateRequest struct {
	Name     *string        `json:"name"`
	Artist   *string        `json:"artist"`
	Rating   *float64       `json:"rating"`
	Duration *durationValue `json:"duration"`
	AlbumID  *string        `json:"albumId"`
}

// durationValue accepts a duration sent as a JSON number or string
type durationValue string

func (d *durationValue) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = durationValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*d = durationValue(n.String())
	return nil
}

func (cs *CatalogServer) handleUpdateSong(w http.ResponseWriter, r *http.Request) {
	var req songUpdateRequest
	if !cs.decodeJSON(w, r, &req) {
		return
	}

	update := catalog.SongUpdate{
		Name:    req.Name,
		Artist:  req.Artist,
		Rating:  req.Rating,
		AlbumID: req.AlbumID,
	}
	if req.Duration != nil {
		duration := string(*req.Duration)
		update.Duration = &duration
	}

	song, err := cs.catalog.UpdateSong(r.Context(), r.PathValue("id"), update)
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Song updated successfully",
		"song":    song,
	})
}

func (cs *CatalogServer) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	if err := cs.catalog.DeleteSong(r.Context(), r.PathValue("id")); err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Song deleted successfully",
	})
}

func (cs *CatalogServer) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := cs.catalog.ListCategories(r.Context())
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusOK, categories)
}

func (cs *CatalogServer) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := cs.catalog.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusOK, category)
}
