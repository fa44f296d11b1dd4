package media

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cadenza/internal/catalog"
	"cadenza/internal/config"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LocalStorage keeps uploaded files on local disk and serves them under a
// URL prefix. Stored files are never overwritten or removed.
type LocalStorage struct {
	root   string
	prefix string
	limits map[catalog.MediaKind]int64
	logger *logrus.Logger
}

var _ catalog.MediaStore = (*LocalStorage)(nil)

// NewLocalStorage creates the upload directories and returns the storage
func NewLocalStorage(cfg *config.MediaConfig, logger *logrus.Logger) (*LocalStorage, error) {
	if logger == nil {
		logger = logrus.New()
	}

	root, err := filepath.Abs(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload dir: %w", err)
	}

	for _, kind := range []catalog.MediaKind{catalog.MediaAudio, catalog.MediaImage} {
		if err := os.MkdirAll(filepath.Join(root, string(kind)), 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s upload dir: %w", kind, err)
		}
	}

	return &LocalStorage{
		root:   root,
		prefix: "/" + strings.Trim(cfg.URLPrefix, "/"),
		limits: map[catalog.MediaKind]int64{
			catalog.MediaAudio: int64(cfg.MaxAudioSizeMB) * 1024 * 1024,
			catalog.MediaImage: int64(cfg.MaxImageSizeMB) * 1024 * 1024,
		},
		logger: logger,
	}, nil
}

// Save writes the upload under a fresh name and returns its public URL
func (ls *LocalStorage) Save(kind catalog.MediaKind, upload *catalog.Upload) (string, error) {
	limit, ok := ls.limits[kind]
	if !ok {
		return "", fmt.Errorf("unknown media kind %q", kind)
	}
	if upload.Size > limit {
		return "", fmt.Errorf("%w: %s is %d bytes, limit %d", catalog.ErrFileTooLarge, upload.Filename, upload.Size, limit)
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(upload.Filename))
	destPath := filepath.Join(ls.root, string(kind), name)

	destFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}

	// Read one byte past the limit so an undeclared size is still caught.
	written, err := io.Copy(destFile, io.LimitReader(upload.Body, limit+1))
	closeErr := destFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if written > limit {
		os.Remove(destPath)
		return "", fmt.Errorf("%w: %s exceeds %d bytes", catalog.ErrFileTooLarge, upload.Filename, limit)
	}

	url := path.Join(ls.prefix, string(kind), name)
	ls.logger.WithFields(logrus.Fields{
		"kind":     kind,
		"filename": upload.Filename,
		"bytes":    written,
		"url":      url,
	}).Debug("Stored upload")

	return url, nil
}

// LocalPath maps a URL produced by Save back to a file on disk. URLs outside
// the prefix or escaping the upload root are rejected.
func (ls *LocalStorage) LocalPath(url string) (string, bool) {
	rel, ok := strings.CutPrefix(url, ls.prefix+"/")
	if !ok || rel == "" {
		return "", false
	}

	cleaned := path.Clean("/" + rel)
	if cleaned == "/" {
		return "", false
	}

	full := filepath.Join(ls.root, filepath.FromSlash(cleaned))
	if !strings.HasPrefix(full, ls.root+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

// Prefix returns the URL prefix files are served under
func (ls *LocalStorage) Prefix() string {
	return ls.prefix
}

// Handler serves stored files without directory listings
func (ls *LocalStorage) Handler() http.Handler {
	files := http.FileServer(http.Dir(ls.root))
	return http.StripPrefix(ls.prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	}))
}
