package media

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cadenza/internal/catalog"
	"cadenza/internal/config"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	cfg := &config.MediaConfig{
		UploadDir:      t.TempDir(),
		URLPrefix:      "/uploads/",
		MaxAudioSizeMB: 1,
		MaxImageSizeMB: 1,
	}
	storage, err := NewLocalStorage(cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	return storage
}

func TestSaveAndResolve(t *testing.T) {
	storage := newTestStorage(t)

	url, err := storage.Save(catalog.MediaAudio, &catalog.Upload{
		Filename: "Song.MP3",
		Size:     5,
		Body:     strings.NewReader("hello"),
	})
	if err != nil {
		t.Fatalf("Failed to save upload: %v", err)
	}

	if !strings.HasPrefix(url, "/uploads/audio/") || !strings.HasSuffix(url, ".mp3") {
		t.Errorf("Unexpected URL %s", url)
	}

	local, ok := storage.LocalPath(url)
	if !ok {
		t.Fatalf("Expected %s to resolve", url)
	}
	data, err := os.ReadFile(local)
	if err != nil {
		t.Fatalf("Failed to read stored file: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Expected stored content hello, got %q", data)
	}

	// Saving the same name twice never overwrites.
	second, err := storage.Save(catalog.MediaAudio, &catalog.Upload{Filename: "Song.MP3", Body: strings.NewReader("again")})
	if err != nil {
		t.Fatalf("Failed to save second upload: %v", err)
	}
	if second == url {
		t.Error("Expected a distinct URL for the second upload")
	}
}

func TestSaveTooLarge(t *testing.T) {
	storage := newTestStorage(t)
	big := bytes.Repeat([]byte{0}, 1024*1024+1)

	t.Run("DeclaredSize", func(t *testing.T) {
		_, err := storage.Save(catalog.MediaImage, &catalog.Upload{
			Filename: "cover.png",
			Size:     int64(len(big)),
			Body:     bytes.NewReader(big),
		})
		if !errors.Is(err, catalog.ErrFileTooLarge) {
			t.Errorf("Expected ErrFileTooLarge, got %v", err)
		}
	})

	t.Run("UndeclaredSize", func(t *testing.T) {
		_, err := storage.Save(catalog.MediaImage, &catalog.Upload{
			Filename: "cover.png",
			Body:     bytes.NewReader(big),
		})
		if !errors.Is(err, catalog.ErrFileTooLarge) {
			t.Errorf("Expected ErrFileTooLarge, got %v", err)
		}

		entries, _ := os.ReadDir(filepath.Join(storage.root, string(catalog.MediaImage)))
		if len(entries) != 0 {
			t.Errorf("Expected oversized file to be removed, found %d files", len(entries))
		}
	})
}

func TestLocalPathRejects(t *testing.T) {
	storage := newTestStorage(t)

	for _, url := range []string{
		"",
		"/uploads",
		"/uploads/",
		"/other/audio/x.mp3",
		"https://cdn.example.com/audio/x.mp3",
	} {
		if _, ok := storage.LocalPath(url); ok {
			t.Errorf("Expected %q to be rejected", url)
		}
	}

	// Traversal is clamped to the upload root.
	local, ok := storage.LocalPath("/uploads/../../etc/passwd")
	if ok && !strings.HasPrefix(local, storage.root) {
		t.Errorf("Expected %s to stay under %s", local, storage.root)
	}
}

func TestHandler(t *testing.T) {
	storage := newTestStorage(t)
	url, err := storage.Save(catalog.MediaImage, &catalog.Upload{Filename: "a.png", Body: strings.NewReader("png")})
	if err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	handler := storage.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "png" {
		t.Errorf("Expected file content, got %q", body)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/images/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected directory listing to be hidden, got %d", rec.Code)
	}
}
