package server

import (
	"fmt"
	"net/http"
	"os"

	"cadenza/internal/metadata"
)

// handleStreamSong serves a song's audio with range and cache support. Audio
// stored outside the upload directory is redirected to.
func (cs *CatalogServer) handleStreamSong(w http.ResponseWriter, r *http.Request) {
	song, err := cs.catalog.GetSong(r.Context(), r.PathValue("id"))
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}

	filePath, ok := cs.media.LocalPath(song.AudioURL)
	if !ok {
		http.Redirect(w, r, song.AudioURL, http.StatusFound)
		return
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			cs.respondWithError(w, r, http.StatusNotFound, "Audio file not found", err)
			return
		}
		cs.respondWithError(w, r, http.StatusInternalServerError, "Internal server error", err)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		cs.respondWithError(w, r, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("ETag", fmt.Sprintf(`"%d-%d"`, stat.ModTime().Unix(), stat.Size()))
	w.Header().Set("Content-Type", metadata.ContentType(filePath))

	// ServeContent answers Range and If-None-Match requests.
	http.ServeContent(w, r, stat.Name(), stat.ModTime(), file)
}
