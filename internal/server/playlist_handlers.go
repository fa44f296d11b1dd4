package server

import (
	"net/http"

	"cadenza/internal/catalog"
	"cadenza/pkg/models"
)

// playlistResponse is the body of every playlist mutation
type playlistResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message,omitempty"`
	Playlist *models.Playlist `json:"playlist,omitempty"`
}

// handleCreatePlaylist accepts name, description and an optional image
func (cs *CatalogServer) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	in := catalog.PlaylistInput{}

	if isMultipart(r) {
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
		in.Name = form.value("name")
		in.Description = form.value("description")
		in.Image = image
	} else {
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if !cs.decodeJSON(w, r, &req) {
			return
		}
		in.Name, in.Description = req.Name, req.Description
	}

	playlist, err := cs.catalog.CreatePlaylist(r.Context(), currentUser(r).ID, in)
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}

	cs.respondJSON(w, http.StatusCreated, playlistResponse{
		Success:  true,
		Message:  "Playlist created successfully",
		Playlist: playlist,
	})
}

// handleGetUserPlaylists lists the caller's playlists, newest first
func (cs *CatalogServer) handleGetUserPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := cs.catalog.UserPlaylists(r.Context(), currentUser(r).ID)
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}

	cs.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"playlists": playlists,
	})
}

// handleGetPlaylist returns any playlist to an authenticated caller
func (cs *CatalogServer) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := cs.catalog.GetPlaylist(r.Context(), r.PathValue("id"))
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}

	cs.respondJSON(w, http.StatusOK, playlistResponse{Success: true, Playlist: playlist})
}

func (cs *CatalogServer) handleAddSongToPlaylist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlaylistID string `json:"playlistId"`
		SongID     string `json:"songId"`
	}
	if !cs.decodeJSON(w, r, &req) {
		return
	}

	playlist, err := cs.catalog.AddSong(r.Context(), currentUser(r).ID, req.PlaylistID, req.SongID)
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}

	cs.respondJSON(w, http.StatusOK, playlistResponse{
		Success:  true,
		Message:  "Song added to playlist",
		Playlist: playlist,
	})
}

// handleRemoveSongFromPlaylist succeeds whether or not the song was present
func (cs *CatalogServer) handleRemoveSongFromPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := cs.catalog.RemoveSong(r.Context(), currentUser(r).ID, r.PathValue("playlistId"), r.PathValue("songId"))
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}

	cs.respondJSON(w, http.StatusOK, playlistResponse{
		Success:  true,
		Message:  "Song removed from playlist",
		Playlist: playlist,
	})
}

// handleUpdatePlaylist applies a partial update sent as multipart or JSON
func (cs *CatalogServer) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	var update catalog.PlaylistUpdate

	if isMultipart(r) {
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
		update.Name = form.optional("name")
		update.Description = form.optional("description")
		update.Image = image
	} else {
		var req struct {
			Name        *string `json:"name"`
			Description *string `json:"description"`
		}
		if !cs.decodeJSON(w, r, &req) {
			return
		}
		update.Name, update.Description = req.Name, req.Description
	}

	playlist, err := cs.catalog.UpdatePlaylist(r.Context(), currentUser(r).ID, r.PathValue("id"), update)
	if err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}

	cs.respondJSON(w, http.StatusOK, playlistResponse{
		Success:  true,
		Message:  "Playlist updated successfully",
		Playlist: playlist,
	})
}

func (cs *CatalogServer) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := cs.catalog.DeletePlaylist(r.Context(), currentUser(r).ID, r.PathValue("id")); err != nil {
		cs.respondWithServiceError(w, r, err)
		return
	}

	cs.respondJSON(w, http.StatusOK, playlistResponse{
		Success: true,
		Message: "Playlist deleted successfully",
	})
}
