package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
)

const (
	MaxPlaylistName        = 255
	MaxPlaylistDescription = 1000
)

const playlistNotOwned = "Playlist not found or unauthorized"

// PlaylistInput is the data accepted when creating a playlist.
type PlaylistInput struct {
	Name        string
	Description string
	Image       *Upload
}

// PlaylistUpdate carries the fields of a partial playlist update. An empty
// Name is ignored; a non-nil Image replaces the stored reference.
type PlaylistUpdate struct {
	Name        *string
	Description *string
	Image       *Upload
}

func validatePlaylistName(name string) error {
	if name == "" {
		return invalid("name", "Playlist name is required")
	}
	if utf8.RuneCountInString(name) > MaxPlaylistName {
		return invalid("name", fmt.Sprintf("Playlist name cannot exceed %d characters", MaxPlaylistName))
	}
	return nil
}

func validatePlaylistDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxPlaylistDescription {
		return invalid("description", fmt.Sprintf("Description cannot exceed %d characters", MaxPlaylistDescription))
	}
	return nil
}

// CreatePlaylist creates an empty playlist owned by ownerID.
func (s *Service) CreatePlaylist(ctx context.Context, ownerID string, in PlaylistInput) (*models.Playlist, error) {
	name := strings.TrimSpace(in.Name)
	if err := validatePlaylistName(name); err != nil {
		return nil, err
	}
	if err := validatePlaylistDescription(in.Description); err != nil {
		return nil, err
	}

	playlist := &models.Playlist{
		Name:        name,
		Description: in.Description,
		OwnerID:     ownerID,
	}

	if in.Image != nil {
		var err error
		playlist.Image, err = s.saveUpload(MediaImage, "image", in.Image)
		if err != nil {
			return nil, err
		}
	}

	if err := s.store.CreatePlaylist(ctx, playlist); err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"playlist_id": playlist.ID,
		"user_id":     ownerID,
	}).Info("Playlist created")

	return s.GetPlaylist(ctx, playlist.ID)
}

// UserPlaylists returns the playlists owned by ownerID, newest first.
func (s *Service) UserPlaylists(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	playlists, err := s.store.ListPlaylistsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	for i := range playlists {
		if err := s.populatePlaylistSongs(ctx, &playlists[i]); err != nil {
			return nil, err
		}
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	return playlists, nil
}

// GetPlaylist returns a playlist populated with its songs and owner.
func (s *Service) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	if !s.store.ValidID(id) {
		return nil, invalidID("id", "Invalid playlist ID format")
	}

	playlist, err := s.store.GetPlaylist(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "Playlist not found")
	}

	if err := s.populatePlaylistSongs(ctx, playlist); err != nil {
		return nil, err
	}

	owner, err := s.store.GetUserByID(ctx, playlist.OwnerID)
	switch {
	case err == nil:
		summary := owner.Summary()
		playlist.Owner = &summary
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("failed to load playlist owner: %w", err)
	}
	return playlist, nil
}

// AddSong appends a song to a playlist owned by ownerID. Adding a song that
// is already present returns ErrAlreadyInPlaylist and changes nothing.
func (s *Service) AddSong(ctx context.Context, ownerID, playlistID, songID string) (*models.Playlist, error) {
	playlist, err := s.ownedPlaylist(ctx, ownerID, playlistID)
	if err != nil {
		return nil, err
	}

	if !s.store.ValidID(songID) {
		return nil, invalidID("songId", "Invalid song ID format")
	}
	if _, err := s.store.GetSong(ctx, songID); err != nil {
		return nil, asNotFound(err, "Song not found")
	}

	if playlist.HasSong(songID) {
		return nil, ErrAlreadyInPlaylist
	}
	if err := s.store.AddSongToPlaylist(ctx, playlistID, ownerID, songID); err != nil {
		if errors.Is(err, ErrAlreadyInPlaylist) {
			return nil, err
		}
		return nil, asNotFound(err, playlistNotOwned)
	}

	s.logger.WithFields(logrus.Fields{
		"playlist_id": playlistID,
		"song_id":     songID,
	}).Debug("Song added to playlist")

	return s.GetPlaylist(ctx, playlistID)
}

// RemoveSong drops a song from a playlist owned by ownerID. Removing a song
// that is not in the playlist succeeds.
func (s *Service) RemoveSong(ctx context.Context, ownerID, playlistID, songID string) (*models.Playlist, error) {
	if _, err := s.ownedPlaylist(ctx, ownerID, playlistID); err != nil {
		return nil, err
	}

	if err := s.store.RemoveSongFromPlaylist(ctx, playlistID, ownerID, songID); err != nil {
		return nil, asNotFound(err, playlistNotOwned)
	}

	return s.GetPlaylist(ctx, playlistID)
}

// UpdatePlaylist applies a partial update to a playlist owned by ownerID.
// A replaced image file is not removed from storage.
func (s *Service) UpdatePlaylist(ctx context.Context, ownerID, playlistID string, in PlaylistUpdate) (*models.Playlist, error) {
	playlist, err := s.ownedPlaylist(ctx, ownerID, playlistID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if name := strings.TrimSpace(*in.Name); name != "" {
			if err := validatePlaylistName(name); err != nil {
				return nil, err
			}
			playlist.Name = name
		}
	}
	if in.Description != nil {
		if err := validatePlaylistDescription(*in.Description); err != nil {
			return nil, err
		}
		playlist.Description = *in.Description
	}
	if in.Image != nil {
		playlist.Image, err = s.saveUpload(MediaImage, "image", in.Image)
		if err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdatePlaylist(ctx, playlist); err != nil {
		return nil, asNotFound(err, playlistNotOwned)
	}

	s.logger.WithField("playlist_id", playlistID).Info("Playlist updated")

	return s.GetPlaylist(ctx, playlistID)
}

// DeletePlaylist removes a playlist owned by ownerID. Playlists of other
// users are reported as not found and left untouched.
func (s *Service) DeletePlaylist(ctx context.Context, ownerID, playlistID string) error {
	if !s.store.ValidID(playlistID) {
		return invalidID("id", "Invalid playlist ID format")
	}

	if err := s.store.DeletePlaylist(ctx, playlistID, ownerID); err != nil {
		return asNotFound(err, playlistNotOwned)
	}

	s.logger.WithFields(logrus.Fields{
		"playlist_id": playlistID,
		"user_id":     ownerID,
	}).Info("Playlist deleted")
	return nil
}

func (s *Service) ownedPlaylist(ctx context.Context, ownerID, playlistID string) (*models.Playlist, error) {
	if !s.store.ValidID(playlistID) {
		return nil, invalidID("playlistId", "Invalid playlist ID format")
	}

	playlist, err := s.store.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, asNotFound(err, playlistNotOwned)
	}
	if playlist.OwnerID != ownerID {
		return nil, notFound(playlistNotOwned)
	}
	return playlist, nil
}

func (s *Service) populatePlaylistSongs(ctx context.Context, playlist *models.Playlist) error {
	if playlist.SongIDs == nil {
		playlist.SongIDs = []string{}
	}
	songs, err := s.store.ListSongsByIDs(ctx, playlist.SongIDs)
	if err != nil {
		return fmt.Errorf("failed to load playlist songs: %w", err)
	}
	playlist.Songs = nonNilSongs(songs)
	return nil
}
