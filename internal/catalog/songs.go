package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cadenza/pkg/models"

	"github.com/sirupsen/logrus"
)

// SongInput is the data accepted when creating a song. Duration is optional
// and may be given as seconds ("185") or as "m:ss"; when empty it is derived
// from the stored audio.
type SongInput struct {
	Name        string
	Artist      string
	AlbumID     string
	Rating      *float64
	Duration    string
	ReleaseDate time.Time
	Audio       *Upload
	Image       *Upload
}

// SongUpdate carries the fields of a partial song update. A nil field is left
// unchanged; an empty AlbumID detaches the song from its album.
type SongUpdate struct {
	Name     *string
	Artist   *string
	Rating   *float64
	Duration *string
	AlbumID  *string
}

func validateRating(rating float64) error {
	if rating < models.MinRating || rating > models.MaxRating {
		return invalid("rating", fmt.Sprintf("Rating must be between %g and %g", models.MinRating, models.MaxRating))
	}
	return nil
}

func parseDurationField(raw string) (int, error) {
	seconds, err := models.ParseDuration(raw)
	if err != nil {
		return 0, &ValidationError{Field: "duration", Message: "Duration must be seconds or m:ss", Err: err}
	}
	return seconds, nil
}

// CreateSong stores the uploaded audio and image, saves the song and
// refreshes the aggregates of its album.
func (s *Service) CreateSong(ctx context.Context, in SongInput) (*models.Song, error) {
	if in.Audio == nil || in.Image == nil {
		return nil, invalid("", "Both audio and image files are required")
	}

	name := strings.TrimSpace(in.Name)
	artist := strings.TrimSpace(in.Artist)
	albumID := strings.TrimSpace(in.AlbumID)

	if name == "" {
		return nil, invalid("name", "Song name is required")
	}
	if artist == "" {
		return nil, invalid("artist", "Artist is required")
	}

	song := &models.Song{
		Name:        name,
		Artist:      artist,
		ReleaseDate: in.ReleaseDate,
	}
	if song.ReleaseDate.IsZero() {
		song.ReleaseDate = time.Now().UTC()
	}

	if in.Rating != nil {
		if err := validateRating(*in.Rating); err != nil {
			return nil, err
		}
		song.Rating = *in.Rating
	}

	durationGiven := strings.TrimSpace(in.Duration) != ""
	if durationGiven {
		seconds, err := parseDurationField(in.Duration)
		if err != nil {
			return nil, err
		}
		song.Duration = seconds
	}

	if albumID != "" {
		if !s.store.ValidID(albumID) {
			return nil, invalidID("albumId", "Invalid album ID format")
		}
		if _, err := s.store.GetAlbum(ctx, albumID); err != nil {
			return nil, asNotFound(err, "Album not found")
		}
		song.AlbumID = albumID
	}

	// both files are checked before either is written
	if err := checkUpload(MediaAudio, "audioFile", in.Audio); err != nil {
		return nil, err
	}
	if err := checkUpload(MediaImage, "image", in.Image); err != nil {
		return nil, err
	}

	var err error
	song.AudioURL, err = s.saveUpload(MediaAudio, "audioFile", in.Audio)
	if err != nil {
		return nil, err
	}
	song.Image, err = s.saveUpload(MediaImage, "image", in.Image)
	if err != nil {
		return nil, err
	}

	if !durationGiven {
		song.Duration = s.deriveDuration(ctx, song.AudioURL)
	}

	if err := s.store.CreateSong(ctx, song); err != nil {
		return nil, fmt.Errorf("failed to create song: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"song_id":  song.ID,
		"name":     song.Name,
		"album_id": song.AlbumID,
		"duration": song.Duration,
	}).Info("Song created")

	s.recompute(ctx, song.AlbumID)

	return s.GetSong(ctx, song.ID)
}

// GetSong returns a song populated with its album.
func (s *Service) GetSong(ctx context.Context, id string) (*models.Song, error) {
	if !s.store.ValidID(id) {
		return nil, invalidID("id", "Invalid song ID format")
	}

	song, err := s.store.GetSong(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "Song not found")
	}

	if song.AlbumID != "" {
		album, err := s.store.GetAlbum(ctx, song.AlbumID)
		switch {
		case err == nil:
			album.Visual = models.ResolveAlbumVisual(album.Image, album.BackgroundColor)
			song.Album = album
		case !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("failed to load song album: %w", err)
		}
	}
	return song, nil
}

// ListSongs returns every song populated with its album.
func (s *Service) ListSongs(ctx context.Context) ([]models.Song, error) {
	songs, err := s.store.ListSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}
	if len(songs) == 0 {
		return []models.Song{}, nil
	}

	albums, err := s.store.ListAlbums(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}
	byID := make(map[string]*models.Album, len(albums))
	for i := range albums {
		albums[i].Visual = models.ResolveAlbumVisual(albums[i].Image, albums[i].BackgroundColor)
		byID[albums[i].ID] = &albums[i]
	}

	for i := range songs {
		songs[i].Album = byID[songs[i].AlbumID]
	}
	return songs, nil
}

// UpdateSong applies a partial update and refreshes the aggregates of the
// previous and the current album.
func (s *Service) UpdateSong(ctx context.Context, id string, in SongUpdate) (*models.Song, error) {
	if !s.store.ValidID(id) {
		return nil, invalidID("id", "Invalid song ID format")
	}

	song, err := s.store.GetSong(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "Song not found")
	}
	previousAlbum := song.AlbumID

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name", "Song name is required")
		}
		song.Name = name
	}
	if in.Artist != nil {
		artist := strings.TrimSpace(*in.Artist)
		if artist == "" {
			return nil, invalid("artist", "Artist is required")
		}
		song.Artist = artist
	}
	if in.Rating != nil {
		if err := validateRating(*in.Rating); err != nil {
			return nil, err
		}
		song.Rating = *in.Rating
	}
	if in.Duration != nil {
		seconds, err := parseDurationField(*in.Duration)
		if err != nil {
			return nil, err
		}
		song.Duration = seconds
	}
	if in.AlbumID != nil {
		albumID := strings.TrimSpace(*in.AlbumID)
		if albumID != "" {
			if !s.store.ValidID(albumID) {
				return nil, invalidID("albumId", "Invalid album ID format")
			}
			if _, err := s.store.GetAlbum(ctx, albumID); err != nil {
				return nil, asNotFound(err, "Album not found")
			}
		}
		song.AlbumID = albumID
	}

	if err := s.store.UpdateSong(ctx, song); err != nil {
		return nil, asNotFound(err, "Song not found")
	}

	s.logger.WithField("song_id", song.ID).Info("Song updated")

	s.recompute(ctx, song.AlbumID)
	if previousAlbum != song.AlbumID {
		s.recompute(ctx, previousAlbum)
	}

	return s.GetSong(ctx, song.ID)
}

// DeleteSong removes a song, drops it from every playlist and refreshes the
// aggregates of its album. Stored media files are left in place.
func (s *Service) DeleteSong(ctx context.Context, id string) error {
	if !s.store.ValidID(id) {
		return invalidID("id", "Invalid song ID format")
	}

	song, err := s.store.GetSong(ctx, id)
	if err != nil {
		return asNotFound(err, "Song not found")
	}

	if err := s.store.DeleteSong(ctx, id); err != nil {
		return asNotFound(err, "Song not found")
	}

	s.logger.WithField("song_id", id).Info("Song deleted")

	s.recompute(ctx, song.AlbumID)
	return nil
}
