package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"cadenza/internal/catalog"
	"cadenza/internal/database"
	"cadenza/pkg/models"
)

// memoryMedia keeps uploads in memory and maps every URL to a fake path.
type memoryMedia struct {
	mu    sync.Mutex
	files map[string][]byte
	limit int64
}

func (m *memoryMedia) Save(kind catalog.MediaKind, upload *catalog.Upload) (string, error) {
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return "", err
	}
	if m.limit > 0 && int64(len(data)) > m.limit {
		return "", fmt.Errorf("%w: %s", catalog.ErrFileTooLarge, upload.Filename)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	url := fmt.Sprintf("/uploads/%s/%d-%s", kind, len(m.files), upload.Filename)
	m.files[url] = data
	return url, nil
}

func (m *memoryMedia) LocalPath(url string) (string, bool) {
	if !strings.HasPrefix(url, "/uploads/") {
		return "", false
	}
	return filepath.Join("/fake", url), true
}

type fixedProber struct {
	seconds int
	calls   int
}

func (p *fixedProber) ProbeFile(path string) (int, error) {
	p.calls++
	return p.seconds, nil
}

func (p *fixedProber) ProbeURL(ctx context.Context, url string) (int, error) {
	p.calls++
	return p.seconds, nil
}

func newTestService(t *testing.T, prober catalog.DurationProber) (*catalog.Service, *database.Database, *memoryMedia) {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "catalog.db"), nil)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	media := &memoryMedia{files: make(map[string][]byte)}
	service := catalog.NewService(db, media, prober, nil)
	t.Cleanup(service.Close)
	return service, db, media
}

func upload(name, content string) *catalog.Upload {
	return &catalog.Upload{Filename: name, Size: int64(len(content)), Body: strings.NewReader(content)}
}

func songInput(name, albumID, duration string) catalog.SongInput {
	return catalog.SongInput{
		Name:     name,
		Artist:   "Artist",
		AlbumID:  albumID,
		Duration: duration,
		Audio:    upload("track.mp3", "audio"),
		Image:    upload("cover.jpg", "image"),
	}
}

func ptr[T any](v T) *T {
	return &v
}

func TestCreateAlbumResolvesCategory(t *testing.T) {
	service, _, _ := newTestService(t, nil)
	ctx := context.Background()

	first, err := service.CreateAlbum(ctx, catalog.AlbumInput{Name: "A", CategoryName: "Jazz"})
	if err != nil {
		t.Fatalf("Failed to create album: %v", err)
	}
	second, err := service.CreateAlbum(ctx, catalog.AlbumInput{Name: "B", CategoryName: "Jazz", BackgroundColor: "#1db954"})
	if err != nil {
		t.Fatalf("Failed to create album: %v", err)
	}

	if first.Category == nil || second.Category == nil || first.Category.ID != second.Category.ID {
		t.Fatal("Expected both albums to share one category")
	}
	if first.Visual.Kind != models.VisualColor || first.Visual.Value != models.DefaultAlbumColor {
		t.Errorf("Expected default colour visual, got %+v", first.Visual)
	}

	categories, err := service.ListCategories(ctx)
	if err != nil || len(categories) != 1 {
		t.Fatalf("Expected one category, got %d (%v)", len(categories), err)
	}

	detail, err := service.GetCategory(ctx, first.Category.ID)
	if err != nil {
		t.Fatalf("Failed to get category: %v", err)
	}
	if len(detail.Albums) != 2 {
		t.Errorf("Expected two albums in category, got %d", len(detail.Albums))
	}

	withImage, err := service.CreateAlbum(ctx, catalog.AlbumInput{Name: "C", CategoryName: "Jazz", Image: upload("c.png", "png")})
	if err != nil {
		t.Fatalf("Failed to create album: %v", err)
	}
	if withImage.Visual.Kind != models.VisualImage {
		t.Errorf("Expected image visual, got %+v", withImage.Visual)
	}
}

func TestCreateAlbumValidation(t *testing.T) {
	service, _, _ := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input catalog.AlbumInput
		field string
	}{
		{"missing name", catalog.AlbumInput{CategoryName: "Jazz"}, "name"},
		{"missing category", catalog.AlbumInput{Name: "A"}, "categoryName"},
		{"bad colour", catalog.AlbumInput{Name: "A", CategoryName: "Jazz", BackgroundColor: "green"}, "backgroundColor"},
		{"long description", catalog.AlbumInput{Name: "A", CategoryName: "Jazz", Description: strings.Repeat("x", catalog.MaxAlbumDescription+1)}, "description"},
		{"bad image type", catalog.AlbumInput{Name: "A", CategoryName: "Jazz", Image: upload("c.bmp", "x")}, "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateAlbum(ctx, tt.input)
			var verr *catalog.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("Expected validation error on %s, got %v", tt.field, err)
			}
		})
	}
}

func TestSongLifecycleKeepsAggregates(t *testing.T) {
	service, _, _ := newTestService(t, nil)
	ctx := context.Background()

	albumA, _ := service.CreateAlbum(ctx, catalog.AlbumInput{Name: "A", CategoryName: "Rock"})
	albumB, _ := service.CreateAlbum(ctx, catalog.AlbumInput{Name: "B", CategoryName: "Rock"})

	one, err := service.CreateSong(ctx, songInput("One", albumA.ID, "185"))
	if err != nil {
		t.Fatalf("Failed to create song: %v", err)
	}
	two, err := service.CreateSong(ctx, songInput("Two", albumA.ID, "1:35"))
	if err != nil {
		t.Fatalf("Failed to create song: %v", err)
	}
	if one.Album == nil || one.Album.ID != albumA.ID {
		t.Error("Expected created song to be populated with its album")
	}

	got, _ := service.GetAlbum(ctx, albumA.ID)
	if got.TotalDuration != 280 || len(got.SongIDs) != 2 || len(got.Songs) != 2 {
		t.Fatalf("Expected 280s over two songs, got %d over %d", got.TotalDuration, len(got.SongIDs))
	}

	// Moving a song recomputes both albums.
	if _, err := service.UpdateSong(ctx, two.ID, catalog.SongUpdate{AlbumID: ptr(albumB.ID)}); err != nil {
		t.Fatalf("Failed to move song: %v", err)
	}
	got, _ = service.GetAlbum(ctx, albumA.ID)
	if got.TotalDuration != 185 || len(got.SongIDs) != 1 {
		t.Errorf("Expected old album to drop the song, got %d", got.TotalDuration)
	}
	got, _ = service.GetAlbum(ctx, albumB.ID)
	if got.TotalDuration != 95 {
		t.Errorf("Expected new album to gain the song, got %d", got.TotalDuration)
	}

	if err := service.DeleteSong(ctx, one.ID); err != nil {
		t.Fatalf("Failed to delete song: %v", err)
	}
	got, _ = service.GetAlbum(ctx, albumA.ID)
	if got.TotalDuration != 0 || len(got.SongIDs) != 0 || got.AverageRating != 0 {
		t.Errorf("Expected empty aggregates, got %+v", got)
	}

	if _, err := service.GetSong(ctx, one.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Expected deleted song to be gone, got %v", err)
	}
}

func TestCreateSongValidation(t *testing.T) {
	service, _, media := newTestService(t, nil)
	ctx := context.Background()

	missingFiles := songInput("x", "", "10")
	missingFiles.Image = nil

	badRating := songInput("x", "", "10")
	badRating.Rating = ptr(6.0)

	badAudio := songInput("x", "", "10")
	badAudio.Audio = upload("track.ogg", "audio")

	tests := []struct {
		name    string
		input   catalog.SongInput
		message string
	}{
		{"missing files", missingFiles, "Both audio and image files are required"},
		{"bad rating", badRating, "Rating must be between 0 and 5"},
		{"bad duration", songInput("x", "", "1:75"), "Duration must be seconds or m:ss"},
		{"overflowing duration", songInput("x", "", "153722867280912931:00"), "Duration must be seconds or m:ss"},
		{"bad album id", songInput("x", "nope", "10"), "Invalid album ID format"},
		{"bad audio type", badAudio, "Only audio files (mp3, wav, flac, m4a) are allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateSong(ctx, tt.input)
			var verr *catalog.ValidationError
			if !errors.As(err, &verr) || verr.Message != tt.message {
				t.Errorf("Expected %q, got %v", tt.message, err)
			}
		})
	}

	badImage := songInput("x", "", "10")
	badImage.Image = upload("cover.txt", "image")
	if _, err := service.CreateSong(ctx, badImage); err == nil {
		t.Error("Expected an error for a text image")
	}
	if len(media.files) != 0 {
		t.Errorf("Expected nothing stored after rejected uploads, got %d files", len(media.files))
	}

	media.limit = 3
	_, err := service.CreateSong(ctx, songInput("x", "", "10"))
	if !errors.Is(err, catalog.ErrFileTooLarge) {
		t.Errorf("Expected file too large, got %v", err)
	}
}

func TestCreateSongDerivesDuration(t *testing.T) {
	prober := &fixedProber{seconds: 212}
	service, _, _ := newTestService(t, prober)
	ctx := context.Background()

	song, err := service.CreateSong(ctx, songInput("Probe", "", ""))
	if err != nil {
		t.Fatalf("Failed to create song: %v", err)
	}
	if song.Duration != 212 || prober.calls != 1 {
		t.Errorf("Expected probed duration 212, got %d after %d calls", song.Duration, prober.calls)
	}

	song, err = service.CreateSong(ctx, songInput("Given", "", "30"))
	if err != nil {
		t.Fatalf("Failed to create song: %v", err)
	}
	if song.Duration != 30 || prober.calls != 1 {
		t.Errorf("Expected client duration to skip probing, got %d", song.Duration)
	}
}

func TestPlaylistOwnership(t *testing.T) {
	service, db, _ := newTestService(t, nil)
	ctx := context.Background()

	owner := &models.User{Email: "o@example.com", Username: "owner", PasswordHash: "x"}
	other := &models.User{Email: "x@example.com", Username: "other", PasswordHash: "x"}
	for _, u := range []*models.User{owner, other} {
		if err := db.CreateUser(ctx, u); err != nil {
			t.Fatalf("Failed to create user: %v", err)
		}
	}

	song, _ := service.CreateSong(ctx, songInput("One", "", "60"))

	playlist, err := service.CreatePlaylist(ctx, owner.ID, catalog.PlaylistInput{Name: "Mix"})
	if err != nil {
		t.Fatalf("Failed to create playlist: %v", err)
	}
	if playlist.Owner == nil || playlist.Owner.Username != "owner" {
		t.Errorf("Expected owner summary, got %+v", playlist.Owner)
	}

	if _, err := service.CreatePlaylist(ctx, owner.ID, catalog.PlaylistInput{Name: strings.Repeat("n", catalog.MaxPlaylistName+1)}); err == nil {
		t.Error("Expected overly long name to be rejected")
	}

	if _, err := service.AddSong(ctx, owner.ID, playlist.ID, song.ID); err != nil {
		t.Fatalf("Failed to add song: %v", err)
	}
	if _, err := service.AddSong(ctx, owner.ID, playlist.ID, song.ID); !errors.Is(err, catalog.ErrAlreadyInPlaylist) {
		t.Errorf("Expected duplicate add to fail, got %v", err)
	}
	if _, err := service.AddSong(ctx, other.ID, playlist.ID, song.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Expected non-owner add to be not found, got %v", err)
	}

	if err := service.DeletePlaylist(ctx, other.ID, playlist.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Expected non-owner delete to be not found, got %v", err)
	}

	// Deleting the song drops it from the playlist.
	if err := service.DeleteSong(ctx, song.ID); err != nil {
		t.Fatalf("Failed to delete song: %v", err)
	}
	got, err := service.GetPlaylist(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("Failed to get playlist: %v", err)
	}
	if len(got.SongIDs) != 0 || len(got.Songs) != 0 {
		t.Errorf("Expected deleted song to leave the playlist, got %v", got.SongIDs)
	}

	if err := service.DeletePlaylist(ctx, owner.ID, playlist.ID); err != nil {
		t.Fatalf("Failed to delete playlist: %v", err)
	}
	playlists, err := service.UserPlaylists(ctx, owner.ID)
	if err != nil || len(playlists) != 0 {
		t.Errorf("Expected no playlists left, got %d (%v)", len(playlists), err)
	}
}
