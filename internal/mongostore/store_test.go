package mongostore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"cadenza/internal/catalog"
	"cadenza/pkg/models"
)

// newTestStore connects to CADENZA_TEST_MONGO_URI and uses a throwaway
// database that is dropped when the test ends.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("CADENZA_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("CADENZA_TEST_MONGO_URI not set")
	}

	name := fmt.Sprintf("cadenza_test_%d", time.Now().UnixNano())
	s, err := New(context.Background(), uri, name, nil)
	if err != nil {
		t.Fatalf("Failed to connect to mongo: %v", err)
	}
	t.Cleanup(func() {
		s.Database().Drop(context.Background())
		s.Close()
	})
	return s
}

func TestValidID(t *testing.T) {
	s := &Store{}
	if !s.ValidID("64b7f0c2a1b2c3d4e5f60718") {
		t.Error("Expected hex ObjectID to be valid")
	}
	if s.ValidID("not-an-id") {
		t.Error("Expected garbage to be invalid")
	}
}

func TestStoreAggregates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	category := &models.Category{Name: "Pop"}
	if err := s.CreateCategory(ctx, category); err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}
	if err := s.CreateCategory(ctx, &models.Category{Name: "Pop"}); !errors.Is(err, catalog.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}

	album := &models.Album{Name: "Hits", CategoryID: category.ID}
	if err := s.CreateAlbum(ctx, album); err != nil {
		t.Fatalf("Failed to create album: %v", err)
	}

	agg, err := s.RecomputeAlbumAggregates(ctx, album.ID)
	if err != nil {
		t.Fatalf("Failed to recompute: %v", err)
	}
	if agg.AverageRating != 0 {
		t.Errorf("Expected average 0 for empty album, got %v", agg.AverageRating)
	}

	for _, d := range []struct {
		name     string
		duration int
		rating   float64
	}{{"Track A", 185, 4}, {"Track B", 95, 3}} {
		song := &models.Song{Name: d.name, Artist: "A", AlbumID: album.ID, Duration: d.duration, Rating: d.rating, ReleaseDate: time.Now()}
		if err := s.CreateSong(ctx, song); err != nil {
			t.Fatalf("Failed to create song: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		agg, err = s.RecomputeAlbumAggregates(ctx, album.ID)
		if err != nil {
			t.Fatalf("Failed to recompute: %v", err)
		}
	}
	if agg.TotalDuration != 280 || agg.AverageRating != 3.5 || agg.SongCount != 2 {
		t.Errorf("Unexpected aggregates %+v", agg)
	}

	got, err := s.GetAlbum(ctx, album.ID)
	if err != nil {
		t.Fatalf("Failed to get album: %v", err)
	}
	if got.TotalDuration != 280 || len(got.SongIDs) != 2 {
		t.Errorf("Expected stored total 280 with 2 songs, got %d with %d", got.TotalDuration, len(got.SongIDs))
	}
}

func TestStorePlaylists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := &models.User{Email: "o@example.com", Username: "owner", PasswordHash: "x"}
	stranger := &models.User{Email: "s@example.com", Username: "stranger", PasswordHash: "x"}
	for _, u := range []*models.User{owner, stranger} {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("Failed to create user: %v", err)
		}
	}

	song := &models.Song{Name: "Track", Artist: "A", ReleaseDate: time.Now()}
	if err := s.CreateSong(ctx, song); err != nil {
		t.Fatalf("Failed to create song: %v", err)
	}

	playlist := &models.Playlist{Name: "Mix", OwnerID: owner.ID}
	if err := s.CreatePlaylist(ctx, playlist); err != nil {
		t.Fatalf("Failed to create playlist: %v", err)
	}

	if err := s.AddSongToPlaylist(ctx, playlist.ID, owner.ID, song.ID); err != nil {
		t.Fatalf("Failed to add song: %v", err)
	}
	if err := s.AddSongToPlaylist(ctx, playlist.ID, owner.ID, song.ID); !errors.Is(err, catalog.ErrAlreadyInPlaylist) {
		t.Errorf("Expected ErrAlreadyInPlaylist, got %v", err)
	}
	if err := s.AddSongToPlaylist(ctx, playlist.ID, stranger.ID, song.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for stranger, got %v", err)
	}

	got, err := s.GetPlaylist(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("Failed to get playlist: %v", err)
	}
	if len(got.SongIDs) != 1 {
		t.Errorf("Expected 1 song, got %d", len(got.SongIDs))
	}

	if err := s.DeletePlaylist(ctx, playlist.ID, stranger.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for stranger delete, got %v", err)
	}

	if err := s.DeleteSong(ctx, song.ID); err != nil {
		t.Fatalf("Failed to delete song: %v", err)
	}
	got, _ = s.GetPlaylist(ctx, playlist.ID)
	if len(got.SongIDs) != 0 {
		t.Errorf("Expected deleted song to be pulled, got %v", got.SongIDs)
	}
}
