package player

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cadenza/internal/catalog"
	"cadenza/pkg/models"
)

type fakeResolver struct {
	songs     map[string]*models.Song
	albums    map[string]*models.Album
	playlists map[string]*models.Playlist
}

func (f *fakeResolver) GetSong(ctx context.Context, id string) (*models.Song, error) {
	if song, ok := f.songs[id]; ok {
		return song, nil
	}
	return nil, &catalog.NotFoundError{Message: "Song not found"}
}

func (f *fakeResolver) GetAlbum(ctx context.Context, id string) (*models.Album, error) {
	if album, ok := f.albums[id]; ok {
		return album, nil
	}
	return nil, &catalog.NotFoundError{Message: "Album not found"}
}

func (f *fakeResolver) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	if playlist, ok := f.playlists[id]; ok {
		return playlist, nil
	}
	return nil, &catalog.NotFoundError{Message: "Playlist not found"}
}

func newTestManager() *StateManager {
	resolver := &fakeResolver{
		songs: map[string]*models.Song{
			"s1": {ID: "s1", Name: "One", Duration: 185},
			"s2": {ID: "s2", Name: "Two", Duration: 95},
			"s4": {ID: "s4", Name: "Four", Duration: 60},
		},
		albums: map[string]*models.Album{
			// s3 was deleted after the album was read.
			"a1": {ID: "a1", SongIDs: []string{"s1", "s2", "s3", "s4"}},
		},
		playlists: map[string]*models.Playlist{
			"p1": {ID: "p1", SongIDs: []string{"s4", "s1"}},
		},
	}
	return NewStateManager(resolver)
}

func apply(t *testing.T, sm *StateManager, userID string, action Action) *State {
	t.Helper()
	state, err := sm.Apply(context.Background(), userID, action)
	if err != nil {
		t.Fatalf("Action %s failed: %v", action.Type, err)
	}
	return state
}

func TestInitialState(t *testing.T) {
	sm := newTestManager()
	state := sm.GetState("u1")
	if state.Song != nil || state.IsPlaying || state.Volume != 1.0 || len(state.Queue) != 0 {
		t.Errorf("Unexpected initial state %+v", state)
	}
}

func TestPlayAlbumQueue(t *testing.T) {
	sm := newTestManager()

	state := apply(t, sm, "u1", Action{Type: ActionPlay, SongID: "s2", Source: &QueueSource{Kind: SourceAlbum, ID: "a1"}})
	if state.Song.ID != "s2" || state.QueueIndex != 1 || !state.IsPlaying {
		t.Fatalf("Unexpected state after play %+v", state)
	}

	// s3 no longer exists and is skipped.
	state = apply(t, sm, "u1", Action{Type: ActionNext})
	if state.Song.ID != "s4" || state.QueueIndex != 3 {
		t.Errorf("Expected s4 at index 3, got %s at %d", state.Song.ID, state.QueueIndex)
	}

	// Running off the end stops on the last song.
	state = apply(t, sm, "u1", Action{Type: ActionNext})
	if state.Song.ID != "s4" || state.IsPlaying {
		t.Errorf("Expected playback to stop at the end, got %+v", state)
	}

	state = apply(t, sm, "u1", Action{Type: ActionPrevious})
	if state.Song.ID != "s2" || !state.IsPlaying {
		t.Errorf("Expected previous to return to s2, got %s", state.Song.ID)
	}
}

func TestPreviousRestartsSong(t *testing.T) {
	sm := newTestManager()
	apply(t, sm, "u1", Action{Type: ActionPlay, SongID: "s1", Source: &QueueSource{Kind: SourcePlaylist, ID: "p1"}})
	apply(t, sm, "u1", Action{Type: ActionSeek, Position: 30})

	state := apply(t, sm, "u1", Action{Type: ActionPrevious})
	if state.Song.ID != "s1" || state.Position != 0 {
		t.Errorf("Expected s1 restarted, got %s at %d", state.Song.ID, state.Position)
	}

	state = apply(t, sm, "u1", Action{Type: ActionPrevious})
	if state.Song.ID != "s4" || state.QueueIndex != 0 {
		t.Errorf("Expected s4 at index 0, got %s at %d", state.Song.ID, state.QueueIndex)
	}
}

func TestPauseResumeSeekVolume(t *testing.T) {
	sm := newTestManager()
	apply(t, sm, "u1", Action{Type: ActionPlay, SongID: "s2"})

	if state := apply(t, sm, "u1", Action{Type: ActionPause}); state.IsPlaying {
		t.Error("Expected paused")
	}
	if state := apply(t, sm, "u1", Action{Type: ActionToggle}); !state.IsPlaying {
		t.Error("Expected toggle to resume")
	}
	if state := apply(t, sm, "u1", Action{Type: ActionSeek, Position: 500}); state.Position != 95 {
		t.Errorf("Expected seek clamped to 95, got %d", state.Position)
	}

	volume := 0.25
	muted := true
	state := apply(t, sm, "u1", Action{Type: ActionVolume, Volume: &volume, Muted: &muted})
	if state.Volume != 0.25 || !state.IsMuted {
		t.Errorf("Unexpected volume state %+v", state)
	}

	state = apply(t, sm, "u1", Action{Type: ActionClear})
	if state.Song != nil || state.IsPlaying || state.Volume != 0.25 || !state.IsMuted {
		t.Errorf("Expected clear to keep volume only, got %+v", state)
	}
}

func TestRejectedActionsLeaveState(t *testing.T) {
	sm := newTestManager()
	ctx := context.Background()

	var verr *catalog.ValidationError
	for _, action := range []Action{
		{Type: ActionPause},
		{Type: ActionNext},
		{Type: ActionResume},
		{Type: "dance"},
	} {
		if _, err := sm.Apply(ctx, "u1", action); !errors.As(err, &verr) {
			t.Errorf("Expected validation error for %s, got %v", action.Type, err)
		}
	}

	apply(t, sm, "u1", Action{Type: ActionPlay, SongID: "s1"})

	bad := 2.0
	if _, err := sm.Apply(ctx, "u1", Action{Type: ActionVolume, Volume: &bad}); !errors.As(err, &verr) {
		t.Errorf("Expected volume validation error, got %v", err)
	}
	if _, err := sm.Apply(ctx, "u1", Action{Type: ActionSeek, Position: -1}); !errors.As(err, &verr) {
		t.Errorf("Expected seek validation error, got %v", err)
	}
	if _, err := sm.Apply(ctx, "u1", Action{Type: ActionPlay, SongID: "missing"}); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
	if _, err := sm.Apply(ctx, "u1", Action{Type: ActionPlay, SongID: "s2", Source: &QueueSource{Kind: SourcePlaylist, ID: "p1"}}); !errors.As(err, &verr) {
		t.Errorf("Expected song-not-in-source error, got %v", err)
	}

	state := sm.GetState("u1")
	if state.Song.ID != "s1" || state.Volume != 1.0 {
		t.Errorf("Expected state to be unchanged, got %+v", state)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	sm := newTestManager()
	apply(t, sm, "u1", Action{Type: ActionPlay, SongID: "s1"})

	if state := sm.GetState("u2"); state.Song != nil {
		t.Error("Expected second user to have an empty state")
	}

	// Returned states are copies.
	state := sm.GetState("u1")
	state.Queue[0] = "changed"
	if sm.GetState("u1").Queue[0] != "s1" {
		t.Error("Expected stored queue to be unaffected by caller edits")
	}
}

func TestConcurrentActions(t *testing.T) {
	sm := newTestManager()
	apply(t, sm, "u1", Action{Type: ActionPlay, SongID: "s1"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sm.Apply(context.Background(), "u1", Action{Type: ActionToggle})
		}()
	}
	wg.Wait()

	// An even number of toggles leaves playback running.
	if !sm.GetState("u1").IsPlaying {
		t.Error("Expected playback to be running after 50 toggles")
	}
}
