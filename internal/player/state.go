package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cadenza/internal/catalog"
	"cadenza/pkg/models"
)

// ActionType names a playback action
type ActionType string

const (
	ActionPlay     ActionType = "play"
	ActionPause    ActionType = "pause"
	ActionResume   ActionType = "resume"
	ActionToggle   ActionType = "toggle"
	ActionNext     ActionType = "next"
	ActionPrevious ActionType = "previous"
	ActionSeek     ActionType = "seek"
	ActionVolume   ActionType = "volume"
	ActionClear    ActionType = "clear"
)

// SourceKind is where a queue came from
type SourceKind string

const (
	SourceAlbum    SourceKind = "album"
	SourcePlaylist SourceKind = "playlist"
)

// restartThreshold is how far into a song "previous" restarts it instead of
// going back.
const restartThreshold = 3 // seconds

// QueueSource identifies the album or playlist a queue was built from
type QueueSource struct {
	Kind SourceKind `json:"kind"`
	ID   string     `json:"id"`
}

// Action is one playback command from a client
type Action struct {
	Type     ActionType   `json:"type"`
	SongID   string       `json:"songId,omitempty"`
	Source   *QueueSource `json:"source,omitempty"`
	Position int          `json:"position,omitempty"` // seek target in seconds
	Volume   *float64     `json:"volume,omitempty"`   // 0.0 to 1.0
	Muted    *bool        `json:"muted,omitempty"`
}

// State represents one user's player state
type State struct {
	Song       *models.Song `json:"song,omitempty"`
	Queue      []string     `json:"queue"`
	QueueIndex int          `json:"queueIndex"`
	Source     *QueueSource `json:"source,omitempty"`
	IsPlaying  bool         `json:"isPlaying"`
	Position   int          `json:"position"` // in seconds
	Volume     float64      `json:"volume"`
	IsMuted    bool         `json:"isMuted"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// Resolver loads the catalog records a queue refers to
type Resolver interface {
	GetSong(ctx context.Context, id string) (*models.Song, error)
	GetAlbum(ctx context.Context, id string) (*models.Album, error)
	GetPlaylist(ctx context.Context, id string) (*models.Playlist, error)
}

type userState struct {
	mu    sync.Mutex
	state State
}

// StateManager keeps the player state of every user. Actions for one user
// are applied one at a time.
type StateManager struct {
	resolver Resolver
	mutex    sync.Mutex
	users    map[string]*userState
	now      func() time.Time
}

// NewStateManager creates a new player state manager
func NewStateManager(resolver Resolver) *StateManager {
	return &StateManager{
		resolver: resolver,
		users:    make(map[string]*userState),
		now:      time.Now,
	}
}

func (sm *StateManager) user(userID string) *userState {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	us, ok := sm.users[userID]
	if !ok {
		us = &userState{state: sm.initialState()}
		sm.users[userID] = us
	}
	return us
}

func (sm *StateManager) initialState() State {
	return State{
		Queue:     []string{},
		Volume:    1.0,
		UpdatedAt: sm.now(),
	}
}

// GetState returns a copy of the user's state
func (sm *StateManager) GetState(userID string) *State {
	us := sm.user(userID)
	us.mu.Lock()
	defer us.mu.Unlock()
	return us.state.clone()
}

// Apply runs one action against the user's state and returns the new state.
// A rejected action leaves the state unchanged.
func (sm *StateManager) Apply(ctx context.Context, userID string, action Action) (*State, error) {
	us := sm.user(userID)
	us.mu.Lock()
	defer us.mu.Unlock()

	next := *us.state.clone()
	if err := sm.apply(ctx, &next, action); err != nil {
		return nil, err
	}
	next.UpdatedAt = sm.now()
	us.state = next
	return next.clone(), nil
}

func (sm *StateManager) apply(ctx context.Context, s *State, action Action) error {
	switch action.Type {
	case ActionPlay:
		if action.SongID == "" {
			return sm.resume(s)
		}
		return sm.play(ctx, s, action.SongID, action.Source)

	case ActionPause:
		if s.Song == nil {
			return nothingPlaying()
		}
		s.IsPlaying = false
		return nil

	case ActionResume:
		return sm.resume(s)

	case ActionToggle:
		if s.Song == nil {
			return nothingPlaying()
		}
		s.IsPlaying = !s.IsPlaying
		return nil

	case ActionNext:
		return sm.step(ctx, s, 1)

	case ActionPrevious:
		if s.Song != nil && s.Position > restartThreshold {
			s.Position = 0
			return nil
		}
		return sm.step(ctx, s, -1)

	case ActionSeek:
		if s.Song == nil {
			return nothingPlaying()
		}
		if action.Position < 0 {
			return &catalog.ValidationError{Field: "position", Message: "Position cannot be negative"}
		}
		s.Position = action.Position
		if s.Song.Duration > 0 && s.Position > s.Song.Duration {
			s.Position = s.Song.Duration
		}
		return nil

	case ActionVolume:
		if action.Volume == nil && action.Muted == nil {
			return &catalog.ValidationError{Field: "volume", Message: "Volume or muted is required"}
		}
		if action.Volume != nil {
			if *action.Volume < 0 || *action.Volume > 1 {
				return &catalog.ValidationError{Field: "volume", Message: "Volume must be between 0 and 1"}
			}
			s.Volume = *action.Volume
		}
		if action.Muted != nil {
			s.IsMuted = *action.Muted
		}
		return nil

	case ActionClear:
		volume, muted := s.Volume, s.IsMuted
		*s = sm.initialState()
		s.Volume, s.IsMuted = volume, muted
		return nil

	default:
		return &catalog.ValidationError{Field: "type", Message: fmt.Sprintf("Unknown player action %q", action.Type)}
	}
}

func (sm *StateManager) resume(s *State) error {
	if s.Song == nil {
		return nothingPlaying()
	}
	s.IsPlaying = true
	return nil
}

// play starts songID, queueing the album or playlist it was picked from.
func (sm *StateManager) play(ctx context.Context, s *State, songID string, source *QueueSource) error {
	song, err := sm.resolver.GetSong(ctx, songID)
	if err != nil {
		return err
	}

	queue := []string{song.ID}
	if source != nil {
		queue, err = sm.queueFrom(ctx, source)
		if err != nil {
			return err
		}
	}

	index := indexOf(queue, song.ID)
	if index < 0 {
		return &catalog.ValidationError{Field: "songId", Message: "Song is not part of the selected source"}
	}

	s.Song = song
	s.Queue = queue
	s.QueueIndex = index
	s.Source = source
	s.IsPlaying = true
	s.Position = 0
	return nil
}

func (sm *StateManager) queueFrom(ctx context.Context, source *QueueSource) ([]string, error) {
	switch source.Kind {
	case SourceAlbum:
		album, err := sm.resolver.GetAlbum(ctx, source.ID)
		if err != nil {
			return nil, err
		}
		return append([]string{}, album.SongIDs...), nil
	case SourcePlaylist:
		playlist, err := sm.resolver.GetPlaylist(ctx, source.ID)
		if err != nil {
			return nil, err
		}
		return append([]string{}, playlist.SongIDs...), nil
	default:
		return nil, &catalog.ValidationError{Field: "source", Message: "Source must be album or playlist"}
	}
}

// step moves through the queue, skipping songs that no longer exist. Running
// off either end stops playback at that end.
func (sm *StateManager) step(ctx context.Context, s *State, delta int) error {
	if s.Song == nil {
		return nothingPlaying()
	}

	for i := s.QueueIndex + delta; i >= 0 && i < len(s.Queue); i += delta {
		song, err := sm.resolver.GetSong(ctx, s.Queue[i])
		if errors.Is(err, catalog.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		s.Song = song
		s.QueueIndex = i
		s.Position = 0
		s.IsPlaying = true
		return nil
	}

	s.Position = 0
	s.IsPlaying = false
	return nil
}

func (s *State) clone() *State {
	c := *s
	c.Queue = append([]string{}, s.Queue...)
	if s.Source != nil {
		source := *s.Source
		c.Source = &source
	}
	return &c
}

func indexOf(ids []string, id string) int {
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}

func nothingPlaying() error {
	return &catalog.ValidationError{Message: "Nothing is playing"}
}
