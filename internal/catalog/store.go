package catalog

import (
	"context"
	"io"

	"cadenza/pkg/models"
)

// Store is the persistence contract shared by the SQLite and MongoDB
// backends. Lookups return ErrNotFound for unknown records and unique index
// violations surface as ErrDuplicate.
type Store interface {
	// ValidID reports whether id is well formed for this backend.
	ValidID(id string) bool

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// FindUserByLogin matches a user whose email equals email or whose
	// username equals username. Empty arguments never match.
	FindUserByLogin(ctx context.Context, email, username string) (*models.User, error)

	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)

	CreateAlbum(ctx context.Context, album *models.Album) error
	GetAlbum(ctx context.Context, id string) (*models.Album, error)
	ListAlbums(ctx context.Context) ([]models.Album, error)
	ListAlbumsByCategory(ctx context.Context, categoryID string) ([]models.Album, error)
	FindAlbumByName(ctx context.Context, name string) (*models.Album, error)
	// RecomputeAlbumAggregates rebuilds an album's song list, total duration
	// and average rating from the songs that currently reference it. Running
	// it again, or concurrently, yields the same result.
	RecomputeAlbumAggregates(ctx context.Context, albumID string) (models.Aggregates, error)

	CreateSong(ctx context.Context, song *models.Song) error
	GetSong(ctx context.Context, id string) (*models.Song, error)
	ListSongs(ctx context.Context) ([]models.Song, error)
	ListSongsByAlbum(ctx context.Context, albumID string) ([]models.Song, error)
	// ListSongsByIDs returns the songs in the order of ids, skipping unknown ids.
	ListSongsByIDs(ctx context.Context, ids []string) ([]models.Song, error)
	UpdateSong(ctx context.Context, song *models.Song) error
	// DeleteSong removes the song and every playlist reference to it.
	DeleteSong(ctx context.Context, id string) error

	CreatePlaylist(ctx context.Context, playlist *models.Playlist) error
	GetPlaylist(ctx context.Context, id string) (*models.Playlist, error)
	ListPlaylistsByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
	// UpdatePlaylist writes name, description and image of a playlist owned
	// by playlist.OwnerID.
	UpdatePlaylist(ctx context.Context, playlist *models.Playlist) error
	DeletePlaylist(ctx context.Context, id, ownerID string) error
	// AddSongToPlaylist appends songID to an owned playlist. A song that is
	// already present yields ErrAlreadyInPlaylist and leaves the list as is.
	AddSongToPlaylist(ctx context.Context, playlistID, ownerID, songID string) error
	// RemoveSongFromPlaylist succeeds whether or not songID was present.
	RemoveSongFromPlaylist(ctx context.Context, playlistID, ownerID, songID string) error

	Ping(ctx context.Context) error
	Close() error
}

// MediaKind selects the storage area for an upload.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaImage MediaKind = "images"
)

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// MediaStore persists uploads and resolves their public URLs.
type MediaStore interface {
	// Save stores the upload and returns the URL it is served under.
	Save(kind MediaKind, upload *Upload) (string, error)
	// LocalPath maps a URL returned by Save back to a file on disk.
	LocalPath(url string) (string, bool)
}

// DurationProber derives a track length in whole seconds.
type DurationProber interface {
	ProbeFile(path string) (int, error)
	ProbeURL(ctx context.Context, url string) (int, error)
}
