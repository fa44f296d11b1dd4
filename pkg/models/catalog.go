package models

import (
	"encoding/json"
	"time"
)

// User represents a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserSummary is the public projection of a user embedded in other documents.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Summary returns the public projection of the user.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username}
}

// Category groups albums by genre. Names are unique.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Album is a named collection of songs with denormalized aggregates.
// TotalDuration and AverageRating are owned by the store's recompute and are
// never taken from client input.
type Album struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	Image           string      `json:"image,omitempty"`
	BackgroundColor string      `json:"backgroundColor,omitempty"`
	Visual          AlbumVisual `json:"visual"`
	CategoryID      string      `json:"categoryId"`
	Category        *Category   `json:"category,omitempty"`
	SongIDs         []string    `json:"songIds"`
	Songs           []Song      `json:"songs,omitempty"`
	TotalDuration   int         `json:"totalDuration"` // in seconds
	AverageRating   float64     `json:"averageRating"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// MarshalJSON adds the presentation-only formattedDuration field.
func (a Album) MarshalJSON() ([]byte, error) {
	type album Album
	return json.Marshal(struct {
		album
		FormattedDuration string `json:"formattedDuration"`
	}{album(a), FormatDuration(a.TotalDuration)})
}

// Song is a single audio asset, optionally attached to one album.
type Song struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Artist      string    `json:"artist"`
	Image       string    `json:"image"`
	AudioURL    string    `json:"audioUrl"`
	AlbumID     string    `json:"albumId,omitempty"`
	Album       *Album    `json:"album,omitempty"`
	ReleaseDate time.Time `json:"releaseDate"`
	Rating      float64   `json:"rating"`
	Duration    int       `json:"duration"` // in seconds
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MarshalJSON adds the presentation-only formattedDuration field.
func (s Song) MarshalJSON() ([]byte, error) {
	type song Song
	return json.Marshal(struct {
		song
		FormattedDuration string `json:"formattedDuration"`
	}{song(s), FormatDuration(s.Duration)})
}

// Playlist is a user-owned ordered list of song references without duplicates.
type Playlist struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Image       string       `json:"image,omitempty"`
	OwnerID     string       `json:"userId"`
	Owner       *UserSummary `json:"user,omitempty"`
	SongIDs     []string     `json:"songIds"`
	Songs       []Song       `json:"songs"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// HasSong reports whether songID is already part of the playlist.
func (p *Playlist) HasSong(songID string) bool {
	for _, id := range p.SongIDs {
		if id == songID {
			return true
		}
	}
	return false
}

// MinRating and MaxRating bound Song.Rating.
const (
	MinRating = 0.0
	MaxRating = 5.0
)
