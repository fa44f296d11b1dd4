package mongostore

import (
	"time"

	"cadenza/pkg/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Documents mirror the collections used by the original web client, so an
// existing database can be served without migration.

type userDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	Username  string             `bson:"username"`
	Password  string             `bson:"password"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d userDocument) model() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		Username:     d.Username,
		PasswordHash: d.Password,
		CreatedAt:    d.CreatedAt,
	}
}

type categoryDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d categoryDocument) model() models.Category {
	return models.Category{ID: d.ID.Hex(), Name: d.Name, CreatedAt: d.CreatedAt}
}

type albumDocument struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	Name            string               `bson:"name"`
	Description     string               `bson:"description"`
	Image           string               `bson:"image,omitempty"`
	BackgroundColor string               `bson:"backgroundColor,omitempty"`
	Songs           []primitive.ObjectID `bson:"songs"`
	TotalDuration   int                  `bson:"totalDuration"`
	AverageRating   float64              `bson:"averageRating"`
	Category        primitive.ObjectID   `bson:"category"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
}

func (d albumDocument) model() models.Album {
	return models.Album{
		ID:              d.ID.Hex(),
		Name:            d.Name,
		Description:     d.Description,
		Image:           d.Image,
		BackgroundColor: d.BackgroundColor,
		CategoryID:      hexOrEmpty(d.Category),
		SongIDs:         hexIDs(d.Songs),
		TotalDuration:   d.TotalDuration,
		AverageRating:   d.AverageRating,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type songDocument struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	Name        string              `bson:"name"`
	Artist      string              `bson:"artist"`
	Image       string              `bson:"image"`
	AudioURL    string              `bson:"audioUrl"`
	AlbumID     *primitive.ObjectID `bson:"albumId,omitempty"`
	ReleaseDate time.Time           `bson:"releaseDate"`
	Rating      float64             `bson:"rating"`
	Duration    int                 `bson:"durationInSeconds"`
	CreatedAt   time.Time           `bson:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt"`
}

func (d songDocument) model() models.Song {
	song := models.Song{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Artist:      d.Artist,
		Image:       d.Image,
		AudioURL:    d.AudioURL,
		ReleaseDate: d.ReleaseDate,
		Rating:      d.Rating,
		Duration:    d.Duration,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.AlbumID != nil {
		song.AlbumID = d.AlbumID.Hex()
	}
	return song
}

type playlistDocument struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Image       string               `bson:"image,omitempty"`
	User        primitive.ObjectID   `bson:"user"`
	Songs       []primitive.ObjectID `bson:"songs"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func (d playlistDocument) model() models.Playlist {
	return models.Playlist{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Image:       d.Image,
		OwnerID:     d.User.Hex(),
		SongIDs:     hexIDs(d.Songs),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}

func hexOrEmpty(id primitive.ObjectID) string {
	if id.IsZero() {
		return ""
	}
	return id.Hex()
}

// objectIDs parses hex ids, dropping the ones that are malformed.
func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}
