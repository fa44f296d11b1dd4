package mongostore

import (
	"context"
	"fmt"

	"cadenza/internal/catalog"
	"cadenza/pkg/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreatePlaylist inserts an empty playlist.
func (s *Store) CreatePlaylist(ctx context.Context, playlist *models.Playlist) error {
	owner, err := parseID(playlist.OwnerID)
	if err != nil {
		return err
	}

	doc := playlistDocument{
		ID:          primitive.NewObjectID(),
		Name:        playlist.Name,
		Description: playlist.Description,
		Image:       playlist.Image,
		User:        owner,
		Songs:       []primitive.ObjectID{},
		CreatedAt:   now(),
	}
	doc.UpdatedAt = doc.CreatedAt

	if _, err := s.playlists.InsertOne(ctx, doc); err != nil {
		return translateError(err)
	}
	*playlist = doc.model()
	return nil
}

// GetPlaylist returns a playlist by id.
func (s *Store) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, catalog.ErrNotFound
	}

	var doc playlistDocument
	if err := s.playlists.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, translateError(err)
	}
	playlist := doc.model()
	return &playlist, nil
}

// ListPlaylistsByOwner returns a user's playlists, newest first.
func (s *Store) ListPlaylistsByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	owner, err := parseID(ownerID)
	if err != nil {
		return []models.Playlist{}, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.playlists.Find(ctx, bson.M{"user": owner}, opts)
	if err != nil {
		return nil, err
	}
	docs, err := decodeAll[playlistDocument](ctx, cursor)
	if err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(docs))
	for _, doc := range docs {
		playlists = append(playlists, doc.model())
	}
	return playlists, nil
}

// UpdatePlaylist writes name, description and image of an owned playlist.
func (s *Store) UpdatePlaylist(ctx context.Context, playlist *models.Playlist) error {
	filter, err := ownedFilter(playlist.ID, playlist.OwnerID)
	if err != nil {
		return err
	}
	playlist.UpdatedAt = now()

	result, err := s.playlists.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"name":        playlist.Name,
		"description": playlist.Description,
		"image":       playlist.Image,
		"updatedAt":   playlist.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}
	if result.MatchedCount == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// DeletePlaylist deletes an owned playlist.
func (s *Store) DeletePlaylist(ctx context.Context, id, ownerID string) error {
	filter, err := ownedFilter(id, ownerID)
	if err != nil {
		return err
	}

	result, err := s.playlists.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	if result.DeletedCount == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// AddSongToPlaylist pushes songID onto an owned playlist. The $ne guard makes
// the push conditional, so a concurrent duplicate add cannot slip through.
func (s *Store) AddSongToPlaylist(ctx context.Context, playlistID, ownerID, songID string) error {
	filter, err := ownedFilter(playlistID, ownerID)
	if err != nil {
		return err
	}
	song, err := parseID(songID)
	if err != nil {
		return catalog.ErrNotFound
	}

	guarded := bson.M{"_id": filter["_id"], "user": filter["user"], "songs": bson.M{"$ne": song}}
	result, err := s.playlists.UpdateOne(ctx, guarded, bson.M{
		"$push": bson.M{"songs": song},
		"$set":  bson.M{"updatedAt": now()},
	})
	if err != nil {
		return fmt.Errorf("failed to add song to playlist: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	// Nothing matched: either the playlist is not ours or the song is there.
	count, err := s.playlists.CountDocuments(ctx, filter)
	if err != nil {
		return err
	}
	if count == 0 {
		return catalog.ErrNotFound
	}
	return catalog.ErrAlreadyInPlaylist
}

// RemoveSongFromPlaylist pulls songID from an owned playlist.
func (s *Store) RemoveSongFromPlaylist(ctx context.Context, playlistID, ownerID, songID string) error {
	filter, err := ownedFilter(playlistID, ownerID)
	if err != nil {
		return err
	}

	song, err := primitive.ObjectIDFromHex(songID)
	if err != nil {
		// A malformed id cannot be in the list; only ownership matters.
		count, err := s.playlists.CountDocuments(ctx, filter)
		if err != nil {
			return err
		}
		if count == 0 {
			return catalog.ErrNotFound
		}
		return nil
	}

	result, err := s.playlists.UpdateOne(ctx, filter, bson.M{
		"$pull": bson.M{"songs": song},
		"$set":  bson.M{"updatedAt": now()},
	})
	if err != nil {
		return fmt.Errorf("failed to remove song from playlist: %w", err)
	}
	if result.MatchedCount == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func ownedFilter(playlistID, ownerID string) (bson.M, error) {
	id, err := primitive.ObjectIDFromHex(playlistID)
	if err != nil {
		return nil, catalog.ErrNotFound
	}
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, catalog.ErrNotFound
	}
	return bson.M{"_id": id, "user": owner}, nil
}
