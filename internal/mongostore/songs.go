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

func songToDocument(song *models.Song) (songDocument, error) {
	doc := songDocument{
		Name:        song.Name,
		Artist:      song.Artist,
		Image:       song.Image,
		AudioURL:    song.AudioURL,
		ReleaseDate: song.ReleaseDate,
		Rating:      song.Rating,
		Duration:    song.Duration,
		CreatedAt:   song.CreatedAt,
		UpdatedAt:   song.UpdatedAt,
	}
	if song.AlbumID != "" {
		albumID, err := parseID(song.AlbumID)
		if err != nil {
			return doc, err
		}
		doc.AlbumID = &albumID
	}
	return doc, nil
}

// CreateSong inserts a song.
func (s *Store) CreateSong(ctx context.Context, song *models.Song) error {
	song.CreatedAt = now()
	song.UpdatedAt = song.CreatedAt

	doc, err := songToDocument(song)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()

	if _, err := s.songs.InsertOne(ctx, doc); err != nil {
		s.logger.WithError(err).WithField("name", song.Name).Error("Failed to insert song")
		return translateError(err)
	}
	song.ID = doc.ID.Hex()
	return nil
}

// GetSong returns a song by id.
func (s *Store) GetSong(ctx context.Context, id string) (*models.Song, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, catalog.ErrNotFound
	}

	var doc songDocument
	if err := s.songs.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, translateError(err)
	}
	song := doc.model()
	return &song, nil
}

// ListSongs returns all songs in creation order.
func (s *Store) ListSongs(ctx context.Context) ([]models.Song, error) {
	return s.querySongs(ctx, bson.M{})
}

// ListSongsByAlbum returns the songs attached to an album.
func (s *Store) ListSongsByAlbum(ctx context.Context, albumID string) ([]models.Song, error) {
	oid, err := parseID(albumID)
	if err != nil {
		return []models.Song{}, nil
	}
	return s.querySongs(ctx, bson.M{"albumId": oid})
}

// ListSongsByIDs returns the songs in the order of ids, skipping unknown ids.
func (s *Store) ListSongsByIDs(ctx context.Context, ids []string) ([]models.Song, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []models.Song{}, nil
	}

	songs, err := s.querySongs(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Song, len(songs))
	for _, song := range songs {
		byID[song.ID] = song
	}
	ordered := make([]models.Song, 0, len(ids))
	for _, id := range ids {
		if song, ok := byID[id]; ok {
			ordered = append(ordered, song)
		}
	}
	return ordered, nil
}

// UpdateSong replaces the mutable fields of a song.
func (s *Store) UpdateSong(ctx context.Context, song *models.Song) error {
	oid, err := parseID(song.ID)
	if err != nil {
		return catalog.ErrNotFound
	}
	song.UpdatedAt = now()

	set := bson.M{
		"name":              song.Name,
		"artist":            song.Artist,
		"image":             song.Image,
		"audioUrl":          song.AudioURL,
		"rating":            song.Rating,
		"durationInSeconds": song.Duration,
		"updatedAt":         song.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if song.AlbumID == "" {
		update["$unset"] = bson.M{"albumId": ""}
	} else {
		albumID, err := parseID(song.AlbumID)
		if err != nil {
			return err
		}
		set["albumId"] = albumID
	}

	result, err := s.songs.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update song: %w", err)
	}
	if result.MatchedCount == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// DeleteSong removes a song and pulls it from every playlist.
func (s *Store) DeleteSong(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return catalog.ErrNotFound
	}

	result, err := s.songs.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}
	if result.DeletedCount == 0 {
		return catalog.ErrNotFound
	}

	_, err = s.playlists.UpdateMany(ctx,
		bson.M{"songs": oid},
		bson.M{"$pull": bson.M{"songs": oid}, "$set": bson.M{"updatedAt": now()}})
	if err != nil {
		return fmt.Errorf("failed to detach song from playlists: %w", err)
	}
	return nil
}

func (s *Store) querySongs(ctx context.Context, filter bson.M) ([]models.Song, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.songs.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	docs, err := decodeAll[songDocument](ctx, cursor)
	if err != nil {
		return nil, err
	}

	songs := make([]models.Song, 0, len(docs))
	for _, doc := range docs {
		songs = append(songs, doc.model())
	}
	return songs, nil
}
