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

// CreateCategory inserts a category. Names are unique.
func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	doc := categoryDocument{ID: primitive.NewObjectID(), Name: category.Name, CreatedAt: now()}
	if _, err := s.categories.InsertOne(ctx, doc); err != nil {
		return translateError(err)
	}
	category.ID = doc.ID.Hex()
	category.CreatedAt = doc.CreatedAt
	return nil
}

// GetCategory returns a category by id.
func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, catalog.ErrNotFound
	}
	return s.findCategory(ctx, bson.M{"_id": oid})
}

// GetCategoryByName returns a category by its unique name.
func (s *Store) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	return s.findCategory(ctx, bson.M{"name": name})
}

func (s *Store) findCategory(ctx context.Context, filter bson.M) (*models.Category, error) {
	var doc categoryDocument
	if err := s.categories.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translateError(err)
	}
	category := doc.model()
	return &category, nil
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	cursor, err := s.categories.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	docs, err := decodeAll[categoryDocument](ctx, cursor)
	if err != nil {
		return nil, err
	}

	categories := make([]models.Category, 0, len(docs))
	for _, doc := range docs {
		categories = append(categories, doc.model())
	}
	return categories, nil
}

// CreateAlbum inserts an album with empty aggregates.
func (s *Store) CreateAlbum(ctx context.Context, album *models.Album) error {
	categoryID, err := parseID(album.CategoryID)
	if err != nil {
		return err
	}

	doc := albumDocument{
		ID:              primitive.NewObjectID(),
		Name:            album.Name,
		Description:     album.Description,
		Image:           album.Image,
		BackgroundColor: album.BackgroundColor,
		Songs:           []primitive.ObjectID{},
		Category:        categoryID,
		CreatedAt:       now(),
	}
	doc.UpdatedAt = doc.CreatedAt

	if _, err := s.albums.InsertOne(ctx, doc); err != nil {
		s.logger.WithError(err).WithField("name", album.Name).Error("Failed to insert album")
		return translateError(err)
	}

	*album = doc.model()
	return nil
}

// GetAlbum returns an album by id.
func (s *Store) GetAlbum(ctx context.Context, id string) (*models.Album, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, catalog.ErrNotFound
	}
	return s.findAlbum(ctx, bson.M{"_id": oid})
}

// FindAlbumByName returns the oldest album with the given name.
func (s *Store) FindAlbumByName(ctx context.Context, name string) (*models.Album, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return s.findAlbum(ctx, bson.M{"name": name}, opts)
}

func (s *Store) findAlbum(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.Album, error) {
	var doc albumDocument
	if err := s.albums.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		return nil, translateError(err)
	}
	album := doc.model()
	return &album, nil
}

// ListAlbums returns all albums in creation order.
func (s *Store) ListAlbums(ctx context.Context) ([]models.Album, error) {
	return s.queryAlbums(ctx, bson.M{})
}

// ListAlbumsByCategory returns the albums filed under a category.
func (s *Store) ListAlbumsByCategory(ctx context.Context, categoryID string) ([]models.Album, error) {
	oid, err := parseID(categoryID)
	if err != nil {
		return []models.Album{}, nil
	}
	return s.queryAlbums(ctx, bson.M{"category": oid})
}

func (s *Store) queryAlbums(ctx context.Context, filter bson.M) ([]models.Album, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.albums.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	docs, err := decodeAll[albumDocument](ctx, cursor)
	if err != nil {
		return nil, err
	}

	albums := make([]models.Album, 0, len(docs))
	for _, doc := range docs {
		albums = append(albums, doc.model())
	}
	return albums, nil
}

// RecomputeAlbumAggregates reads every song whose albumId points at the
// album and overwrites songs, totalDuration and averageRating with a single
// $set. The result depends only on the songs collection, so repeated or
// concurrent runs converge.
func (s *Store) RecomputeAlbumAggregates(ctx context.Context, albumID string) (models.Aggregates, error) {
	var agg models.Aggregates

	oid, err := parseID(albumID)
	if err != nil {
		return agg, catalog.ErrNotFound
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"_id": 1, "durationInSeconds": 1, "rating": 1})
	cursor, err := s.songs.Find(ctx, bson.M{"albumId": oid}, opts)
	if err != nil {
		return agg, fmt.Errorf("failed to load album songs: %w", err)
	}
	docs, err := decodeAll[songDocument](ctx, cursor)
	if err != nil {
		return agg, fmt.Errorf("failed to decode album songs: %w", err)
	}

	songs := make([]models.Song, 0, len(docs))
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, doc := range docs {
		songs = append(songs, doc.model())
		ids = append(ids, doc.ID)
	}
	agg = models.ComputeAggregates(songs)

	result, err := s.albums.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"songs":         ids,
		"totalDuration": agg.TotalDuration,
		"averageRating": agg.AverageRating,
		"updatedAt":     now(),
	}})
	if err != nil {
		return agg, fmt.Errorf("failed to update album aggregates: %w", err)
	}
	if result.MatchedCount == 0 {
		return agg, catalog.ErrNotFound
	}
	return agg, nil
}
