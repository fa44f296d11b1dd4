// Package mongostore implements catalog.Store on MongoDB using the
// collection layout of the original web application.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cadenza/internal/catalog"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// Store is a catalog.Store backed by a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *logrus.Logger

	users      *mongo.Collection
	categories *mongo.Collection
	albums     *mongo.Collection
	songs      *mongo.Collection
	playlists  *mongo.Collection
}

var _ catalog.Store = (*Store)(nil)

// New connects to uri, selects database and makes sure the indexes exist.
func New(ctx context.Context, uri, database string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:     client,
		db:         db,
		logger:     logger,
		users:      db.Collection("users"),
		categories: db.Collection("categories"),
		albums:     db.Collection("albums"),
		songs:      db.Collection("songs"),
		playlists:  db.Collection("playlists"),
	}

	if err := s.ensureIndexes(connectCtx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.WithField("database", database).Info("Connected to MongoDB")
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := func(field string) mongo.IndexModel {
		return mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		}
	}

	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users:      {unique("email"), unique("username")},
		s.categories: {unique("name")},
		s.albums: {
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
		s.songs: {{Keys: bson.D{{Key: "albumId", Value: 1}}}},
		s.playlists: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "songs", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%s: %w", coll.Name(), err)
		}
	}
	return nil
}

// Database exposes the selected database, mainly for tests.
func (s *Store) Database() *mongo.Database {
	return s.db
}

// ValidID reports whether id is a hex ObjectID.
func (s *Store) ValidID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

// Ping verifies the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", catalog.ErrInvalidID, id)
	}
	return oid, nil
}

// translateError maps driver errors onto the catalog taxonomy.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return catalog.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", catalog.ErrDuplicate, err)
	}
	return err
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// decodeAll drains a cursor into documents of type T.
func decodeAll[T any](ctx context.Context, cursor *mongo.Cursor) ([]T, error) {
	defer cursor.Close(ctx)

	var docs []T
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
