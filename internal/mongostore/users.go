package mongostore

import (
	"context"

	"cadenza/internal/catalog"
	"cadenza/pkg/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateUser inserts a user. The unique indexes reject a repeated email or
// username with catalog.ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	doc := userDocument{
		ID:        primitive.NewObjectID(),
		Email:     user.Email,
		Username:  user.Username,
		Password:  user.PasswordHash,
		CreatedAt: now(),
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		return translateError(err)
	}

	user.ID = doc.ID.Hex()
	user.CreatedAt = doc.CreatedAt
	return nil
}

// GetUserByID returns a user by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, catalog.ErrNotFound
	}

	var doc userDocument
	if err := s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, translateError(err)
	}
	return doc.model(), nil
}

// FindUserByLogin returns the user whose email or username matches.
func (s *Store) FindUserByLogin(ctx context.Context, email, username string) (*models.User, error) {
	var or bson.A
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if len(or) == 0 {
		return nil, catalog.ErrNotFound
	}

	var doc userDocument
	if err := s.users.FindOne(ctx, bson.M{"$or": or}).Decode(&doc); err != nil {
		return nil, translateError(err)
	}
	return doc.model(), nil
}
