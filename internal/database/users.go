package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cadenza/internal/catalog"
	"cadenza/pkg/models"
)

// CreateUser inserts a user. Email and username must be unique.
func (db *Database) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = newID()
	user.CreatedAt = now()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO users (id, email, username, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Username, user.PasswordHash, user.CreatedAt)
	if err != nil {
		db.logger.WithError(err).WithField("username", user.Username).Debug("Failed to insert user")
		return translateError(err)
	}
	return nil
}

// GetUserByID returns a single user by its ID.
func (db *Database) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, email, username, password_hash, created_at
		FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// FindUserByLogin returns the user matching either the email or the username.
func (db *Database) FindUserByLogin(ctx context.Context, email, username string) (*models.User, error) {
	if email == "" && username == "" {
		return nil, catalog.ErrNotFound
	}

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, email, username, password_hash, created_at
		FROM users
		WHERE (? != '' AND email = ?) OR (? != '' AND username = ?)
		LIMIT 1`, email, email, username, username)
	return scanUser(row)
}

func scanUser(row scanner) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}
