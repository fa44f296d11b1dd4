package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cadenza/internal/catalog"
	"cadenza/pkg/models"
)

// CreateCategory inserts a category. Names are unique.
func (db *Database) CreateCategory(ctx context.Context, category *models.Category) error {
	category.ID = newID()
	category.CreatedAt = now()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)`,
		category.ID, category.Name, category.CreatedAt)
	return translateError(err)
}

// GetCategory returns a category by ID.
func (db *Database) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT id, name, created_at FROM categories WHERE id = ?`, id)
	return scanCategory(row)
}

// GetCategoryByName returns a category by its unique name.
func (db *Database) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT id, name, created_at FROM categories WHERE name = ?`, name)
	return scanCategory(row)
}

// ListCategories returns all categories ordered by name.
func (db *Database) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *category)
	}
	return categories, rows.Err()
}

func scanCategory(row scanner) (*models.Category, error) {
	var category models.Category
	if err := row.Scan(&category.ID, &category.Name, &category.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}
	return &category, nil
}
