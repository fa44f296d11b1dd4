package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cadenza/internal/catalog"
	"cadenza/pkg/models"
)

const albumColumns = `id, name, description, image, background_color, category_id, total_duration, average_rating, created_at, updated_at`

// CreateAlbum inserts an album with empty aggregates.
func (db *Database) CreateAlbum(ctx context.Context, album *models.Album) error {
	album.ID = newID()
	album.CreatedAt = now()
	album.UpdatedAt = album.CreatedAt
	album.TotalDuration = 0
	album.AverageRating = 0
	album.SongIDs = []string{}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO albums (id, name, description, image, background_color, category_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		album.ID, album.Name, album.Description, album.Image, album.BackgroundColor,
		album.CategoryID, album.CreatedAt, album.UpdatedAt)
	if err != nil {
		db.logger.WithError(err).WithField("name", album.Name).Error("Failed to insert album")
		return translateError(err)
	}
	return nil
}

// GetAlbum returns an album with its song ids.
func (db *Database) GetAlbum(ctx context.Context, id string) (*models.Album, error) {
	album, err := scanAlbum(db.getAlbumStmt.QueryRowContext(ctx, id))
	if err != nil {
		return nil, err
	}

	album.SongIDs, err = db.albumSongIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return album, nil
}

// FindAlbumByName returns the oldest album with the given name.
func (db *Database) FindAlbumByName(ctx context.Context, name string) (*models.Album, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+albumColumns+` FROM albums WHERE name = ? ORDER BY created_at LIMIT 1`, name)
	album, err := scanAlbum(row)
	if err != nil {
		return nil, err
	}

	album.SongIDs, err = db.albumSongIDs(ctx, album.ID)
	if err != nil {
		return nil, err
	}
	return album, nil
}

// ListAlbums returns all albums in creation order.
func (db *Database) ListAlbums(ctx context.Context) ([]models.Album, error) {
	return db.queryAlbums(ctx, `SELECT `+albumColumns+` FROM albums ORDER BY created_at, id`)
}

// ListAlbumsByCategory returns the albums filed under a category.
func (db *Database) ListAlbumsByCategory(ctx context.Context, categoryID string) ([]models.Album, error) {
	return db.queryAlbums(ctx, `
		SELECT `+albumColumns+` FROM albums WHERE category_id = ? ORDER BY created_at, id`, categoryID)
}

// RecomputeAlbumAggregates rewrites total_duration and average_rating from
// the songs currently attached to the album.
func (db *Database) RecomputeAlbumAggregates(ctx context.Context, albumID string) (models.Aggregates, error) {
	var agg models.Aggregates

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return agg, err
	}
	defer tx.Rollback()

	result, err := tx.StmtContext(ctx, db.recomputeStmt).ExecContext(ctx, now(), albumID)
	if err != nil {
		return agg, fmt.Errorf("failed to update album aggregates: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return agg, err
	}
	if affected == 0 {
		return agg, catalog.ErrNotFound
	}

	err = tx.QueryRowContext(ctx, `
		SELECT a.total_duration, a.average_rating, (SELECT COUNT(*) FROM songs WHERE album_id = a.id)
		FROM albums a WHERE a.id = ?`, albumID).Scan(&agg.TotalDuration, &agg.AverageRating, &agg.SongCount)
	if err != nil {
		return agg, fmt.Errorf("failed to read album aggregates: %w", err)
	}

	return agg, tx.Commit()
}

func (db *Database) queryAlbums(ctx context.Context, query string, args ...any) ([]models.Album, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []models.Album
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, *album)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(albums) == 0 {
		return albums, nil
	}

	songIDs, err := db.songIDsByAlbum(ctx)
	if err != nil {
		return nil, err
	}
	for i := range albums {
		albums[i].SongIDs = songIDs[albums[i].ID]
		if albums[i].SongIDs == nil {
			albums[i].SongIDs = []string{}
		}
	}
	return albums, nil
}

func (db *Database) albumSongIDs(ctx context.Context, albumID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id FROM songs WHERE album_id = ? ORDER BY created_at, id`, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (db *Database) songIDsByAlbum(ctx context.Context) (map[string][]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT album_id, id FROM songs WHERE album_id IS NOT NULL ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string][]string)
	for rows.Next() {
		var albumID, id string
		if err := rows.Scan(&albumID, &id); err != nil {
			return nil, err
		}
		ids[albumID] = append(ids[albumID], id)
	}
	return ids, rows.Err()
}

func scanAlbum(row scanner) (*models.Album, error) {
	var album models.Album
	err := row.Scan(
		&album.ID, &album.Name, &album.Description, &album.Image, &album.BackgroundColor,
		&album.CategoryID, &album.TotalDuration, &album.AverageRating,
		&album.CreatedAt, &album.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan album: %w", err)
	}
	return &album, nil
}
