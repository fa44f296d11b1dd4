package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cadenza/internal/catalog"
	"cadenza/pkg/models"
)

const songColumns = `id, name, artist, image, audio_url, album_id, release_date, rating, duration, created_at, updated_at`

// CreateSong inserts a song. The owning album's aggregates are not touched;
// callers recompute them afterwards.
func (db *Database) CreateSong(ctx context.Context, song *models.Song) error {
	song.ID = newID()
	song.CreatedAt = now()
	song.UpdatedAt = song.CreatedAt

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO songs (id, name, artist, image, audio_url, album_id, release_date, rating, duration, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		song.ID, song.Name, song.Artist, song.Image, song.AudioURL, nullString(song.AlbumID),
		song.ReleaseDate, song.Rating, song.Duration, song.CreatedAt, song.UpdatedAt)
	if err != nil {
		db.logger.WithError(err).WithField("name", song.Name).Error("Failed to insert song")
		return translateError(err)
	}
	return nil
}

// GetSong returns a single song by its ID.
func (db *Database) GetSong(ctx context.Context, id string) (*models.Song, error) {
	return scanSong(db.getSongStmt.QueryRowContext(ctx, id))
}

// ListSongs returns all songs in creation order.
func (db *Database) ListSongs(ctx context.Context) ([]models.Song, error) {
	return db.querySongs(ctx, `SELECT `+songColumns+` FROM songs ORDER BY created_at, id`)
}

// ListSongsByAlbum returns the songs attached to an album in creation order.
func (db *Database) ListSongsByAlbum(ctx context.Context, albumID string) ([]models.Song, error) {
	return db.querySongs(ctx, `
		SELECT `+songColumns+` FROM songs WHERE album_id = ? ORDER BY created_at, id`, albumID)
}

// ListSongsByIDs returns the songs in the order of ids. Unknown ids are skipped.
func (db *Database) ListSongsByIDs(ctx context.Context, ids []string) ([]models.Song, error) {
	if len(ids) == 0 {
		return []models.Song{}, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	songs, err := db.querySongs(ctx, `
		SELECT `+songColumns+` FROM songs WHERE id IN (`+placeholders(len(ids))+`)`, args...)
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

// UpdateSong writes the mutable fields of a song.
func (db *Database) UpdateSong(ctx context.Context, song *models.Song) error {
	song.UpdatedAt = now()

	result, err := db.conn.ExecContext(ctx, `
		UPDATE songs
		SET name = ?, artist = ?, image = ?, audio_url = ?, album_id = ?, rating = ?, duration = ?, updated_at = ?
		WHERE id = ?`,
		song.Name, song.Artist, song.Image, song.AudioURL, nullString(song.AlbumID),
		song.Rating, song.Duration, song.UpdatedAt, song.ID)
	if err != nil {
		return translateError(err)
	}
	return requireAffected(result)
}

// DeleteSong removes a song together with every playlist entry that
// references it.
func (db *Database) DeleteSong(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_songs WHERE song_id = ?`, id); err != nil {
		return fmt.Errorf("failed to detach song from playlists: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		db.logger.WithError(err).WithField("song_id", id).Error("Failed to delete song")
		return err
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *Database) querySongs(ctx context.Context, query string, args ...any) ([]models.Song, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []models.Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, *song)
	}
	return songs, rows.Err()
}

func scanSong(row scanner) (*models.Song, error) {
	var song models.Song
	var albumID sql.NullString
	err := row.Scan(
		&song.ID, &song.Name, &song.Artist, &song.Image, &song.AudioURL, &albumID,
		&song.ReleaseDate, &song.Rating, &song.Duration, &song.CreatedAt, &song.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}
	song.AlbumID = albumID.String
	return &song, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return catalog.ErrNotFound
	}
	return nil
}
