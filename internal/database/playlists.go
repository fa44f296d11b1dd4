package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cadenza/internal/catalog"
	"cadenza/pkg/models"

	"github.com/mattn/go-sqlite3"
)

const playlistColumns = `id, name, description, image, user_id, created_at, updated_at`

// CreatePlaylist inserts an empty playlist.
func (db *Database) CreatePlaylist(ctx context.Context, playlist *models.Playlist) error {
	playlist.ID = newID()
	playlist.CreatedAt = now()
	playlist.UpdatedAt = playlist.CreatedAt
	playlist.SongIDs = []string{}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO playlists (id, name, description, image, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		playlist.ID, playlist.Name, playlist.Description, playlist.Image, playlist.OwnerID,
		playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		db.logger.WithError(err).WithField("user_id", playlist.OwnerID).Error("Failed to insert playlist")
		return translateError(err)
	}
	return nil
}

// GetPlaylist returns a playlist with its song ids in position order.
func (db *Database) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	playlist, err := scanPlaylist(db.getPlaylistStmt.QueryRowContext(ctx, id))
	if err != nil {
		return nil, err
	}

	playlist.SongIDs, err = db.playlistSongIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return playlist, nil
}

// ListPlaylistsByOwner returns a user's playlists, newest first.
func (db *Database) ListPlaylistsByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+playlistColumns+` FROM playlists
		WHERE user_id = ?
		ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, *playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range playlists {
		playlists[i].SongIDs, err = db.playlistSongIDs(ctx, playlists[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return playlists, nil
}

// UpdatePlaylist writes name, description and image of an owned playlist.
func (db *Database) UpdatePlaylist(ctx context.Context, playlist *models.Playlist) error {
	playlist.UpdatedAt = now()

	result, err := db.conn.ExecContext(ctx, `
		UPDATE playlists
		SET name = ?, description = ?, image = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		playlist.Name, playlist.Description, playlist.Image, playlist.UpdatedAt,
		playlist.ID, playlist.OwnerID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// DeletePlaylist deletes an owned playlist and its song entries.
func (db *Database) DeletePlaylist(ctx context.Context, id, ownerID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM playlists WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_songs WHERE playlist_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// AddSongToPlaylist appends a song to the end of an owned playlist. The
// composite primary key turns a second insert into ErrAlreadyInPlaylist.
func (db *Database) AddSongToPlaylist(ctx context.Context, playlistID, ownerID, songID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := ensureOwned(ctx, tx, playlistID, ownerID); err != nil {
		return err
	}

	var maxPosition sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT MAX(position) FROM playlist_songs WHERE playlist_id = ?`,
		playlistID).Scan(&maxPosition)
	if err != nil {
		return err
	}

	position := 1
	if maxPosition.Valid {
		position = int(maxPosition.Int64) + 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO playlist_songs (playlist_id, song_id, position, added_at)
		VALUES (?, ?, ?, ?)`,
		playlistID, songID, position, now())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) {
			switch sqliteErr.ExtendedCode {
			case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
				return catalog.ErrAlreadyInPlaylist
			case sqlite3.ErrConstraintForeignKey:
				return catalog.ErrNotFound
			}
		}
		return fmt.Errorf("failed to add song to playlist: %w", err)
	}

	if err := touchPlaylist(ctx, tx, playlistID); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveSongFromPlaylist removes a song from an owned playlist. Removing a
// song that is not present is not an error.
func (db *Database) RemoveSongFromPlaylist(ctx context.Context, playlistID, ownerID, songID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := ensureOwned(ctx, tx, playlistID, ownerID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		DELETE FROM playlist_songs
		WHERE playlist_id = ? AND song_id = ?`,
		playlistID, songID)
	if err != nil {
		return err
	}

	if affected, _ := result.RowsAffected(); affected > 0 {
		if err := touchPlaylist(ctx, tx, playlistID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func ensureOwned(ctx context.Context, tx *sql.Tx, playlistID, ownerID string) error {
	var owned bool
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) > 0 FROM playlists WHERE id = ? AND user_id = ?`,
		playlistID, ownerID).Scan(&owned)
	if err != nil {
		return err
	}
	if !owned {
		return catalog.ErrNotFound
	}
	return nil
}

func touchPlaylist(ctx context.Context, tx *sql.Tx, playlistID string) error {
	_, err := tx.ExecContext(ctx, `UPDATE playlists SET updated_at = ? WHERE id = ?`, now(), playlistID)
	return err
}

func (db *Database) playlistSongIDs(ctx context.Context, playlistID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT song_id FROM playlist_songs
		WHERE playlist_id = ?
		ORDER BY position`, playlistID)
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

func scanPlaylist(row scanner) (*models.Playlist, error) {
	var playlist models.Playlist
	err := row.Scan(
		&playlist.ID, &playlist.Name, &playlist.Description, &playlist.Image,
		&playlist.OwnerID, &playlist.CreatedAt, &playlist.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}
	return &playlist, nil
}
