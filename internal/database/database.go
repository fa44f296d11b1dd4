package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cadenza/internal/catalog"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Database is the SQLite implementation of catalog.Store. It is safe for
// concurrent use because the underlying *sql.DB is concurrency-safe.
type Database struct {
	conn   *sql.DB
	logger *logrus.Logger

	getSongStmt     *sql.Stmt
	getAlbumStmt    *sql.Stmt
	getPlaylistStmt *sql.Stmt
	recomputeStmt   *sql.Stmt
}

var _ catalog.Store = (*Database)(nil)

// NewDatabase opens (or creates) a SQLite database at the provided path and
// ensures all required tables and indices exist. Caller should Close() it
// when finished.
func NewDatabase(dbPath string, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works better with fewer connections
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
		"PRAGMA foreign_keys=ON;",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	db := &Database{
		conn:   conn,
		logger: logger,
	}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Database initialized successfully")
	return db, nil
}

// SetMaxConnections overrides the connection pool size.
func (db *Database) SetMaxConnections(n int) {
	if n > 0 {
		db.conn.SetMaxOpenConns(n)
	}
}

// createTables creates tables and indices if they do not already exist, then
// executes any migrations. This is idempotent and safe to call multiple times.
func (db *Database) createTables() error {
	usersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);`

	categoriesTable := `
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL
	);`

	albumsTable := `
	CREATE TABLE IF NOT EXISTS albums (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		background_color TEXT NOT NULL DEFAULT '',
		category_id TEXT NOT NULL,
		total_duration INTEGER NOT NULL DEFAULT 0,
		average_rating REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (category_id) REFERENCES categories(id)
	);`

	songsTable := `
	CREATE TABLE IF NOT EXISTS songs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		artist TEXT NOT NULL,
		image TEXT NOT NULL,
		audio_url TEXT NOT NULL,
		album_id TEXT,
		release_date DATETIME NOT NULL,
		duration INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (album_id) REFERENCES albums(id) ON DELETE SET NULL
	);`

	playlistsTable := `
	CREATE TABLE IF NOT EXISTS playlists (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);`

	// The composite key rejects a song appearing twice in one playlist.
	playlistSongsTable := `
	CREATE TABLE IF NOT EXISTS playlist_songs (
		playlist_id TEXT NOT NULL,
		song_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		added_at DATETIME NOT NULL,
		FOREIGN KEY (playlist_id) REFERENCES playlists(id) ON DELETE CASCADE,
		FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE,
		PRIMARY KEY (playlist_id, song_id)
	);`

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_albums_category ON albums(category_id);",
		"CREATE INDEX IF NOT EXISTS idx_albums_name ON albums(name);",
		"CREATE INDEX IF NOT EXISTS idx_songs_album ON songs(album_id);",
		"CREATE INDEX IF NOT EXISTS idx_playlists_user ON playlists(user_id, created_at);",
		"CREATE INDEX IF NOT EXISTS idx_playlist_songs_position ON playlist_songs(playlist_id, position);",
		"CREATE INDEX IF NOT EXISTS idx_playlist_songs_song ON playlist_songs(song_id);",
	}

	tables := []string{usersTable, categoriesTable, albumsTable, songsTable, playlistsTable, playlistSongsTable}
	for _, table := range tables {
		if _, err := db.conn.Exec(table); err != nil {
			return err
		}
	}

	for _, index := range indices {
		if _, err := db.conn.Exec(index); err != nil {
			return err
		}
	}

	return db.runMigrations()
}

// runMigrations performs incremental schema updates in-place. Each migration
// must be idempotent and safe to re-run.
func (db *Database) runMigrations() error {
	// Migration 1: songs gained a rating
	if err := db.ensureColumn("songs", "rating", "REAL NOT NULL DEFAULT 0"); err != nil {
		return err
	}

	// Migration 2: playlists gained a cover image
	if err := db.ensureColumn("playlists", "image", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return err
	}

	return nil
}

func (db *Database) ensureColumn(table, column, definition string) error {
	var exists bool
	err := db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM pragma_table_info(?)
		WHERE name = ?`, table, column).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to inspect %s.%s: %w", table, column, err)
	}
	if exists {
		return nil
	}

	if _, err := db.conn.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)); err != nil {
		return fmt.Errorf("failed to add %s.%s: %w", table, column, err)
	}

	db.logger.WithFields(logrus.Fields{"table": table, "column": column}).Info("Added column")
	return nil
}

// prepareStatements prepares the hot-path lookups and the aggregate update.
func (db *Database) prepareStatements() error {
	var err error

	db.getSongStmt, err = db.conn.Prepare(`SELECT ` + songColumns + ` FROM songs WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get song statement: %w", err)
	}

	db.getAlbumStmt, err = db.conn.Prepare(`SELECT ` + albumColumns + ` FROM albums WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get album statement: %w", err)
	}

	db.getPlaylistStmt, err = db.conn.Prepare(`SELECT ` + playlistColumns + ` FROM playlists WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get playlist statement: %w", err)
	}

	// One statement recomputes both aggregates from the songs that reference
	// the album, so concurrent or repeated runs converge on the same row.
	db.recomputeStmt, err = db.conn.Prepare(`
		UPDATE albums SET
			total_duration = (SELECT COALESCE(SUM(MAX(duration, 0)), 0) FROM songs WHERE album_id = albums.id),
			average_rating = (SELECT COALESCE(AVG(rating), 0) FROM songs WHERE album_id = albums.id),
			updated_at = ?
		WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare recompute statement: %w", err)
	}

	return nil
}

// ValidID reports whether id is a UUID.
func (db *Database) ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Ping verifies the connection is alive.
func (db *Database) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection and prepared statements.
func (db *Database) Close() error {
	statements := []*sql.Stmt{
		db.getSongStmt,
		db.getAlbumStmt,
		db.getPlaylistStmt,
		db.recomputeStmt,
	}

	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				db.logger.WithError(err).Error("Failed to close prepared statement")
			}
		}
	}

	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func newID() string {
	return uuid.New().String()
}

func now() time.Time {
	return time.Now().UTC()
}

// translateError maps driver errors onto the catalog taxonomy.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.ErrNotFound
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", catalog.ErrDuplicate, err)
		}
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

type scanner interface {
	Scan(dest ...any) error
}
