package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps compressed slots as blobs with their header columns
type SQLiteStore struct {
	statsRecorder
	db     *sql.DB
	level  int
	closed atomic.Bool
	logger zerolog.Logger
}

// NewSQLiteStore opens or creates the database at config.SQLitePath
func NewSQLiteStore(config PersistenceConfig, logger zerolog.Logger) (*SQLiteStore, error) {
	path := config.SQLitePath
	if path == "" {
		return nil, fmt.Errorf("sqlite store: path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{
		db:     db,
		level:  config.CompressionLevel,
		logger: logger.With().Str("component", "sqlite_store").Logger(),
	}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS slots (
		name         TEXT PRIMARY KEY,
		world_id     TEXT NOT NULL,
		chunk_id     INTEGER NOT NULL,
		texture_size INTEGER NOT NULL,
		tick         INTEGER NOT NULL,
		saved_at     TEXT NOT NULL,
		data         BLOB NOT NULL
	)`)
	return err
}

// Save implements Store
func (s *SQLiteStore) Save(ctx context.Context, name string, slot Slot) error {
	if err := ValidateSlotName(name); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrStoreClosed
	}
	data, err := Marshal(slot, s.level)
	if err != nil {
		s.recordWrite(0, err)
		return err
	}

	h := slot.Header
	_, err = s.db.ExecContext(ctx, `INSERT INTO slots (name, world_id, chunk_id, texture_size, tick, saved_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			world_id = excluded.world_id,
			chunk_id = excluded.chunk_id,
			texture_size = excluded.texture_size,
			tick = excluded.tick,
			saved_at = excluded.saved_at,
			data = excluded.data`,
		name, h.WorldID, h.ChunkID, slot.Channels.TextureSize, int64(h.Tick), h.SavedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"), data)
	s.recordWrite(len(data), err)
	if err != nil {
		return fmt.Errorf("save slot %s: %w", name, err)
	}
	return nil
}

// Load implements Store
func (s *SQLiteStore) Load(ctx context.Context, name string) (Slot, error) {
	if s.closed.Load() {
		return Slot{}, ErrStoreClosed
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM slots WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("%w: %s", ErrSlotNotFound, name)
		s.recordRead(0, err)
		return Slot{}, err
	}
	if err != nil {
		s.recordRead(0, err)
		return Slot{}, fmt.Errorf("load slot %s: %w", name, err)
	}

	slot, err := Unmarshal(data)
	s.recordRead(len(data), err)
	if err != nil {
		s.logger.Error().Err(err).Str("slot", name).Msg("Failed to decode slot")
	}
	return slot, err
}

// Delete implements Store
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, name)
	}
	s.recordDelete()
	return nil
}

// List implements Store
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM slots ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close implements Store
func (s *SQLiteStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}
