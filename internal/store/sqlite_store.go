package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the record in a single-row table.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and migrates it.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS prompter_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		script TEXT NOT NULL,
		settings TEXT NOT NULL,
		word_cursor INTEGER NOT NULL,
		saved_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	settings, err := json.Marshal(rec.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	INSERT INTO prompter_state (id, script, settings, word_cursor, saved_at)
	VALUES (1, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		script = excluded.script,
		settings = excluded.settings,
		word_cursor = excluded.word_cursor,
		saved_at = excluded.saved_at
	`
	if _, err := s.db.ExecContext(ctx, query,
		rec.Script,
		string(settings),
		rec.WordCursor,
		rec.SavedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		rec      Record
		settings string
		savedAt  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT script, settings, word_cursor, saved_at FROM prompter_state WHERE id = 1`,
	).Scan(&rec.Script, &settings, &rec.WordCursor, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("load state: %w", err)
	}

	if err := json.Unmarshal([]byte(settings), &rec.Settings); err != nil {
		return Record{}, false, fmt.Errorf("decode settings: %w", err)
	}
	if rec.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
		return Record{}, false, fmt.Errorf("parse saved_at: %w", err)
	}
	return rec, true, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
