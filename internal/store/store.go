// Package store persists the teleprompter script, settings, and reading position between runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown persistence backend")

// Settings are the user-facing presentation and playback preferences.
type Settings struct {
	FontSize    int    `json:"fontSize,omitempty"`
	ScrollMode  string `json:"scrollMode,omitempty"`
	ScrollSpeed int    `json:"scrollSpeed,omitempty"`
	Lang        string `json:"lang,omitempty"`
	FontFamily  string `json:"fontFamily,omitempty"`
	Mirror      bool   `json:"mirror"`
	LightMode   bool   `json:"lightMode"`
}

// Record is one persisted teleprompter state.
type Record struct {
	Script     string    `json:"script"`
	Settings   Settings  `json:"settings"`
	WordCursor int       `json:"wordCursor"`
	SavedAt    time.Time `json:"savedAt"`
}

// Store loads and saves the single current Record.
type Store interface {
	// Load returns the saved record; ok is false when nothing has been saved yet.
	Load(ctx context.Context) (rec Record, ok bool, err error)
	Save(ctx context.Context, rec Record) error
	Close() error
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// DefaultPath returns the default location for backend inside stateDir.
func DefaultPath(stateDir, backend string) string {
	if backend == BackendSQLite {
		return filepath.Join(stateDir, "state.db")
	}
	return filepath.Join(stateDir, "state.json")
}

// ResolvePath returns explicit with a leading "~/" expanded, or DefaultPath when explicit
// is empty.
func ResolvePath(stateDir, backend, explicit string) (string, error) {
	explicit = strings.TrimSpace(explicit)
	switch {
	case explicit == "":
		return DefaultPath(stateDir, backend), nil
	case explicit == "~" || strings.HasPrefix(explicit, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %q: %w", explicit, err)
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(explicit, "~"), "/")), nil
	default:
		return explicit, nil
	}
}

// Open builds the store named by backend at path.
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendFile, "":
		return NewFileStore(path), nil
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
