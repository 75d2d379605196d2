package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a scheduled record is written.
const DefaultDebounce = 2 * time.Second

// Saver debounces writes: every Schedule restarts the quiet period, and only the latest
// record is written when it elapses.
type Saver struct {
	store  Store
	delay  time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending *Record
	timer   *time.Timer

	writeMu sync.Mutex
}

// NewSaver wraps store. A non-positive delay uses DefaultDebounce.
func NewSaver(store Store, delay time.Duration, logger *slog.Logger) *Saver {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Saver{store: store, delay: delay, logger: logger, now: time.Now}
}

// Schedule queues rec, replacing any record not yet written.
func (s *Saver) Schedule(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = &rec
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() {
		if err := s.Flush(context.Background()); err != nil && s.logger != nil {
			s.logger.Error("debounced save failed", "error", err.Error())
		}
	})
}

// Pending reports whether a record is waiting to be written.
func (s *Saver) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Flush writes the pending record now, if any.
func (s *Saver) Flush(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	rec := s.pending
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if rec == nil {
		return nil
	}
	rec.SavedAt = s.now()
	if err := s.store.Save(ctx, *rec); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Debug("state saved", "word_cursor", rec.WordCursor, "script_bytes", len(rec.Script))
	}
	return nil
}
