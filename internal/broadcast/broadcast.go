// Package broadcast periodically publishes compact playback state to remote subscribers.
package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/voiceprompt/internal/logging"
	"github.com/rbright/voiceprompt/internal/observe"
	"github.com/rbright/voiceprompt/internal/playback"
)

const (
	DefaultInterval = 500 * time.Millisecond
	// FullEvery sends the word list on every n-th broadcast so late joiners catch up.
	FullEvery = 10
)

// State is one broadcast frame. Words and ParaBreaks are present only on full frames.
type State struct {
	Running        bool     `json:"running"`
	WordCursor     int      `json:"wordCursor"`
	TotalWords     int      `json:"totalWords"`
	SentenceIdx    int      `json:"sentenceIdx"`
	TotalSentences int      `json:"totalSentences"`
	ScrollMode     string   `json:"scrollMode"`
	Speed          int      `json:"speed"`
	TS             int64    `json:"ts"`
	Words          []string `json:"words,omitempty"`
	ParaBreaks     []int    `json:"paraBreaks,omitempty"`
}

// Full reports whether the frame carries the script words.
func (s State) Full() bool {
	return s.Words != nil
}

// Build converts a snapshot into a frame. SentenceIdx is 1-based (0 for an empty script).
func Build(snap playback.Snapshot, full bool, now time.Time) State {
	st := State{
		Running:        snap.Running(),
		WordCursor:     snap.Cursor,
		TotalWords:     snap.Script.Len(),
		TotalSentences: len(snap.Script.Sentences),
		ScrollMode:     string(snap.Mode()),
		Speed:          snap.Speed(),
		TS:             now.UnixMilli(),
	}
	if !snap.Script.Empty() {
		st.SentenceIdx = snap.Sentence() + 1
	}
	if full {
		st.Words = snap.Script.Texts()
		if st.Words == nil {
			st.Words = []string{}
		}
		st.ParaBreaks = snap.Script.ParagraphBreaks()
		if st.ParaBreaks == nil {
			st.ParaBreaks = []int{}
		}
	}
	return st
}

// Source supplies the state to publish.
type Source interface {
	Snapshot() playback.Snapshot
}

type Options struct {
	Interval time.Duration
	Logger   *slog.Logger
	Metrics  *observe.Metrics
	Now      func() time.Time
}

// Broadcaster fans frames out to subscribers on a fixed interval and on Kick.
type Broadcaster struct {
	source   Source
	interval time.Duration
	logger   *slog.Logger
	metrics  *observe.Metrics
	now      func() time.Time
	kick     chan struct{}

	mu           sync.Mutex
	subs         map[uint64]chan State
	nextID       uint64
	count        int
	lastIdentity string
	last         State
}

func New(source Source, opts Options) *Broadcaster {
	b := &Broadcaster{
		source:   source,
		interval: opts.Interval,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
		kick:     make(chan struct{}, 1),
		subs:     make(map[uint64]chan State),
	}
	if b.interval <= 0 {
		b.interval = DefaultInterval
	}
	if b.logger == nil {
		b.logger = logging.Discard()
	}
	if b.metrics == nil {
		b.metrics = observe.Discard()
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// Subscribe registers a receiver. The returned cancel func unregisters and closes the
// channel. A subscriber that falls behind loses its oldest pending frame.
func (b *Broadcaster) Subscribe(buffer int) (<-chan State, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan State, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of live subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Kick requests an immediate broadcast from Run.
func (b *Broadcaster) Kick() {
	select {
	case b.kick <- struct{}{}:
	default:
	}
}

// Last returns the most recent frame.
func (b *Broadcaster) Last() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Run broadcasts every interval and on every Kick until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.logger.Debug("broadcaster started", "interval_ms", b.interval.Milliseconds())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.Publish(ctx)
		case <-b.kick:
			b.Publish(ctx)
		}
	}
}

// Publish builds one frame from the current snapshot and delivers it to every subscriber.
// Words are included when the script identity changed since the previous frame and on
// every FullEvery-th frame.
func (b *Broadcaster) Publish(ctx context.Context) State {
	snap := b.source.Snapshot()
	identity := snap.Script.Identity()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.count++
	full := identity != b.lastIdentity || b.count%FullEvery == 1
	b.lastIdentity = identity

	st := Build(snap, full, b.now())
	b.last = st
	for _, ch := range b.subs {
		deliver(ch, st)
	}
	b.metrics.Broadcasts.Add(ctx, 1)
	return st
}

func deliver(ch chan State, st State) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- st:
	default:
	}
}
