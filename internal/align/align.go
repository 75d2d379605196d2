// Package align maps recognized speech onto a script and proposes how far the reading
// cursor should move.
//
// For every start position in a bounded window around the cursor and every start offset in
// the heard words, a greedy walk pairs script and heard words, tolerating a few single-word
// insertions or deletions on either side. Walks with too little evidence, or that would
// jump backwards or too far ahead on weak evidence, are discarded; the best remaining walk
// decides the new position, which is then capped relative to the size of the heard chunk.
package align

import (
	"math"
	"strings"

	"github.com/rbright/voiceprompt/internal/script"
)

// Params are the tuning knobs of the alignment search.
type Params struct {
	LookBehind        int
	LookAhead         int
	MaxSkips          int
	MinMatches        int
	MinSignificant    int
	SignificantLength int
	AdvanceFloor      int
	AdvancePerWord    float64
	Phonetic          bool
}

// DefaultParams returns the empirically tuned defaults.
func DefaultParams() Params {
	return Params{
		LookBehind:        2,
		LookAhead:         30,
		MaxSkips:          3,
		MinMatches:        2,
		MinSignificant:    1,
		SignificantLength: 4,
		AdvanceFloor:      8,
		AdvancePerWord:    1.5,
	}
}

// Result describes the outcome of one alignment.
type Result struct {
	From        int
	To          int
	Moved       bool
	HeardWords  int
	Matches     int
	Significant int
}

// Advanced returns the number of words the cursor moved.
func (r Result) Advanced() int {
	return r.To - r.From
}

// Engine runs alignments with a fixed set of Params. It holds no per-call state and is safe
// for concurrent use.
type Engine struct {
	params  Params
	matcher matcher
}

// New builds an engine. Zero-valued numeric params fall back to the defaults.
func New(params Params) *Engine {
	def := DefaultParams()
	if params.LookAhead <= 0 {
		params.LookAhead = def.LookAhead
	}
	if params.LookBehind < 0 {
		params.LookBehind = def.LookBehind
	}
	if params.MaxSkips <= 0 {
		params.MaxSkips = def.MaxSkips
	}
	if params.MinMatches <= 0 {
		params.MinMatches = def.MinMatches
	}
	if params.MinSignificant < 0 {
		params.MinSignificant = def.MinSignificant
	}
	if params.SignificantLength <= 0 {
		params.SignificantLength = def.SignificantLength
	}
	if params.AdvanceFloor <= 0 {
		params.AdvanceFloor = def.AdvanceFloor
	}
	if params.AdvancePerWord <= 0 {
		params.AdvancePerWord = def.AdvancePerWord
	}
	return &Engine{params: params, matcher: matcher{phonetic: params.Phonetic}}
}

// Params returns the effective parameters.
func (e *Engine) Params() Params {
	return e.params
}

type walk struct {
	end         int
	matches     int
	significant int
}

// Align proposes a new cursor for s given the heard text. It never moves the cursor
// backwards; an inconclusive search returns a Result with Moved=false.
func (e *Engine) Align(s script.Script, cursor int, heard string) Result {
	res := Result{From: cursor, To: cursor}

	heardWords := script.NormalizeWords(heard)
	res.HeardWords = len(heardWords)
	if len(heardWords) == 0 || s.Empty() {
		return res
	}

	searchStart := max(0, cursor-e.params.LookBehind)
	searchEnd := min(s.Len()-1, cursor+e.params.LookAhead)

	var best *walk
	bestScore := math.Inf(-1)
	for pos := searchStart; pos <= searchEnd; pos++ {
		for hs := range heardWords {
			w := e.walk(s, heardWords, pos, hs, searchEnd)
			if w.matches < e.params.MinMatches || w.significant < e.params.MinSignificant {
				continue
			}

			jump := pos - cursor
			if jump < -e.params.LookBehind {
				continue
			}
			if jump > 15 && w.matches < 4 {
				continue
			}
			if jump > 10 && w.matches < 3 {
				continue
			}

			proximity := 1.0 - float64(max(0, jump))/100
			score := float64(w.matches) + 0.5*float64(w.significant) + proximity
			if score > bestScore {
				bestScore = score
				best = &w
			}
		}
	}

	if best == nil || best.end < cursor-1 {
		return res
	}

	next := max(cursor, best.end)
	limit := max(e.params.AdvanceFloor, int(math.Round(float64(len(heardWords))*e.params.AdvancePerWord)))
	next = min(next, cursor+limit)
	if next == cursor {
		return res
	}

	res.To = next
	res.Moved = true
	res.Matches = best.matches
	res.Significant = best.significant
	return res
}

// walk greedily pairs script words from pos with heard words from hs.
func (e *Engine) walk(s script.Script, heard []string, pos, hs, searchEnd int) walk {
	var w walk
	si, hi, skips := pos, hs, 0

	for si <= searchEnd && hi < len(heard) && skips < e.params.MaxSkips {
		sw := s.Words[si].Normalized
		hw := heard[hi]
		if sw == "" {
			si++
			continue
		}

		if e.matcher.match(sw, hw) {
			w.matches++
			if len(sw) >= e.params.SignificantLength {
				w.significant++
			}
			si++
			hi++
			skips = 0
			continue
		}

		if hi+1 < len(heard) && e.matcher.match(sw, heard[hi+1]) {
			hi++
			skips++
			continue
		}
		if si+1 <= searchEnd {
			if ns := s.Words[si+1].Normalized; ns != "" && e.matcher.match(ns, hw) {
				si++
				skips++
				continue
			}
		}
		break
	}

	w.end = si - 1
	return w
}

// TailWords returns the last n whitespace-separated words of text joined by single spaces.
func TailWords(text string, n int) string {
	fields := strings.Fields(text)
	if n > 0 && len(fields) > n {
		fields = fields[len(fields)-n:]
	}
	return strings.Join(fields, " ")
}
