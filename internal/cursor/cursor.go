// Package cursor holds the reading position over a parsed script and derives display weights from it.
package cursor

import (
	"fmt"

	"github.com/rbright/voiceprompt/internal/script"
)

// Opacity returns the display weight of word i when the cursor sits at cursor.
// Words behind the cursor fade faster than words ahead of it.
func Opacity(cursor, i int) float64 {
	d := i - cursor
	switch {
	case d < -20:
		return 0.1
	case d < -8:
		return 0.12
	case d < -3:
		return 0.18
	case d < 0:
		return 0.25
	case d == 0:
		return 1.0
	case d <= 2:
		return 0.95
	case d <= 5:
		return 0.85
	case d <= 8:
		return 0.7
	case d <= 12:
		return 0.5
	case d <= 18:
		return 0.3
	case d <= 30:
		return 0.2
	default:
		return 0.12
	}
}

// ProgressPct is cursor/(total-1)*100, or 0 when total <= 1.
func ProgressPct(cursor, total int) float64 {
	if total <= 1 {
		return 0
	}
	return float64(cursor) / float64(total-1) * 100
}

// State is the cursor over one script. It is not safe for concurrent use; the playback
// loop is its only owner.
type State struct {
	script script.Script
	cursor int
}

// New returns a state positioned at the first word of s.
func New(s script.Script) *State {
	return &State{script: s}
}

// Script returns the script the cursor walks.
func (st *State) Script() script.Script {
	return st.script
}

// Load replaces the script and moves the cursor back to the start.
func (st *State) Load(s script.Script) {
	st.script = s
	st.cursor = 0
}

// Index returns the current word index.
func (st *State) Index() int {
	return st.cursor
}

// Len returns the number of words in the script.
func (st *State) Len() int {
	return st.script.Len()
}

// AtEnd reports whether the cursor is on the last word (or the script is empty).
func (st *State) AtEnd() bool {
	return st.cursor >= st.script.Len()-1
}

// Sentence returns the sentence index of the word under the cursor, or 0 when empty.
func (st *State) Sentence() int {
	if st.cursor < 0 || st.cursor >= st.script.Len() {
		return 0
	}
	return st.script.Words[st.cursor].Sentence
}

// AdvanceTo moves the cursor to i clamped into [0, len-1]. It reports whether it moved.
func (st *State) AdvanceTo(i int) bool {
	next := st.clamp(i)
	if next == st.cursor {
		return false
	}
	st.cursor = next
	return true
}

// Restore places the cursor at a persisted index, clamped into range.
func (st *State) Restore(i int) {
	st.cursor = st.clamp(i)
}

// Step moves one word forward (delta > 0) or back (delta < 0) within bounds.
func (st *State) Step(delta int) bool {
	switch {
	case delta > 0:
		return st.AdvanceTo(st.cursor + 1)
	case delta < 0:
		return st.AdvanceTo(st.cursor - 1)
	default:
		return false
	}
}

// JumpToSentence moves to the first word of the sentence delta away from the current one.
// It is a no-op when that sentence does not exist.
func (st *State) JumpToSentence(delta int) bool {
	target := st.Sentence() + delta
	if target < 0 || target >= len(st.script.Sentences) {
		return false
	}
	return st.AdvanceTo(st.script.Sentences[target].Start)
}

// Reset moves the cursor to 0.
func (st *State) Reset() {
	st.cursor = 0
}

// Position renders the "sentence S/T · word W/N" indicator text.
func (st *State) Position() string {
	sentence := 0
	if st.script.Len() > 0 {
		sentence = st.Sentence() + 1
	}
	return fmt.Sprintf("sentence %d/%d · word %d/%d", sentence, len(st.script.Sentences), st.cursor+1, st.script.Len())
}

func (st *State) clamp(i int) int {
	last := st.script.Len() - 1
	if i > last {
		i = last
	}
	if i < 0 {
		i = 0
	}
	return i
}
