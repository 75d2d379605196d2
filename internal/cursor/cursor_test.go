package cursor

import (
	"testing"

	"github.com/rbright/voiceprompt/internal/script"
	"github.com/stretchr/testify/require"
)

func TestOpacityStepFunction(t *testing.T) {
	tests := []struct {
		dist int
		want float64
	}{
		{dist: -40, want: 0.1},
		{dist: -21, want: 0.1},
		{dist: -20, want: 0.12},
		{dist: -9, want: 0.12},
		{dist: -8, want: 0.18},
		{dist: -4, want: 0.18},
		{dist: -3, want: 0.25},
		{dist: -1, want: 0.25},
		{dist: 0, want: 1.0},
		{dist: 1, want: 0.95},
		{dist: 2, want: 0.95},
		{dist: 3, want: 0.85},
		{dist: 5, want: 0.85},
		{dist: 8, want: 0.7},
		{dist: 12, want: 0.5},
		{dist: 18, want: 0.3},
		{dist: 30, want: 0.2},
		{dist: 31, want: 0.12},
		{dist: 500, want: 0.12},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, Opacity(100, 100+tc.dist), "dist %d", tc.dist)
	}
}

func TestOpacityBoundsAndMonotonicity(t *testing.T) {
	prev := 0.0
	for d := -60; d <= 0; d++ {
		o := Opacity(0, d)
		require.GreaterOrEqual(t, o, 0.1)
		require.LessOrEqual(t, o, 1.0)
		require.GreaterOrEqual(t, o, prev)
		prev = o
	}
	prev = 1.0
	for d := 0; d <= 60; d++ {
		o := Opacity(0, d)
		require.GreaterOrEqual(t, o, 0.1)
		require.LessOrEqual(t, o, prev)
		prev = o
	}
}

func TestProgressPct(t *testing.T) {
	require.Equal(t, 0.0, ProgressPct(0, 0))
	require.Equal(t, 0.0, ProgressPct(0, 1))
	require.Equal(t, 0.0, ProgressPct(0, 5))
	require.Equal(t, 50.0, ProgressPct(2, 5))
	require.Equal(t, 100.0, ProgressPct(4, 5))
}

func TestAdvanceToClamps(t *testing.T) {
	st := New(script.Parse("one two three four"))

	require.True(t, st.AdvanceTo(99))
	require.Equal(t, 3, st.Index())
	require.True(t, st.AtEnd())

	require.True(t, st.AdvanceTo(-5))
	require.Equal(t, 0, st.Index())
	require.False(t, st.AdvanceTo(0))
}

func TestEmptyScriptStaysAtZero(t *testing.T) {
	st := New(script.Parse(""))

	require.False(t, st.AdvanceTo(10))
	require.False(t, st.Step(1))
	require.False(t, st.Step(-1))
	require.False(t, st.JumpToSentence(1))
	require.Equal(t, 0, st.Index())
	require.Equal(t, 0, st.Sentence())
	require.True(t, st.AtEnd())
	require.Equal(t, "sentence 0/0 · word 1/0", st.Position())
}

func TestStepWithinBounds(t *testing.T) {
	st := New(script.Parse("alpha beta"))

	require.False(t, st.Step(-1))
	require.True(t, st.Step(1))
	require.Equal(t, 1, st.Index())
	require.False(t, st.Step(1))
	require.True(t, st.Step(-1))
	require.Equal(t, 0, st.Index())
	require.False(t, st.Step(0))
}

func TestJumpToSentence(t *testing.T) {
	st := New(script.Parse("Hello world. This is a test. Final words here."))

	require.True(t, st.JumpToSentence(1))
	require.Equal(t, 2, st.Index())
	require.Equal(t, 1, st.Sentence())

	require.True(t, st.JumpToSentence(1))
	require.Equal(t, 6, st.Index())

	require.False(t, st.JumpToSentence(1))
	require.Equal(t, 6, st.Index())

	st.AdvanceTo(4)
	require.True(t, st.JumpToSentence(-1))
	require.Equal(t, 0, st.Index())
	require.False(t, st.JumpToSentence(-1))
}

func TestJumpToSentenceFromMidSentence(t *testing.T) {
	st := New(script.Parse("Hello world. This is a test."))
	st.AdvanceTo(3)

	require.True(t, st.JumpToSentence(0))
	require.Equal(t, 2, st.Index())
	require.False(t, st.JumpToSentence(0))

	st.AdvanceTo(4)
	require.True(t, st.JumpToSentence(-1))
	require.Equal(t, 0, st.Index())
}

func TestRestoreClampsAndLoadResets(t *testing.T) {
	st := New(script.Parse("a b c"))

	st.Restore(42)
	require.Equal(t, 2, st.Index())
	st.Restore(-3)
	require.Equal(t, 0, st.Index())

	st.Restore(2)
	st.Load(script.Parse("x y"))
	require.Equal(t, 0, st.Index())
	require.Equal(t, 2, st.Len())
}

func TestResetAndDerivedViews(t *testing.T) {
	st := New(script.Parse("Hello world. This is a test."))
	st.AdvanceTo(5)

	require.Equal(t, "sentence 2/2 · word 6/6", st.Position())

	st.Reset()
	require.Equal(t, 0, st.Index())
	require.Equal(t, "sentence 1/2 · word 1/6", st.Position())
}
