package recognition

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIgnorable(t *testing.T) {
	require.True(t, Ignorable(ErrNoSpeech))
	require.True(t, Ignorable(fmt.Errorf("browser: %w", ErrAborted)))
	require.False(t, Ignorable(errors.New("network")))
	require.False(t, Ignorable(ErrUnsupported))
	require.False(t, Ignorable(nil))
}

func TestUnavailableSource(t *testing.T) {
	sess, err := Unavailable{}.Open(context.Background(), Options{Lang: "en-US"}, func(Event) {})
	require.Nil(t, sess)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestSessionFunc(t *testing.T) {
	closed := 0
	var s Session = SessionFunc(func() error {
		closed++
		return nil
	})
	require.NoError(t, s.Close())
	require.Equal(t, 1, closed)
}
