//go:build integration

package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultInputResolvesIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	devices, err := ListDevices(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, devices)

	dev, err := Resolve(devices, "default")
	require.NoError(t, err)
	require.True(t, dev.Default)
	require.NotEmpty(t, dev.ID)
}
