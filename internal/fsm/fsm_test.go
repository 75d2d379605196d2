package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateStopped

	next, err := Transition(s, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateCountdown, next)

	next, err = Transition(next, EventGo)
	require.NoError(t, err)
	require.Equal(t, StateRunning, next)

	next, err = Transition(next, EventFinish)
	require.NoError(t, err)
	require.Equal(t, StateStopped, next)
}

func TestTransitionStopFromActiveStates(t *testing.T) {
	for _, state := range []State{StateCountdown, StateRunning} {
		next, err := Transition(state, EventStop)
		require.NoError(t, err)
		require.Equal(t, StateStopped, next)
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "stopped stop invalid", state: StateStopped, event: EventStop, want: StateStopped, wantErr: true},
		{name: "stopped go invalid", state: StateStopped, event: EventGo, want: StateStopped, wantErr: true},
		{name: "stopped finish invalid", state: StateStopped, event: EventFinish, want: StateStopped, wantErr: true},
		{name: "countdown start invalid", state: StateCountdown, event: EventStart, want: StateCountdown, wantErr: true},
		{name: "countdown finish invalid", state: StateCountdown, event: EventFinish, want: StateCountdown, wantErr: true},
		{name: "running start invalid", state: StateRunning, event: EventStart, want: StateRunning, wantErr: true},
		{name: "running go invalid", state: StateRunning, event: EventGo, want: StateRunning, wantErr: true},
		{name: "countdown go valid", state: StateCountdown, event: EventGo, want: StateRunning, wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid transition")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}

func TestActive(t *testing.T) {
	require.False(t, Active(StateStopped))
	require.True(t, Active(StateCountdown))
	require.True(t, Active(StateRunning))
}
