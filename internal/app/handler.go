package app

import (
	"context"
	"log/slog"

	"github.com/rbright/voiceprompt/internal/ipc"
	"github.com/rbright/voiceprompt/internal/observe"
	"github.com/rbright/voiceprompt/internal/playback"
)

type commander interface {
	Apply(ctx context.Context, cmd playback.Command) (playback.Snapshot, error)
}

type kicker interface {
	Kick()
}

// controlHandler applies local socket requests to the playback controller.
type controlHandler struct {
	ctrl    commander
	hub     kicker
	metrics *observe.Metrics
	logger  *slog.Logger
}

func (h *controlHandler) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	snap, err := h.ctrl.Apply(ctx, playback.Command{Action: req.Command, Value: req.Value})
	resp := responseFor(snap)
	if err != nil {
		h.logger.Debug("ipc command rejected", "action", req.Command, "error", err.Error())
		resp.OK = false
		resp.Error = err.Error()
		return resp
	}

	if req.Command != playback.ActionStatus {
		h.metrics.RecordCommand(ctx, req.Command, "ipc")
		h.hub.Kick()
	}
	return resp
}

func responseFor(snap playback.Snapshot) ipc.Response {
	return ipc.Response{
		OK:       true,
		State:    string(snap.State),
		Mode:     string(snap.Mode()),
		Speed:    snap.Speed(),
		Position: snap.Position(),
		Progress: snap.Progress(),
		Reading:  snap.ReadingLeft(),
		Message:  snap.Status.Message,
	}
}
