package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/rbright/voiceprompt/internal/broadcast"
	"github.com/rbright/voiceprompt/internal/observe"
	"github.com/rbright/voiceprompt/internal/playback"
)

const transportWebSocket = "websocket"

// Commander applies remote commands.
type Commander interface {
	Apply(ctx context.Context, cmd playback.Command) (playback.Snapshot, error)
}

// Hub fans out broadcast frames and accepts immediate-broadcast requests.
type Hub interface {
	Subscribe(buffer int) (<-chan broadcast.State, func())
	Kick()
}

type remoteHandler struct {
	logger    *slog.Logger
	metrics   *observe.Metrics
	commander Commander
	hub       Hub
	limit     rate.Limit
	burst     int
}

func (h *remoteHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := websocket.Accept(w, req, nil)
	if err != nil {
		h.logger.Warn("remote accept failed", "error", err.Error())
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	id := uuid.NewString()
	logger := h.logger.With("client", id)
	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()

	h.metrics.ClientConnected(ctx, transportWebSocket, 1)
	defer h.metrics.ClientConnected(context.WithoutCancel(ctx), transportWebSocket, -1)
	logger.Info("remote client connected", "remote", req.RemoteAddr)

	frames, unsubscribe := h.hub.Subscribe(8)
	defer unsubscribe()
	go h.pushFrames(ctx, cancel, conn, frames, logger)

	limiter := rate.NewLimiter(h.limit, h.burst)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				logger.Warn("remote read failed", "error", err.Error())
			}
			logger.Info("remote client disconnected")
			return
		}
		if !limiter.Allow() {
			logger.Debug("remote command dropped by rate limit")
			continue
		}

		var cmd playback.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			logger.Debug("ignoring malformed remote command", "error", err.Error())
			continue
		}
		if _, err := h.commander.Apply(ctx, cmd); err != nil {
			logger.Debug("remote command ignored", "action", cmd.Action, "error", err.Error())
			continue
		}
		h.metrics.RecordCommand(ctx, cmd.Action, transportWebSocket)
		h.hub.Kick()
	}
}

func (h *remoteHandler) pushFrames(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, frames <-chan broadcast.State, logger *slog.Logger) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-frames:
			if !ok {
				return
			}
			data, err := json.Marshal(st)
			if err != nil {
				logger.Error("encode broadcast frame failed", "error", err.Error())
				continue
			}
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err = conn.Write(wctx, websocket.MessageText, data)
			wcancel()
			if err != nil {
				logger.Debug("remote write failed", "error", err.Error())
				return
			}
		}
	}
}
