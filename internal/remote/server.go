package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rbright/voiceprompt/internal/broadcast"
	"github.com/rbright/voiceprompt/internal/logging"
	"github.com/rbright/voiceprompt/internal/observe"
	"github.com/rbright/voiceprompt/internal/playback"
)

const (
	DefaultAddr  = "127.0.0.1:7421"
	transportRPC = "grpc"
)

// Commander applies remote commands.
type Commander interface {
	Apply(ctx context.Context, cmd playback.Command) (playback.Snapshot, error)
}

// Hub fans out broadcast frames and accepts immediate-broadcast requests.
type Hub interface {
	Subscribe(buffer int) (<-chan broadcast.State, func())
	Kick()
}

type Config struct {
	Logger    *slog.Logger
	Metrics   *observe.Metrics
	Commander Commander
	Hub       Hub
	Now       func() time.Time
}

// Server implements the Remote service.
type Server struct {
	logger    *slog.Logger
	metrics   *observe.Metrics
	commander Commander
	hub       Hub
	now       func() time.Time
}

func NewServer(cfg Config) *Server {
	s := &Server{
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		commander: cfg.Commander,
		hub:       cfg.Hub,
		now:       cfg.Now,
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.metrics == nil {
		s.metrics = observe.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Register attaches the service to gs.
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&serviceDesc, s)
}

// Serve runs a gRPC server on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	gs := grpc.NewServer()
	s.Register(gs)

	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(ln) }()
	s.logger.Info("grpc remote listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case <-ctx.Done():
		gs.GracefulStop()
		return nil
	}
}

// Command applies one {action, value} request and returns the resulting state.
func (s *Server) Command(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	cmd := playback.Command{}
	if v, ok := in.GetFields()["action"]; ok {
		cmd.Action = v.GetStringValue()
	}
	if v, ok := in.GetFields()["value"]; ok {
		cmd.Value = v.AsInterface()
	}

	snap, err := s.commander.Apply(ctx, cmd)
	if err != nil {
		s.logger.Debug("grpc command rejected", "action", cmd.Action, "error", err.Error())
		return nil, status.Error(commandCode(err), err.Error())
	}
	s.metrics.RecordCommand(ctx, cmd.Action, transportRPC)
	if s.hub != nil {
		s.hub.Kick()
	}
	return stateStruct(broadcast.Build(snap, false, s.now()))
}

// Watch streams broadcast frames until the client goes away.
func (s *Server) Watch(_ *emptypb.Empty, stream grpc.ServerStream) error {
	if s.hub == nil {
		return status.Error(codes.Unavailable, "state broadcast disabled")
	}
	ctx := stream.Context()
	frames, unsubscribe := s.hub.Subscribe(8)
	defer unsubscribe()

	s.metrics.ClientConnected(ctx, transportRPC, 1)
	defer s.metrics.ClientConnected(context.WithoutCancel(ctx), transportRPC, -1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case st, ok := <-frames:
			if !ok {
				return nil
			}
			msg, err := stateStruct(st)
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

func commandCode(err error) codes.Code {
	switch {
	case errors.Is(err, playback.ErrUnknownAction),
		errors.Is(err, playback.ErrMissingAction),
		errors.Is(err, playback.ErrInvalidValue),
		errors.Is(err, playback.ErrInvalidSpeed),
		errors.Is(err, playback.ErrInvalidMode):
		return codes.InvalidArgument
	case errors.Is(err, playback.ErrScriptLocked):
		return codes.FailedPrecondition
	case errors.Is(err, playback.ErrClosed):
		return codes.Unavailable
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

func stateStruct(st broadcast.State) (*structpb.Struct, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return structpb.NewStruct(fields)
}

func stateFromStruct(msg *structpb.Struct) (broadcast.State, error) {
	var st broadcast.State
	data, err := json.Marshal(msg.AsMap())
	if err != nil {
		return st, fmt.Errorf("encode state struct: %w", err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("decode state struct: %w", err)
	}
	return st, nil
}
