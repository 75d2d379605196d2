package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rbright/voiceprompt/internal/broadcast"
	"github.com/rbright/voiceprompt/internal/playback"
)

const defaultDialTimeout = 3 * time.Second

// Client calls a running Remote service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to target and waits up to timeout for the channel to become ready.
func Dial(ctx context.Context, target string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("remote endpoint is empty")
	}
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial remote grpc %q: %w", target, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn.Connect()
	if err := waitForReady(readyCtx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wait for remote grpc readiness: %w", err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Command sends one command and returns the state after it was applied.
func (c *Client) Command(ctx context.Context, cmd playback.Command) (broadcast.State, error) {
	fields := map[string]any{"action": cmd.Action}
	if cmd.Value != nil {
		fields["value"] = cmd.Value
	}
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return broadcast.State{}, fmt.Errorf("encode command: %w", err)
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, commandMethod, in, out); err != nil {
		return broadcast.State{}, err
	}
	return stateFromStruct(out)
}

// Watch calls fn with every broadcast frame until ctx ends, the server closes the stream,
// or fn returns an error.
func (c *Client) Watch(ctx context.Context, fn func(broadcast.State) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.conn.NewStream(ctx, &serviceDesc.Streams[0], watchMethod)
	if err != nil {
		return fmt.Errorf("open watch stream: %w", err)
	}
	// io.EOF from SendMsg means the server already finished; RecvMsg reports the status.
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("send watch request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("close watch send: %w", err)
	}

	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		st, err := stateFromStruct(msg)
		if err != nil {
			return err
		}
		if err := fn(st); err != nil {
			return err
		}
	}
}
