package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/voiceprompt/internal/align"
	"github.com/rbright/voiceprompt/internal/broadcast"
	"github.com/rbright/voiceprompt/internal/config"
	"github.com/rbright/voiceprompt/internal/indicator"
	"github.com/rbright/voiceprompt/internal/ipc"
	"github.com/rbright/voiceprompt/internal/logging"
	"github.com/rbright/voiceprompt/internal/observe"
	"github.com/rbright/voiceprompt/internal/playback"
	"github.com/rbright/voiceprompt/internal/recognition"
	"github.com/rbright/voiceprompt/internal/remote"
	"github.com/rbright/voiceprompt/internal/store"
	"github.com/rbright/voiceprompt/internal/version"
	"github.com/rbright/voiceprompt/internal/web"
)

const (
	acquireProbeTimeout = 180 * time.Millisecond
	acquireRetries      = 8
	flushTimeout        = 3 * time.Second
)

func (r Runner) commandServe(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	ipcListener, err := ipc.Acquire(ctx, socketPath, acquireProbeTimeout, acquireRetries)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = ipcListener.Close()
		_ = os.Remove(socketPath)
	}()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version.Version})
	if err != nil {
		logger.Warn("metrics provider unavailable", "error", err.Error())
	} else {
		defer func() { _ = shutdownMetrics(context.WithoutCancel(ctx)) }()
	}
	metrics := observe.DefaultMetrics()

	httpListener, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: listen %s: %v\n", cfg.Server.Listen, err)
		return 1
	}
	var grpcListener net.Listener
	if cfg.Remote.Enable {
		grpcListener, err = net.Listen("tcp", cfg.Remote.Listen)
		if err != nil {
			_ = httpListener.Close()
			fmt.Fprintf(r.Stderr, "error: listen %s: %v\n", cfg.Remote.Listen, err)
			return 1
		}
	}

	persist, saver, err := openPersistence(cfg.Persist, logger)
	if err != nil {
		_ = httpListener.Close()
		if grpcListener != nil {
			_ = grpcListener.Close()
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if persist != nil {
		defer func() { _ = persist.Close() }()
	}

	var source recognition.Source = recognition.Unavailable{}
	bridge := web.NewRecognizer(logger)
	if cfg.Recognition.Source == config.RecognitionBridge {
		source = bridge
	}

	notifier := indicator.New(cfg.Indicator, logger)
	defer notifier.Wait()

	ctrlCfg := playback.Config{
		Logger:  logger,
		Engine:  align.New(alignParams(cfg.Alignment)),
		Source:  source,
		Status:  notifier,
		Metrics: metrics,
		Countdown: notifier.Countdown(
			cfg.Playback.CountdownSteps,
			time.Duration(cfg.Playback.CountdownStepMS)*time.Millisecond,
		),
		Options: playbackOptions(cfg.Playback),
	}
	if saver != nil {
		ctrlCfg.Persist = saver
	}
	ctrl := playback.NewController(ctrlCfg)

	hub := broadcast.New(ctrl, broadcast.Options{
		Interval: time.Duration(cfg.Broadcast.IntervalMS) * time.Millisecond,
		Logger:   logger,
		Metrics:  metrics,
	})

	httpServer := web.NewServer(web.Config{
		Addr:       cfg.Server.Listen,
		Logger:     logger,
		Metrics:    metrics,
		Commander:  ctrl,
		Hub:        hub,
		State:      ctrl,
		Recognizer: bridge,
		RateLimit:  cfg.Server.RateLimit,
		RateBurst:  cfg.Server.RateBurst,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(gctx) })
	if persist != nil {
		restoreState(gctx, ctrl, persist, logger)
	}

	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return httpServer.Serve(gctx, httpListener) })
	g.Go(func() error {
		return ipc.Serve(gctx, ipcListener, &controlHandler{ctrl: ctrl, hub: hub, metrics: metrics, logger: logger})
	})
	if grpcListener != nil {
		remoteServer := remote.NewServer(remote.Config{Logger: logger, Metrics: metrics, Commander: ctrl, Hub: hub})
		g.Go(func() error { return remoteServer.Serve(gctx, grpcListener) })
	}

	fmt.Fprintf(r.Stdout, "voiceprompt serving on http://%s (open it in a browser for voice mode)\n", httpListener.Addr())
	logger.Info("serve started",
		"http", httpListener.Addr().String(),
		"grpc", cfg.Remote.Enable,
		"recognition", cfg.Recognition.Source,
		"persist", cfg.Persist.Enable,
	)

	runErr := g.Wait()

	if saver != nil {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		saver.Schedule(ctrl.Snapshot().Record())
		if err := saver.Flush(flushCtx); err != nil {
			logger.Error("final save failed", "error", err.Error())
		}
		cancel()
	}

	if runErr != nil {
		logger.Error("serve failed", "error", runErr.Error())
		fmt.Fprintf(r.Stderr, "error: %v\n", runErr)
		return 1
	}
	logger.Info("serve stopped")
	return 0
}

func openPersistence(cfg config.PersistConfig, logger *slog.Logger) (store.Store, *store.Saver, error) {
	if !cfg.Enable {
		return nil, nil, nil
	}
	stateDir, err := logging.StateDir()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve state dir: %w", err)
	}
	path, err := store.ResolvePath(stateDir, cfg.Backend, cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg.Backend, path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	logger.Info("persistence enabled", "backend", cfg.Backend, "path", path)
	return st, store.NewSaver(st, time.Duration(cfg.DebounceMS)*time.Millisecond, logger), nil
}

func restoreState(ctx context.Context, ctrl *playback.Controller, st store.Store, logger *slog.Logger) {
	rec, ok, err := st.Load(ctx)
	switch {
	case err != nil:
		logger.Warn("load saved state failed", "error", err.Error())
	case !ok:
		logger.Debug("no saved state")
	default:
		if err := ctrl.Restore(ctx, rec); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("restore saved state failed", "error", err.Error())
		}
	}
}

func alignParams(cfg config.AlignmentConfig) align.Params {
	return align.Params{
		LookBehind:        cfg.LookBehind,
		LookAhead:         cfg.LookAhead,
		MaxSkips:          cfg.MaxSkips,
		MinMatches:        cfg.MinMatches,
		MinSignificant:    cfg.MinSignificant,
		SignificantLength: cfg.SignificantLength,
		AdvanceFloor:      cfg.AdvanceFloor,
		AdvancePerWord:    cfg.AdvancePerWord,
		Phonetic:          cfg.Phonetic,
	}
}

func playbackOptions(cfg config.PlaybackConfig) playback.Options {
	opts := playback.DefaultOptions()
	opts.Countdown = cfg.Countdown
	opts.EndRetryDelay = time.Duration(cfg.EndRetryMS) * time.Millisecond
	opts.ErrorRetryDelay = time.Duration(cfg.ErrorRetryMS) * time.Millisecond
	opts.InterimTailWords = cfg.InterimTailWords
	opts.InterimMinChars = cfg.InterimMinChars
	opts.Settings.ScrollMode = cfg.Mode
	opts.Settings.ScrollSpeed = cfg.Speed
	opts.Settings.Lang = cfg.Lang
	return opts
}
