package config

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if err := validateListen("server.listen", cfg.Server.Listen); err != nil {
		return nil, err
	}
	if cfg.Server.RateLimit <= 0 {
		return nil, fmt.Errorf("server.rate_limit must be > 0")
	}
	if cfg.Server.RateBurst <= 0 {
		return nil, fmt.Errorf("server.rate_burst must be > 0")
	}
	if cfg.Remote.Enable {
		if err := validateListen("remote.listen", cfg.Remote.Listen); err != nil {
			return nil, err
		}
		if strings.TrimSpace(cfg.Remote.Listen) == strings.TrimSpace(cfg.Server.Listen) {
			return nil, fmt.Errorf("remote.listen must differ from server.listen")
		}
	}

	playbackWarnings, err := validatePlayback(cfg.Playback)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, playbackWarnings...)

	alignmentWarnings, err := validateAlignment(cfg.Alignment)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, alignmentWarnings...)

	switch strings.ToLower(strings.TrimSpace(cfg.Recognition.Source)) {
	case RecognitionBridge:
	case RecognitionNone:
		if strings.EqualFold(cfg.Playback.Mode, "voice") {
			warnings = append(warnings, Warning{Message: "recognition.source=none with playback.mode=voice; voice mode will report unsupported"})
		}
	default:
		return nil, fmt.Errorf("recognition.source must be one of: bridge, none")
	}

	if cfg.Broadcast.IntervalMS <= 0 {
		return nil, fmt.Errorf("broadcast.interval_ms must be > 0")
	}
	if cfg.Broadcast.IntervalMS < 100 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("broadcast.interval_ms=%d is very short; remote clients may fall behind", cfg.Broadcast.IntervalMS)})
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Persist.Backend)) {
	case "file", "sqlite":
	default:
		return nil, fmt.Errorf("persist.backend must be one of: file, sqlite")
	}
	if cfg.Persist.DebounceMS < 0 {
		return nil, fmt.Errorf("persist.debounce_ms must be >= 0")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != IndicatorHypr && backend != IndicatorDesktop {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == IndicatorDesktop && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if strings.TrimSpace(cfg.Audio.Input) == "" {
		return nil, fmt.Errorf("audio.input must not be empty")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.Log.Level))); err != nil {
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	return warnings, nil
}

func validateListen(key, addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s must be host:port: %w", key, err)
	}
	return nil
}

func validatePlayback(p PlaybackConfig) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch strings.ToLower(strings.TrimSpace(p.Mode)) {
	case "voice", "auto":
	default:
		return nil, fmt.Errorf("playback.mode must be one of: voice, auto")
	}
	if p.Speed < 1 || p.Speed > 10 {
		return nil, fmt.Errorf("playback.speed must be between 1 and 10")
	}
	if strings.TrimSpace(p.Lang) == "" {
		return nil, fmt.Errorf("playback.lang must not be empty")
	}
	if p.Countdown {
		if p.CountdownSteps <= 0 {
			return nil, fmt.Errorf("playback.countdown_steps must be > 0 when playback.countdown=true")
		}
		if p.CountdownStepMS <= 0 {
			return nil, fmt.Errorf("playback.countdown_step_ms must be > 0 when playback.countdown=true")
		}
	}
	if p.EndRetryMS <= 0 {
		return nil, fmt.Errorf("playback.end_retry_ms must be > 0")
	}
	if p.ErrorRetryMS <= 0 {
		return nil, fmt.Errorf("playback.error_retry_ms must be > 0")
	}
	if p.InterimTailWords <= 0 {
		return nil, fmt.Errorf("playback.interim_tail_words must be > 0")
	}
	if p.InterimMinChars < 0 {
		return nil, fmt.Errorf("playback.interim_min_chars must be >= 0")
	}
	if p.ErrorRetryMS < 100 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("playback.error_retry_ms=%d may spin on a failing recognizer", p.ErrorRetryMS)})
	}
	return warnings, nil
}

func validateAlignment(a AlignmentConfig) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if a.LookBehind < 0 {
		return nil, fmt.Errorf("alignment.look_behind must be >= 0")
	}
	if a.LookAhead <= 0 {
		return nil, fmt.Errorf("alignment.look_ahead must be > 0")
	}
	if a.MaxSkips < 0 {
		return nil, fmt.Errorf("alignment.max_skips must be >= 0")
	}
	if a.MinMatches < 1 {
		return nil, fmt.Errorf("alignment.min_matches must be >= 1")
	}
	if a.MinSignificant < 0 {
		return nil, fmt.Errorf("alignment.min_significant must be >= 0")
	}
	if a.SignificantLength < 1 {
		return nil, fmt.Errorf("alignment.significant_length must be >= 1")
	}
	if a.AdvanceFloor < 1 {
		return nil, fmt.Errorf("alignment.advance_floor must be >= 1")
	}
	if a.AdvancePerWord <= 0 {
		return nil, fmt.Errorf("alignment.advance_per_word must be > 0")
	}
	if a.MinMatches == 1 {
		warnings = append(warnings, Warning{Message: "alignment.min_matches=1 lets a single heard word move the cursor"})
	}
	if a.Phonetic {
		warnings = append(warnings, Warning{Message: "alignment.phonetic is enabled; similar-sounding words will also match"})
	}
	return warnings, nil
}
