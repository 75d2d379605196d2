package config

import (
	"fmt"
	"strings"
)

// fileConfig is the on-disk shape shared by JSONC and YAML. Pointer fields overlay the
// defaults only when present.
type fileConfig struct {
	Server      *fileServer      `json:"server" yaml:"server"`
	Remote      *fileRemote      `json:"remote" yaml:"remote"`
	Playback    *filePlayback    `json:"playback" yaml:"playback"`
	Alignment   *fileAlignment   `json:"alignment" yaml:"alignment"`
	Recognition *fileRecognition `json:"recognition" yaml:"recognition"`
	Broadcast   *fileBroadcast   `json:"broadcast" yaml:"broadcast"`
	Persist     *filePersist     `json:"persist" yaml:"persist"`
	Indicator   *fileIndicator   `json:"indicator" yaml:"indicator"`
	Audio       *fileAudio       `json:"audio" yaml:"audio"`
	Log         *fileLog         `json:"log" yaml:"log"`
}

type fileServer struct {
	Listen    *string  `json:"listen" yaml:"listen"`
	RateLimit *float64 `json:"rate_limit" yaml:"rate_limit"`
	RateBurst *int     `json:"rate_burst" yaml:"rate_burst"`
}

type fileRemote struct {
	Enable *bool   `json:"enable" yaml:"enable"`
	Listen *string `json:"listen" yaml:"listen"`
}

type filePlayback struct {
	Mode             *string `json:"mode" yaml:"mode"`
	Speed            *int    `json:"speed" yaml:"speed"`
	Lang             *string `json:"lang" yaml:"lang"`
	Countdown        *bool   `json:"countdown" yaml:"countdown"`
	CountdownSteps   *int    `json:"countdown_steps" yaml:"countdown_steps"`
	CountdownStepMS  *int    `json:"countdown_step_ms" yaml:"countdown_step_ms"`
	EndRetryMS       *int    `json:"end_retry_ms" yaml:"end_retry_ms"`
	ErrorRetryMS     *int    `json:"error_retry_ms" yaml:"error_retry_ms"`
	InterimTailWords *int    `json:"interim_tail_words" yaml:"interim_tail_words"`
	InterimMinChars  *int    `json:"interim_min_chars" yaml:"interim_min_chars"`
}

type fileAlignment struct {
	LookBehind        *int     `json:"look_behind" yaml:"look_behind"`
	LookAhead         *int     `json:"look_ahead" yaml:"look_ahead"`
	MaxSkips          *int     `json:"max_skips" yaml:"max_skips"`
	MinMatches        *int     `json:"min_matches" yaml:"min_matches"`
	MinSignificant    *int     `json:"min_significant" yaml:"min_significant"`
	SignificantLength *int     `json:"significant_length" yaml:"significant_length"`
	AdvanceFloor      *int     `json:"advance_floor" yaml:"advance_floor"`
	AdvancePerWord    *float64 `json:"advance_per_word" yaml:"advance_per_word"`
	Phonetic          *bool    `json:"phonetic" yaml:"phonetic"`
}

type fileRecognition struct {
	Source *string `json:"source" yaml:"source"`
}

type fileBroadcast struct {
	IntervalMS *int `json:"interval_ms" yaml:"interval_ms"`
}

type filePersist struct {
	Enable     *bool   `json:"enable" yaml:"enable"`
	Backend    *string `json:"backend" yaml:"backend"`
	Path       *string `json:"path" yaml:"path"`
	DebounceMS *int    `json:"debounce_ms" yaml:"debounce_ms"`
}

type fileIndicator struct {
	Enable         *bool   `json:"enable" yaml:"enable"`
	Backend        *string `json:"backend" yaml:"backend"`
	DesktopAppName *string `json:"desktop_app_name" yaml:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable" yaml:"sound_enable"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms" yaml:"error_timeout_ms"`
}

type fileAudio struct {
	Input *string `json:"input" yaml:"input"`
}

type fileLog struct {
	Level *string `json:"level" yaml:"level"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func (payload fileConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if s := payload.Server; s != nil {
		setTrimmed(&cfg.Server.Listen, s.Listen)
		set(&cfg.Server.RateLimit, s.RateLimit)
		set(&cfg.Server.RateBurst, s.RateBurst)
	}

	if r := payload.Remote; r != nil {
		set(&cfg.Remote.Enable, r.Enable)
		setTrimmed(&cfg.Remote.Listen, r.Listen)
	}

	if p := payload.Playback; p != nil {
		if p.Mode != nil {
			cfg.Playback.Mode = strings.ToLower(strings.TrimSpace(*p.Mode))
		}
		set(&cfg.Playback.Speed, p.Speed)
		setTrimmed(&cfg.Playback.Lang, p.Lang)
		set(&cfg.Playback.Countdown, p.Countdown)
		set(&cfg.Playback.CountdownSteps, p.CountdownSteps)
		set(&cfg.Playback.CountdownStepMS, p.CountdownStepMS)
		set(&cfg.Playback.EndRetryMS, p.EndRetryMS)
		set(&cfg.Playback.ErrorRetryMS, p.ErrorRetryMS)
		set(&cfg.Playback.InterimTailWords, p.InterimTailWords)
		set(&cfg.Playback.InterimMinChars, p.InterimMinChars)
	}

	if a := payload.Alignment; a != nil {
		set(&cfg.Alignment.LookBehind, a.LookBehind)
		set(&cfg.Alignment.LookAhead, a.LookAhead)
		set(&cfg.Alignment.MaxSkips, a.MaxSkips)
		set(&cfg.Alignment.MinMatches, a.MinMatches)
		set(&cfg.Alignment.MinSignificant, a.MinSignificant)
		set(&cfg.Alignment.SignificantLength, a.SignificantLength)
		set(&cfg.Alignment.AdvanceFloor, a.AdvanceFloor)
		set(&cfg.Alignment.AdvancePerWord, a.AdvancePerWord)
		set(&cfg.Alignment.Phonetic, a.Phonetic)
	}

	if r := payload.Recognition; r != nil && r.Source != nil {
		cfg.Recognition.Source = strings.ToLower(strings.TrimSpace(*r.Source))
	}

	if b := payload.Broadcast; b != nil {
		set(&cfg.Broadcast.IntervalMS, b.IntervalMS)
	}

	if p := payload.Persist; p != nil {
		set(&cfg.Persist.Enable, p.Enable)
		if p.Backend != nil {
			cfg.Persist.Backend = strings.ToLower(strings.TrimSpace(*p.Backend))
		}
		setTrimmed(&cfg.Persist.Path, p.Path)
		set(&cfg.Persist.DebounceMS, p.DebounceMS)
		if !cfg.Persist.Enable && p.Path != nil {
			warnings = append(warnings, Warning{Message: "persist.path is set but persist.enable=false"})
		}
	}

	if i := payload.Indicator; i != nil {
		set(&cfg.Indicator.Enable, i.Enable)
		setTrimmed(&cfg.Indicator.Backend, i.Backend)
		setTrimmed(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		set(&cfg.Indicator.SoundEnable, i.SoundEnable)
		set(&cfg.Indicator.ErrorTimeoutMS, i.ErrorTimeoutMS)
	}

	if a := payload.Audio; a != nil {
		setTrimmed(&cfg.Audio.Input, a.Input)
	}

	if l := payload.Log; l != nil && l.Level != nil {
		level := strings.ToLower(strings.TrimSpace(*l.Level))
		if level == "" {
			return nil, fmt.Errorf("log.level must not be empty")
		}
		cfg.Log.Level = level
	}

	return warnings, nil
}
