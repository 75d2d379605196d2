// Package config resolves, parses, validates, and defaults voiceprompt configuration.
package config

// Config is the fully materialized runtime configuration used by voiceprompt.
type Config struct {
	Server      ServerConfig
	Remote      RemoteConfig
	Playback    PlaybackConfig
	Alignment   AlignmentConfig
	Recognition RecognitionConfig
	Broadcast   BroadcastConfig
	Persist     PersistConfig
	Indicator   IndicatorConfig
	Audio       AudioConfig
	Log         LogConfig
}

// ServerConfig controls the HTTP listener (recognizer bridge, WebSocket remote, metrics).
type ServerConfig struct {
	Listen    string
	RateLimit float64
	RateBurst int
}

// RemoteConfig controls the gRPC remote-control listener.
type RemoteConfig struct {
	Enable bool
	Listen string
}

// PlaybackConfig holds the initial settings and controller timing.
type PlaybackConfig struct {
	Mode             string
	Speed            int
	Lang             string
	Countdown        bool
	CountdownSteps   int
	CountdownStepMS  int
	EndRetryMS       int
	ErrorRetryMS     int
	InterimTailWords int
	InterimMinChars  int
}

// AlignmentConfig overrides the alignment engine tuning constants.
type AlignmentConfig struct {
	LookBehind        int
	LookAhead         int
	MaxSkips          int
	MinMatches        int
	MinSignificant    int
	SignificantLength int
	AdvanceFloor      int
	AdvancePerWord    float64
	Phonetic          bool
}

// RecognitionConfig selects the speech recognition source.
type RecognitionConfig struct {
	Source string
}

// BroadcastConfig controls the periodic state push.
type BroadcastConfig struct {
	IntervalMS int
}

// PersistConfig controls where and how often state is saved.
type PersistConfig struct {
	Enable     bool
	Backend    string
	Path       string
	DebounceMS int
}

// IndicatorConfig controls desktop notifications and countdown cues.
type IndicatorConfig struct {
	Enable         bool
	Backend        string
	DesktopAppName string
	SoundEnable    bool
	ErrorTimeoutMS int
}

// AudioConfig names the input source doctor checks for voice mode.
type AudioConfig struct {
	Input string
}

// LogConfig controls the runtime log level.
type LogConfig struct {
	Level string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

const (
	RecognitionBridge = "bridge"
	RecognitionNone   = "none"

	IndicatorHypr    = "hypr"
	IndicatorDesktop = "desktop"
)
