package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:    "127.0.0.1:7420",
			RateLimit: 10,
			RateBurst: 5,
		},
		Remote: RemoteConfig{
			Enable: false,
			Listen: "127.0.0.1:7421",
		},
		Playback: PlaybackConfig{
			Mode:             "voice",
			Speed:            3,
			Lang:             "en-US",
			Countdown:        true,
			CountdownSteps:   3,
			CountdownStepMS:  800,
			EndRetryMS:       100,
			ErrorRetryMS:     500,
			InterimTailWords: 8,
			InterimMinChars:  5,
		},
		Alignment: AlignmentConfig{
			LookBehind:        2,
			LookAhead:         30,
			MaxSkips:          3,
			MinMatches:        2,
			MinSignificant:    1,
			SignificantLength: 4,
			AdvanceFloor:      8,
			AdvancePerWord:    1.5,
		},
		Recognition: RecognitionConfig{Source: RecognitionBridge},
		Broadcast:   BroadcastConfig{IntervalMS: 500},
		Persist: PersistConfig{
			Enable:     true,
			Backend:    "file",
			DebounceMS: 2000,
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        IndicatorHypr,
			DesktopAppName: "voiceprompt",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Audio: AudioConfig{Input: "default"},
		Log:   LogConfig{Level: "info"},
	}
}
