// Package config loads the client configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config carries every tunable of the conversation client.
type Config struct {
	// Translation gateway.
	GatewayBaseURL string
	GatewayAPIKey  string
	GatewayTimeout time.Duration

	// Streaming speech-to-text endpoint.
	STTURL            string
	STTSampleRateHz   int
	PlaybackRateHz    int
	RecorderMax       time.Duration
	CaptureSetup      time.Duration

	// Orchestration knobs.
	ErrorBannerClear    time.Duration
	AutoReplyDelay      time.Duration
	HistoryContextTurns int
	AvatarHistoryTurns  int

	// Output preference: play synthesized translations out loud.
	SpeakTranslations bool

	// Local persistence.
	ProfileDBPath string

	// Optional Prometheus endpoint; empty disables the listener.
	MetricsAddr string
}

// LoadFromEnv reads OMNITALK_* environment variables, applying defaults and
// validating the result.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		GatewayBaseURL:      envOr("OMNITALK_GATEWAY_URL", "https://api.omnitalk.app"),
		GatewayAPIKey:       strings.TrimSpace(os.Getenv("OMNITALK_API_KEY")),
		GatewayTimeout:      envDurationOr("OMNITALK_GATEWAY_TIMEOUT", 30*time.Second),
		STTURL:              envOr("OMNITALK_STT_URL", "wss://api.omnitalk.app/stt"),
		STTSampleRateHz:     envIntOr("OMNITALK_STT_SAMPLE_RATE", 16000),
		PlaybackRateHz:      envIntOr("OMNITALK_PLAYBACK_SAMPLE_RATE", 24000),
		RecorderMax:         envDurationOr("OMNITALK_RECORDER_MAX_DURATION", 2*time.Minute),
		CaptureSetup:        envDurationOr("OMNITALK_CAPTURE_SETUP_TIMEOUT", 5*time.Second),
		ErrorBannerClear:    envDurationOr("OMNITALK_ERROR_CLEAR_AFTER", 3*time.Second),
		AutoReplyDelay:      envDurationOr("OMNITALK_AUTOREPLY_DELAY", 1500*time.Millisecond),
		HistoryContextTurns: envIntOr("OMNITALK_HISTORY_CONTEXT_TURNS", 3),
		AvatarHistoryTurns:  envIntOr("OMNITALK_AVATAR_HISTORY_TURNS", 5),
		SpeakTranslations:   envBoolOr("OMNITALK_SPEAK_TRANSLATIONS", true),
		ProfileDBPath:       envOr("OMNITALK_PROFILE_DB", defaultProfilePath()),
		MetricsAddr:         strings.TrimSpace(os.Getenv("OMNITALK_METRICS_ADDR")),
	}

	if strings.TrimSpace(cfg.GatewayBaseURL) == "" {
		return Config{}, fmt.Errorf("OMNITALK_GATEWAY_URL must not be empty")
	}
	if cfg.GatewayTimeout <= 0 {
		return Config{}, fmt.Errorf("OMNITALK_GATEWAY_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(cfg.STTURL) == "" {
		return Config{}, fmt.Errorf("OMNITALK_STT_URL must not be empty")
	}
	if cfg.STTSampleRateHz <= 0 {
		return Config{}, fmt.Errorf("OMNITALK_STT_SAMPLE_RATE must be > 0")
	}
	if cfg.PlaybackRateHz <= 0 {
		return Config{}, fmt.Errorf("OMNITALK_PLAYBACK_SAMPLE_RATE must be > 0")
	}
	if cfg.RecorderMax <= 0 {
		return Config{}, fmt.Errorf("OMNITALK_RECORDER_MAX_DURATION must be > 0")
	}
	if cfg.CaptureSetup <= 0 {
		return Config{}, fmt.Errorf("OMNITALK_CAPTURE_SETUP_TIMEOUT must be > 0")
	}
	if cfg.ErrorBannerClear <= 0 {
		return Config{}, fmt.Errorf("OMNITALK_ERROR_CLEAR_AFTER must be > 0")
	}
	if cfg.AutoReplyDelay < 0 {
		return Config{}, fmt.Errorf("OMNITALK_AUTOREPLY_DELAY must be >= 0")
	}
	if cfg.HistoryContextTurns <= 0 {
		return Config{}, fmt.Errorf("OMNITALK_HISTORY_CONTEXT_TURNS must be > 0")
	}
	if cfg.AvatarHistoryTurns <= 0 {
		return Config{}, fmt.Errorf("OMNITALK_AVATAR_HISTORY_TURNS must be > 0")
	}
	if strings.TrimSpace(cfg.ProfileDBPath) == "" {
		return Config{}, fmt.Errorf("OMNITALK_PROFILE_DB must not be empty")
	}

	return cfg, nil
}

func defaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "omnitalk.db"
	}
	return filepath.Join(home, ".omnitalk", "omnitalk.db")
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
