package config

import (
	"testing"
	"time"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.GatewayBaseURL == "" {
		t.Error("expected default gateway URL")
	}
	if cfg.STTSampleRateHz != 16000 {
		t.Errorf("STTSampleRateHz = %d, want 16000", cfg.STTSampleRateHz)
	}
	if cfg.PlaybackRateHz != 24000 {
		t.Errorf("PlaybackRateHz = %d, want 24000", cfg.PlaybackRateHz)
	}
	if cfg.HistoryContextTurns != 3 {
		t.Errorf("HistoryContextTurns = %d, want 3", cfg.HistoryContextTurns)
	}
	if cfg.AvatarHistoryTurns != 5 {
		t.Errorf("AvatarHistoryTurns = %d, want 5", cfg.AvatarHistoryTurns)
	}
	if cfg.ErrorBannerClear != 3*time.Second {
		t.Errorf("ErrorBannerClear = %v, want 3s", cfg.ErrorBannerClear)
	}
	if !cfg.SpeakTranslations {
		t.Error("SpeakTranslations should default to true")
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("OMNITALK_GATEWAY_URL", "http://localhost:9090")
	t.Setenv("OMNITALK_AUTOREPLY_DELAY", "250ms")
	t.Setenv("OMNITALK_SPEAK_TRANSLATIONS", "off")
	t.Setenv("OMNITALK_HISTORY_CONTEXT_TURNS", "7")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.GatewayBaseURL != "http://localhost:9090" {
		t.Errorf("GatewayBaseURL = %q", cfg.GatewayBaseURL)
	}
	if cfg.AutoReplyDelay != 250*time.Millisecond {
		t.Errorf("AutoReplyDelay = %v, want 250ms", cfg.AutoReplyDelay)
	}
	if cfg.SpeakTranslations {
		t.Error("SpeakTranslations should be off")
	}
	if cfg.HistoryContextTurns != 7 {
		t.Errorf("HistoryContextTurns = %d, want 7", cfg.HistoryContextTurns)
	}
}

func TestLoadFromEnvInvalid(t *testing.T) {
	tests := []struct {
		key string
		val string
	}{
		{"OMNITALK_STT_SAMPLE_RATE", "-1"},
		{"OMNITALK_PLAYBACK_SAMPLE_RATE", "0"},
		{"OMNITALK_HISTORY_CONTEXT_TURNS", "0"},
		{"OMNITALK_AVATAR_HISTORY_TURNS", "-2"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestEnvHelpersIgnoreGarbage(t *testing.T) {
	t.Setenv("OMNITALK_GATEWAY_TIMEOUT", "not-a-duration")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.GatewayTimeout != 30*time.Second {
		t.Errorf("garbage duration should fall back to default, got %v", cfg.GatewayTimeout)
	}
}
