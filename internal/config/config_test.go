package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "HOST", "DATABASE_URL", "JOB_CANCEL_MAX_WAIT", "JOB_HISTORY_RETENTION", "JOB_CANCEL_POLL_INTERVAL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Addr() != ":8080" {
		t.Errorf("Addr() = %q, want %q", cfg.Addr(), ":8080")
	}
	if cfg.Jobs.PollInterval != time.Second {
		t.Errorf("PollInterval = %s, want 1s", cfg.Jobs.PollInterval)
	}
	if cfg.Jobs.MaxWait != 0 {
		t.Errorf("MaxWait = %s, want unbounded", cfg.Jobs.MaxWait)
	}
	if cfg.Jobs.HistoryRetention != 0 {
		t.Errorf("HistoryRetention = %s, want disabled", cfg.Jobs.HistoryRetention)
	}
	if cfg.Database.URL != "" {
		t.Errorf("Database.URL = %q, want empty", cfg.Database.URL)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"go duration", "250ms", 250 * time.Millisecond},
		{"plain seconds", "90", 90 * time.Second},
		{"garbage", "soon", 5 * time.Second},
		{"unset", "", 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if got := getEnvAsDuration("TEST_DURATION", 5*time.Second); got != tt.want {
				t.Errorf("getEnvAsDuration(%q) = %s, want %s", tt.value, got, tt.want)
			}
		})
	}
}
