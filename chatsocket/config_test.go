package chatsocket

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.ReconnectAttempts != 5 || cfg.ConnectTimeout != 20*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestBackoffLinearCapped(t *testing.T) {
	cfg := DefaultConfig()
	want := []time.Duration{
		time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second,
	}
	for i, w := range want {
		if got := cfg.backoff(i + 1); got != w {
			t.Fatalf("backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
	if got := cfg.backoff(0); got != time.Second {
		t.Fatalf("backoff(0) = %v", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"wss", func(c *Config) { c.URL = "wss://chat.example.com/ws" }, true},
		{"http upgrade", func(c *Config) { c.URL = "http://localhost:3001/ws" }, true},
		{"empty url", func(c *Config) { c.URL = "" }, false},
		{"bad scheme", func(c *Config) { c.URL = "ftp://localhost" }, false},
		{"negative attempts", func(c *Config) { c.ReconnectAttempts = -1 }, false},
		{"max below delay", func(c *Config) { c.ReconnectDelay = 3 * time.Second; c.ReconnectDelayMax = time.Second }, false},
		{"no cap", func(c *Config) { c.ReconnectDelayMax = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatalf("expected error")
				}
				if !errors.Is(err, NewError(ErrorInvalidConfig, "")) {
					t.Fatalf("wrong code: %v", err)
				}
			}
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("CHATSOCKET_URL", "wss://chat.example.com/ws")
	t.Setenv("CHATSOCKET_TOKEN", "abc")
	t.Setenv("CHATSOCKET_RECONNECT_ATTEMPTS", "2")
	t.Setenv("CHATSOCKET_RECONNECT_DELAY", "250ms")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.URL != "wss://chat.example.com/ws" || cfg.Token != "abc" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.ReconnectAttempts != 2 || cfg.ReconnectDelay != 250*time.Millisecond {
		t.Fatalf("unexpected reconnect settings: %+v", cfg)
	}
	if cfg.ReconnectDelayMax != 5*time.Second || !cfg.AutoReconnect {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfigRejectsBadEnv(t *testing.T) {
	t.Setenv("CHATSOCKET_RECONNECT_ATTEMPTS", "many")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected parse error")
	}

	t.Setenv("CHATSOCKET_RECONNECT_ATTEMPTS", "1")
	t.Setenv("CHATSOCKET_URL", "ftp://nope")
	_, err := LoadConfig()
	var ce *ChatError
	if !errors.As(err, &ce) || ce.Code != ErrorInvalidConfig {
		t.Fatalf("expected invalid config, got %v", err)
	}
}
