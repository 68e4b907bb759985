package chatsocket

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config controls how the SDK connects.
type Config struct {
	URL     string `env:"CHATSOCKET_URL" envDefault:"ws://localhost:3001/ws"`
	RESTURL string `env:"CHATSOCKET_REST_URL" envDefault:"http://localhost:3001/api/"`
	Token   string `env:"CHATSOCKET_TOKEN"` // bearer token for the handshake

	ConnectTimeout time.Duration `env:"CHATSOCKET_CONNECT_TIMEOUT" envDefault:"20s"`
	ReadTimeout    time.Duration `env:"CHATSOCKET_READ_TIMEOUT" envDefault:"0s"`
	WriteTimeout   time.Duration `env:"CHATSOCKET_WRITE_TIMEOUT" envDefault:"10s"`

	AutoReconnect     bool          `env:"CHATSOCKET_RECONNECT" envDefault:"true"`
	ReconnectAttempts int           `env:"CHATSOCKET_RECONNECT_ATTEMPTS" envDefault:"5"`
	ReconnectDelay    time.Duration `env:"CHATSOCKET_RECONNECT_DELAY" envDefault:"1s"`
	ReconnectDelayMax time.Duration `env:"CHATSOCKET_RECONNECT_DELAY_MAX" envDefault:"5s"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:               "ws://localhost:3001/ws",
		RESTURL:           "http://localhost:3001/api/",
		ConnectTimeout:    20 * time.Second,
		WriteTimeout:      10 * time.Second,
		AutoReconnect:     true,
		ReconnectAttempts: 5,
		ReconnectDelay:    time.Second,
		ReconnectDelayMax: 5 * time.Second,
	}
}

// LoadConfig reads CHATSOCKET_* environment variables on top of the defaults.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, WrapError(ErrorInvalidConfig, "parse env", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration that cannot produce a working connection.
func (c Config) Validate() error {
	if c.URL == "" {
		return NewError(ErrorInvalidConfig, "empty URL")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return WrapError(ErrorInvalidConfig, "invalid URL", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return NewError(ErrorInvalidConfig, fmt.Sprintf("unsupported URL scheme %q", u.Scheme))
	}
	if c.ReconnectAttempts < 0 {
		return NewError(ErrorInvalidConfig, "negative reconnect attempts")
	}
	if c.ReconnectDelayMax > 0 && c.ReconnectDelayMax < c.ReconnectDelay {
		return NewError(ErrorInvalidConfig, "reconnect delay max below initial delay")
	}
	return nil
}

// backoff returns the wait before reconnect attempt n (1-based): linear
// growth from ReconnectDelay, capped at ReconnectDelayMax.
func (c Config) backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := time.Duration(n) * c.ReconnectDelay
	if c.ReconnectDelayMax > 0 && d > c.ReconnectDelayMax {
		d = c.ReconnectDelayMax
	}
	return d
}
