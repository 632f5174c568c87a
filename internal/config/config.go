package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/MostafaGamal7/parking-realtime/pkg/api"
)

type (
	// Config holds configuration settings for the realtime client and the
	// gatewatch CLI
	Config struct {
		// Endpoints
		WebSocketURL string
		APIURL       string
		TokenFile    string
		LogLevel     string

		// Event stream
		Reconnect        api.ReconnectConfig
		LivenessInterval time.Duration

		// REST
		APITimeout time.Duration
	}
)

const (
	DefaultWebSocketURL = "ws://localhost:3000/api/v1/ws"
	DefaultAPIURL       = "http://localhost:3000/api/v1"

	DefaultMaxAttempts      = 10
	DefaultBaseDelay        = 1000 * time.Millisecond
	DefaultMaxDelay         = 30000 * time.Millisecond
	DefaultJitter           = 1000 * time.Millisecond
	DefaultMultiplier       = 1.5
	DefaultBackoffType      = api.BackoffTypeExponential
	DefaultLivenessInterval = 5 * time.Second
	DefaultAPITimeout       = 10 * time.Second

	MaxAttempts      = 1000
	MaxDelay         = 10 * time.Minute
	MaxLivenessCheck = time.Hour
	MaxAPITimeout    = 5 * time.Minute
)

var (
	ErrInvalidWebSocketURL = errors.New("invalid websocket URL")
	ErrInvalidAPIURL       = errors.New("invalid API URL")
	ErrInvalidMaxAttempts  = errors.New(
		"reconnect max attempts must be positive",
	)
	ErrInvalidBaseDelay = errors.New("reconnect base delay must be positive")
	ErrInvalidMaxDelay  = errors.New(
		"reconnect max delay must be >= reconnect base delay",
	)
	ErrInvalidJitter     = errors.New("reconnect jitter cannot be negative")
	ErrInvalidMultiplier = errors.New(
		"reconnect multiplier must be at least 1",
	)
	ErrInvalidBackoffType = errors.New("invalid reconnect backoff type")
	ErrInvalidLiveness    = errors.New("liveness interval must be positive")
	ErrInvalidAPITimeout  = errors.New("API timeout must be positive")
)

// NewDefaultConfig creates a configuration matching the backend's standard
// local deployment and the reference reconnection policy
func NewDefaultConfig() *Config {
	return &Config{
		WebSocketURL: DefaultWebSocketURL,
		APIURL:       DefaultAPIURL,
		LogLevel:     "info",
		Reconnect: api.ReconnectConfig{
			MaxAttempts: DefaultMaxAttempts,
			BaseDelay:   DefaultBaseDelay,
			MaxDelay:    DefaultMaxDelay,
			Jitter:      DefaultJitter,
			Multiplier:  DefaultMultiplier,
			BackoffType: DefaultBackoffType,
		},
		LivenessInterval: DefaultLivenessInterval,
		APITimeout:       DefaultAPITimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Durations are given in milliseconds. Returns an error if any env var
// cannot be parsed
func (c *Config) LoadFromEnv() error {
	if wsURL := os.Getenv("WS_URL"); wsURL != "" {
		c.WebSocketURL = wsURL
	}
	if apiURL := os.Getenv("API_URL"); apiURL != "" {
		c.APIURL = apiURL
	}
	if tokenFile := os.Getenv("TOKEN_FILE"); tokenFile != "" {
		c.TokenFile = tokenFile
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if backoffType := os.Getenv("RECONNECT_BACKOFF_TYPE"); backoffType != "" {
		c.Reconnect.BackoffType = backoffType
	}

	if err := loadEnvInt(
		"RECONNECT_MAX_ATTEMPTS", &c.Reconnect.MaxAttempts, 0, MaxAttempts,
	); err != nil {
		return err
	}
	if err := loadEnvMillis(
		"RECONNECT_BASE_DELAY", &c.Reconnect.BaseDelay, MaxDelay,
	); err != nil {
		return err
	}
	if err := loadEnvMillis(
		"RECONNECT_MAX_DELAY", &c.Reconnect.MaxDelay, MaxDelay,
	); err != nil {
		return err
	}
	if err := loadEnvMillis(
		"RECONNECT_JITTER", &c.Reconnect.Jitter, MaxDelay,
	); err != nil {
		return err
	}
	if err := loadEnvMillis(
		"LIVENESS_INTERVAL", &c.LivenessInterval, MaxLivenessCheck,
	); err != nil {
		return err
	}
	if err := loadEnvMillis(
		"API_TIMEOUT", &c.APITimeout, MaxAPITimeout,
	); err != nil {
		return err
	}

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if err := validateURL(c.WebSocketURL, "ws", "wss"); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWebSocketURL, err)
	}
	if err := validateURL(c.APIURL, "http", "https"); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAPIURL, err)
	}

	r := c.Reconnect
	if r.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if r.BaseDelay <= 0 {
		return ErrInvalidBaseDelay
	}
	if r.MaxDelay < r.BaseDelay {
		return ErrInvalidMaxDelay
	}
	if r.Jitter < 0 {
		return ErrInvalidJitter
	}
	if r.Multiplier < 1 {
		return ErrInvalidMultiplier
	}

	switch r.BackoffType {
	case api.BackoffTypeFixed, api.BackoffTypeLinear,
		api.BackoffTypeExponential:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidBackoffType, r.BackoffType)
	}

	if c.LivenessInterval <= 0 {
		return ErrInvalidLiveness
	}
	if c.APITimeout <= 0 {
		return ErrInvalidAPITimeout
	}
	return nil
}

func validateURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%q: expected scheme %v with host", raw, schemes)
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max]
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

func loadEnvMillis(key string, dst *time.Duration, max time.Duration) error {
	ms := int64(-1)
	if err := loadEnvInt(key, &ms, -1, max.Milliseconds()); err != nil {
		return err
	}
	if ms >= 0 {
		*dst = time.Duration(ms) * time.Millisecond
	}
	return nil
}
