package helpers

import (
	"time"

	"github.com/MostafaGamal7/parking-realtime/internal/config"
)

// NewTestConfig returns a configuration pointing at b with short reconnect
// delays
func NewTestConfig(b *Backend) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.LogLevel = "debug"
	cfg.Reconnect.BaseDelay = 10 * time.Millisecond
	cfg.Reconnect.MaxDelay = 50 * time.Millisecond
	cfg.Reconnect.Jitter = 5 * time.Millisecond
	cfg.APITimeout = time.Second
	if b != nil {
		cfg.WebSocketURL = b.WebSocketURL()
		cfg.APIURL = b.APIURL()
	}
	return cfg
}
