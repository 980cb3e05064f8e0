package session

import (
	"time"

	"github.com/benbjohnson/clock"
)

const (
	// DefaultInactivityThreshold is how long a session may sit idle before it
	// is forced out.
	DefaultInactivityThreshold = 30 * time.Minute

	// DefaultMonitorInterval is how often the inactivity monitor wakes up.
	DefaultMonitorInterval = time.Minute
)

// Config holds session service configuration.
type Config struct {
	InactivityThreshold time.Duration `toml:"inactivity-threshold"`
	MonitorInterval     time.Duration `toml:"monitor-interval"`

	// Clock is swapped for a mock in tests. Nil means the wall clock.
	Clock clock.Clock `toml:"-"`
}

// NewConfig returns a new instance of Config with defaults.
func NewConfig() Config {
	return Config{
		InactivityThreshold: DefaultInactivityThreshold,
		MonitorInterval:     DefaultMonitorInterval,
	}
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.InactivityThreshold <= 0 {
		out.InactivityThreshold = DefaultInactivityThreshold
	}
	if out.MonitorInterval <= 0 {
		out.MonitorInterval = DefaultMonitorInterval
	}
	if out.Clock == nil {
		out.Clock = clock.New()
	}
	return out
}
