package scheduler

import (
	"time"

	"github.com/smallbiznis/orderdesk/internal/config"
)

// Config controls the aggregation cadence.
type Config struct {
	RunInterval time.Duration
	AlignToHour bool
	JobTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		AlignToHour: true,
		JobTimeout:  2 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.Scheduler.RunInterval,
		AlignToHour: cfg.Scheduler.AlignToHour,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.JobTimeout > c.RunInterval {
		c.JobTimeout = c.RunInterval
	}
	return c
}

// lockTTL keeps the distributed lease shorter than one interval so the next
// tick on any instance can take it.
func (c Config) lockTTL() time.Duration {
	ttl := c.RunInterval * 9 / 10
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

// firstDelay returns how long to wait before the first tick.
func (c Config) firstDelay(now time.Time) time.Duration {
	if !c.AlignToHour {
		return c.RunInterval
	}
	return now.Truncate(time.Hour).Add(time.Hour).Sub(now)
}
