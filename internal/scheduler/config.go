package scheduler

import (
	"time"

	"github.com/smallbiznis/fieldbook/internal/config"
)

const JobMarkOverdue = "mark_overdue"

// Config controls scheduler intervals.
type Config struct {
	Enabled     bool
	RunInterval time.Duration
	JobTimeout  time.Duration
	// EnabledJobs limits which jobs run. Empty means all.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		RunInterval: time.Hour,
		JobTimeout:  2 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:     cfg.Jobs.Enabled,
		RunInterval: cfg.Jobs.RunInterval,
		JobTimeout:  cfg.Jobs.JobTimeout,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
