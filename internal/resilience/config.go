package resilience

import (
	"time"

	"github.com/basedlsg/Nemo-Time-sub000/internal/config"
)

// PolicyFromConfig builds a retry Policy, keeping defaults for unset values.
func PolicyFromConfig(cfg config.RetryConfig) Policy {
	p := DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialBackoffMs > 0 {
		p.InitialBackoff = time.Duration(cfg.InitialBackoffMs) * time.Millisecond
	}
	if cfg.MaxBackoffMs > 0 {
		p.MaxBackoff = time.Duration(cfg.MaxBackoffMs) * time.Millisecond
	}
	return p
}

// BreakerConfigFromConfig builds a BreakerConfig, keeping defaults for unset
// values.
func BreakerConfigFromConfig(cfg config.CircuitConfig) BreakerConfig {
	c := DefaultBreakerConfig()
	if cfg.FailureThreshold > 0 {
		c.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.ResetTimeoutSecs > 0 {
		c.ResetTimeout = time.Duration(cfg.ResetTimeoutSecs) * time.Second
	}
	return c
}
