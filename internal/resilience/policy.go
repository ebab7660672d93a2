package resilience

import (
	"time"

	"github.com/ziadkadry99/docchat/internal/config"
)

// Policy bounds retries and the per-operation circuit breaker.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	BreakerEnabled      bool
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenMaxCalls    uint32
}

// DefaultPolicy returns three attempts with short exponential backoff and a
// breaker that opens after five consecutive failures.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,

		BreakerEnabled:      true,
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenMaxCalls:    1,
	}
}

// PolicyFromConfig converts the resilience config section. MaxRetries counts
// attempts after the first one; a zero breaker threshold disables the breaker.
func PolicyFromConfig(c config.ResilienceConfig) Policy {
	p := DefaultPolicy()
	p.MaxAttempts = c.MaxRetries + 1
	if c.InitialBackoff > 0 {
		p.InitialBackoff = c.InitialBackoff
	}
	if c.MaxBackoff > 0 {
		p.MaxBackoff = c.MaxBackoff
	}
	p.BreakerEnabled = c.BreakerFailures > 0
	p.ConsecutiveFailures = c.BreakerFailures
	if c.BreakerOpenReset > 0 {
		p.OpenTimeout = c.BreakerOpenReset
	}
	return p
}

func (p Policy) normalize() Policy {
	out := p
	def := DefaultPolicy()

	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 1
	}
	if out.InitialBackoff < 0 {
		out.InitialBackoff = 0
	}
	if out.MaxBackoff < out.InitialBackoff {
		out.MaxBackoff = out.InitialBackoff
	}
	if out.Multiplier < 1 {
		out.Multiplier = def.Multiplier
	}
	if out.ConsecutiveFailures == 0 {
		out.ConsecutiveFailures = def.ConsecutiveFailures
	}
	if out.OpenTimeout <= 0 {
		out.OpenTimeout = def.OpenTimeout
	}
	if out.HalfOpenMaxCalls == 0 {
		out.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	return out
}
