// Package backoff provides the delay policy used between reconnection
// attempts on the session event channel.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy defines exponential backoff parameters.
type Policy struct {
	// Initial is the delay before the first retry.
	Initial time.Duration
	// Max caps the computed delay.
	Max time.Duration
	// Factor is the exponential factor applied per attempt.
	Factor float64
	// Jitter is the randomization factor (0.0 to 1.0) added on top.
	Jitter float64
}

// Default returns the policy used by the connection manager:
// 1s initial, 30s max, factor 2, 10% jitter.
func Default() Policy {
	return Policy{
		Initial: time.Second,
		Max:     30 * time.Second,
		Factor:  2,
		Jitter:  0.1,
	}
}

// Delay computes the backoff duration for the given attempt number.
// Attempts start at 1.
func (p Policy) Delay(attempt int) time.Duration {
	return p.DelayWithRand(attempt, rand.Float64()) // #nosec G404 -- jitter does not need crypto randomness
}

// DelayWithRand computes the backoff duration using the provided random
// value in [0.0, 1.0). Tests use it for deterministic results.
// The formula is min(max, initial*factor^(attempt-1) * (1 + jitter*random)).
func (p Policy) DelayWithRand(attempt int, randomValue float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	base := float64(p.Initial) * math.Pow(p.Factor, exp)
	total := base * (1 + p.Jitter*randomValue)
	if max := float64(p.Max); p.Max > 0 && total > max {
		total = max
	}
	return time.Duration(math.Round(total))
}
