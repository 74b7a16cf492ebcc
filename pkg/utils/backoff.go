package utils

import (
	"math"
	"math/rand"
	"time"
)

// CalculateExponentialBackoffWithJitter computes a jittered exponential backoff delay.
// - count: attempt number (1-based)
// - base: base delay (e.g., 25 * time.Millisecond)
// - max: maximum allowable delay
// Returns the calculated duration with jitter.
func CalculateExponentialBackoffWithJitter(count int, base time.Duration, max time.Duration) time.Duration {
	if count <= 0 || base <= 0 {
		return 0
	}

	// Exponential backoff: base * 2^(count-1), capped before jitter to avoid overflow
	baseDelay := base * time.Duration(math.Pow(2, float64(min(count-1, 30))))
	if baseDelay <= 0 || baseDelay > max {
		baseDelay = max
	}

	// Jitter in [-12.5%, +12.5%) to avoid synchronized retries
	delay := baseDelay
	if spread := int64(baseDelay / 4); spread > 0 {
		delay += time.Duration(rand.Int63n(spread)) - (baseDelay / 8)
	}

	if delay > max {
		delay = max
	}
	return delay
}
