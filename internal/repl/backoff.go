package repl

import "time"

const (
	backoffFloor      = 1 * time.Second
	backoffCeiling    = 30 * time.Second
	backoffMultiplier = 2.0
)

// Backoff is the growing delay between reconnect attempts: multiplicative
// with a hard ceiling, no jitter, no attempt cap. The delay persists
// across attempts and resets to its floor only when a connection is
// confirmed established; it never drops below the floor.
type Backoff struct {
	delay      time.Duration
	floor      time.Duration
	ceiling    time.Duration
	multiplier float64
}

func NewBackoff() Backoff {
	return Backoff{
		delay:      backoffFloor,
		floor:      backoffFloor,
		ceiling:    backoffCeiling,
		multiplier: backoffMultiplier,
	}
}

// Next returns the delay to wait before the next attempt, then grows it:
// delay' = min(delay * multiplier, ceiling).
func (b *Backoff) Next() time.Duration {
	d := b.delay
	grown := time.Duration(float64(b.delay) * b.multiplier)
	if grown > b.ceiling {
		grown = b.ceiling
	}
	b.delay = grown
	return d
}

// Reset returns the delay to its floor.
func (b *Backoff) Reset() {
	b.delay = b.floor
}

// Delay reports the current delay without growing it.
func (b *Backoff) Delay() time.Duration {
	return b.delay
}
