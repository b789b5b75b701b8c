package relay

import "time"

// Reconnect defaults.
const (
	DefaultFloor      = time.Second
	DefaultCap        = 30 * time.Second
	DefaultMultiplier = 1.5
)

// Backoff produces the reconnect delay sequence: floor first, multiplied
// by 1.5 per consecutive failure, capped. Reset returns the sequence to
// the floor after a successful connect.
type Backoff struct {
	Floor      time.Duration
	Cap        time.Duration
	Multiplier float64

	next time.Duration
}

// NewBackoff creates a Backoff. Non-positive arguments fall back to the
// defaults.
func NewBackoff(floor, cap time.Duration) *Backoff {
	if floor <= 0 {
		floor = DefaultFloor
	}
	if cap <= 0 {
		cap = DefaultCap
	}
	return &Backoff{Floor: floor, Cap: cap, Multiplier: DefaultMultiplier}
}

// Next returns the delay to wait before the next attempt and advances the
// sequence.
func (b *Backoff) Next() time.Duration {
	if b.next == 0 {
		b.next = b.Floor
	}
	d := b.next
	grown := time.Duration(float64(b.next) * b.Multiplier)
	if grown > b.Cap {
		grown = b.Cap
	}
	b.next = grown
	return d
}

// Reset returns the sequence to the floor.
func (b *Backoff) Reset() {
	b.next = 0
}
