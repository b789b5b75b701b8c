package relay

import (
	"math"
	"testing"
	"time"
)

func TestBackoff_Sequence(t *testing.T) {
	b := NewBackoff(time.Second, 30*time.Second)

	for n := 0; n < 12; n++ {
		want := time.Duration(float64(time.Second) * math.Pow(1.5, float64(n)))
		if want > 30*time.Second {
			want = 30 * time.Second
		}
		got := b.Next()
		if diff := got - want; diff < -time.Microsecond || diff > time.Microsecond {
			t.Fatalf("delay %d: expected %v, got %v", n, want, got)
		}
	}
}

func TestBackoff_CapsAtMax(t *testing.T) {
	b := NewBackoff(time.Second, 30*time.Second)
	var last time.Duration
	for n := 0; n < 30; n++ {
		last = b.Next()
	}
	if last != 30*time.Second {
		t.Errorf("expected cap of 30s, got %v", last)
	}
}

func TestBackoff_ResetReturnsToFloor(t *testing.T) {
	b := NewBackoff(time.Second, 30*time.Second)
	b.Next()
	b.Next()
	b.Next()
	b.Reset()
	if got := b.Next(); got != time.Second {
		t.Errorf("expected floor after reset, got %v", got)
	}
}

func TestBackoff_Defaults(t *testing.T) {
	b := NewBackoff(0, 0)
	if b.Floor != DefaultFloor || b.Cap != DefaultCap {
		t.Errorf("expected defaults, got floor=%v cap=%v", b.Floor, b.Cap)
	}
}
