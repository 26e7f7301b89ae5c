package backoff

import (
	"testing"
	"time"
)

func TestDelayDoubles(t *testing.T) {
	base := time.Second
	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	for i, w := range want {
		if got := Delay(i+1, base); got != w {
			t.Errorf("Delay(%d, 1s) = %v, want %v", i+1, got, w)
		}
	}
}

func TestDelayFirstRetryIsBase(t *testing.T) {
	if got := Delay(1, 250*time.Millisecond); got != 250*time.Millisecond {
		t.Errorf("Delay(1, 250ms) = %v, want 250ms", got)
	}
}

func TestDelayPanicsOnInvalidAttempt(t *testing.T) {
	for _, attempt := range []int{0, -1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Delay(%d, 1s) did not panic", attempt)
				}
			}()
			Delay(attempt, time.Second)
		}()
	}
}
