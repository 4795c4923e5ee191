package dispatch

import (
	"testing"
	"time"
)

func TestBackoffNeverExceedsMaxDelay(t *testing.T) {
	base := 100 * time.Millisecond
	maxDelay := 2 * time.Second

	for attempts := 1; attempts <= 20; attempts++ {
		for i := 0; i < 20; i++ {
			d := backoff(attempts, base, maxDelay)
			if d < 0 || d > maxDelay {
				t.Fatalf("attempts=%d: backoff %v out of bounds [0, %v]", attempts, d, maxDelay)
			}
		}
	}
}

func TestBackoffGrowsWithAttempts(t *testing.T) {
	base := 10 * time.Millisecond
	maxDelay := time.Hour

	// With a huge ceiling, repeated sampling at a higher attempt count
	// should on average produce a larger value than at a low attempt
	// count. Use the deterministic ceiling rather than sampled values to
	// avoid flakiness.
	low := backoffCeiling(1, base, maxDelay)
	high := backoffCeiling(10, base, maxDelay)
	if high <= low {
		t.Fatalf("expected ceiling to grow with attempts: low=%v high=%v", low, high)
	}
}
