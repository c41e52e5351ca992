package images

import (
	"context"
	"testing"
	"time"
)

func TestHostThrottlePacesSameHost(t *testing.T) {
	interval := 50 * time.Millisecond
	throttle := newHostThrottle(interval)
	ctx := context.Background()

	var stamps []time.Time
	for i := 0; i < 3; i++ {
		if err := throttle.Wait(ctx, "slow.test"); err != nil {
			t.Fatalf("wait: %v", err)
		}
		stamps = append(stamps, time.Now())
	}

	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		// Small tolerance for limiter rounding.
		if gap < interval-5*time.Millisecond {
			t.Fatalf("dispatch gap %v shorter than interval %v", gap, interval)
		}
	}
}

func TestHostThrottleHostsIndependent(t *testing.T) {
	throttle := newHostThrottle(time.Second)
	ctx := context.Background()

	if err := throttle.Wait(ctx, "a.test"); err != nil {
		t.Fatalf("wait a: %v", err)
	}

	start := time.Now()
	if err := throttle.Wait(ctx, "b.test"); err != nil {
		t.Fatalf("wait b: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("other host delayed by %v", elapsed)
	}
}

func TestHostThrottleDisabled(t *testing.T) {
	throttle := newHostThrottle(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := throttle.Wait(ctx, "fast.test"); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("disabled throttle blocked for %v", elapsed)
	}
}

func TestHostThrottleHonoursCancellation(t *testing.T) {
	throttle := newHostThrottle(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	if err := throttle.Wait(ctx, "slow.test"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	cancel()
	if err := throttle.Wait(ctx, "slow.test"); err == nil {
		t.Fatal("expected cancellation error")
	}
}
