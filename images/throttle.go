package images

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostThrottle enforces a minimum inter-request gap per remote host.
// Requests against one host are serialized with pacing while requests to
// different hosts proceed independently. Each host's limiter is the
// single writer of its own dispatch state, so two workers can never
// compute a wait against stale timestamps.
type hostThrottle struct {
	mu       sync.Mutex
	interval time.Duration
	hosts    map[string]*rate.Limiter
}

func newHostThrottle(interval time.Duration) *hostThrottle {
	return &hostThrottle{
		interval: interval,
		hosts:    make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to host may be dispatched.
func (t *hostThrottle) Wait(ctx context.Context, host string) error {
	if t.interval <= 0 {
		return ctx.Err()
	}

	t.mu.Lock()
	lim, ok := t.hosts[host]
	if !ok {
		lim = rate.NewLimiter(rate.Every(t.interval), 1)
		t.hosts[host] = lim
	}
	t.mu.Unlock()

	return lim.Wait(ctx)
}
