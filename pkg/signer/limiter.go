package signer

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/trustmesh/node/pkg/netbus"
)

// callerLimiter tracks one caller address's token bucket and its last
// request time, so stale entries can be swept.
type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// CallerRateLimiter enforces a per-caller-address rate limit in front of
// the signer worker. The signer performs no authorization of its own
// (spec: "trusted local collaborator"), so this exists purely to bound
// how fast any one caller can burn signing capacity, mirroring the
// teacher's per-IP GlobalRateLimiter adapted to bus addresses instead of
// remote IPs.
type CallerRateLimiter struct {
	mu       sync.Mutex
	callers  map[netbus.Address]*callerLimiter
	rps      rate.Limit
	burst    int
	maxIdle  time.Duration
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewCallerRateLimiter allows rps requests/sec with the given burst per
// caller address, sweeping callers idle longer than maxIdle.
func NewCallerRateLimiter(rps float64, burst int, maxIdle time.Duration) *CallerRateLimiter {
	rl := &CallerRateLimiter{
		callers: make(map[netbus.Address]*callerLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
		maxIdle: maxIdle,
		stopCh:  make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *CallerRateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.maxIdle)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for addr, c := range rl.callers {
				if now.Sub(c.lastSeen) > rl.maxIdle {
					delete(rl.callers, addr)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Stop ends the background sweep goroutine.
func (rl *CallerRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Allow reports whether caller may make another request right now.
func (rl *CallerRateLimiter) Allow(caller netbus.Address) bool {
	rl.mu.Lock()
	c, ok := rl.callers[caller]
	if !ok {
		c = &callerLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.callers[caller] = c
	}
	c.lastSeen = time.Now()
	limiter := c.limiter
	rl.mu.Unlock()

	return limiter.Allow()
}
