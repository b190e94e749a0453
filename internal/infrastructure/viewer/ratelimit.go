package viewer

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// defaultLimiterIdle is how long a client's bucket survives without traffic.
const defaultLimiterIdle = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter hands out one token bucket per client address. Buckets idle
// for longer than the idle window are dropped on a later lookup.
type IPRateLimiter struct {
	ips       map[string]*visitor
	mu        sync.Mutex
	rateLimit rate.Limit
	burstRate int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewIPRateLimiter allows r requests per second with bursts of b per client.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:       make(map[string]*visitor),
		rateLimit: r,
		burstRate: b,
		idle:      defaultLimiterIdle,
		now:       time.Now,
	}
}

// GetLimiter returns the bucket for ip, creating it on first use.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	if now.Sub(i.lastSweep) >= i.idle {
		i.sweepLocked(now)
	}

	v, exists := i.ips[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(i.rateLimit, i.burstRate)}
		i.ips[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Len reports how many client buckets are tracked.
func (i *IPRateLimiter) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.ips)
}

func (i *IPRateLimiter) sweepLocked(now time.Time) {
	for ip, v := range i.ips {
		if now.Sub(v.lastSeen) >= i.idle {
			delete(i.ips, ip)
		}
	}
	i.lastSweep = now
}
