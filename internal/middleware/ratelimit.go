package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 30 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// DeviceLimiter is a token bucket per device fingerprint. Idle buckets are
// dropped lazily so the map stays bounded by recently active devices.
type DeviceLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	lastPrune time.Time
	now       func() time.Time
}

// NewDeviceLimiter allows perMinute requests per device with the given burst.
// A zero rate disables limiting.
func NewDeviceLimiter(perMinute float64, burst int) *DeviceLimiter {
	if burst < 1 {
		burst = 1
	}
	return &DeviceLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Limit(perMinute / 60),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow consumes one token for device.
func (l *DeviceLimiter) Allow(device string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastPrune) > limiterIdleTTL {
		l.pruneLocked(now)
	}
	entry := l.entries[device]
	if entry == nil {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[device] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()

	return entry.limiter.AllowN(now, 1)
}

func (l *DeviceLimiter) pruneLocked(now time.Time) {
	for device, entry := range l.entries {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(l.entries, device)
		}
	}
	l.lastPrune = now
}

// Size is the number of tracked devices.
func (l *DeviceLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
