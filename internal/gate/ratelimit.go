package gate

import (
	"context"
	"sync"
	"time"

	"bankhook/internal/ports"

	log "github.com/sirupsen/logrus"
)

// Decision is the outcome of one rate-limit check. Count is the
// post-increment value for the current window; ResetAt is the epoch
// second at which the window rolls over.
type Decision struct {
	Allowed  bool
	Count    int64
	Limit    int
	ResetAt  int64
	Window   time.Duration
	Degraded bool
}

func (d Decision) Remaining() int64 {
	rem := int64(d.Limit) - d.Count
	if rem < 0 {
		return 0
	}
	return rem
}

// Limiter bounds request volume per caller identity within a fixed
// window. The shared counter store is preferred; when none is configured
// the in-process fallback applies (single-instance degraded mode). A
// store fault at check time fails open.
type Limiter struct {
	counter  ports.RateCounter
	fallback *memoryCounter
	limit    int
	window   time.Duration
}

func NewLimiter(counter ports.RateCounter, limit int, window time.Duration) *Limiter {
	return &Limiter{
		counter:  counter,
		fallback: newMemoryCounter(),
		limit:    limit,
		window:   window,
	}
}

// Check increments the caller's window counter and compares it against
// the ceiling. Allowed or not, the Decision carries full accounting for
// the response headers.
func (l *Limiter) Check(ctx context.Context, callerID string) Decision {
	now := timeNow().Unix()
	windowSecs := int64(l.window / time.Second)
	windowStart := now / windowSecs * windowSecs

	d := Decision{
		Limit:   l.limit,
		ResetAt: windowStart + windowSecs,
		Window:  l.window,
	}

	if l.counter != nil {
		count, err := l.counter.Incr(ctx, callerID, windowStart, l.window)
		if err != nil {
			log.WithError(err).WithField("caller", callerID).
				Warn("rate counter store unreachable, failing open")
			d.Allowed = true
			d.Degraded = true
			return d
		}
		d.Count = count
		d.Allowed = count <= int64(l.limit)
		return d
	}

	d.Count = l.fallback.incr(callerID, windowStart)
	d.Allowed = d.Count <= int64(l.limit)
	d.Degraded = true
	return d
}

// memoryCounter is the in-process fallback: same (caller, windowStart)
// keying, one mutex, swept when it grows past sweepThreshold.
type memoryCounter struct {
	mu     sync.Mutex
	counts map[memoryKey]int64
}

type memoryKey struct {
	callerID    string
	windowStart int64
}

const sweepThreshold = 1000

func newMemoryCounter() *memoryCounter {
	return &memoryCounter{counts: make(map[memoryKey]int64)}
}

func (m *memoryCounter) incr(callerID string, windowStart int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.counts) > sweepThreshold {
		m.sweepLocked(windowStart)
	}
	k := memoryKey{callerID: callerID, windowStart: windowStart}
	m.counts[k]++
	return m.counts[k]
}

func (m *memoryCounter) sweepLocked(currentWindowStart int64) {
	for k := range m.counts {
		if k.windowStart < currentWindowStart {
			delete(m.counts, k)
		}
	}
}
