// Package ratelimit throttles public booking endpoints per client when no
// shared Redis limiter is available.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const idleAfter = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Local is an in-process token bucket per client. Each client may burst up
// to limit requests and regains one every window/limit.
type Local struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	every    rate.Limit
	burst    int
	now      func() time.Time
}

func NewLocal(limit int, window time.Duration) *Local {
	if limit < 1 {
		limit = 1
	}
	return &Local{
		visitors: make(map[string]*visitor),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		now:      time.Now,
	}
}

// Allow records a hit for client. When the bucket is empty it reports how
// long until the next request would be accepted.
func (l *Local) Allow(_ context.Context, client string) (bool, time.Duration, error) {
	now := l.now()
	lim := l.get(client, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, 0, nil
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d, nil
	}

	return true, 0, nil
}

func (l *Local) get(client string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > idleAfter {
			delete(l.visitors, k)
		}
	}

	v, ok := l.visitors[client]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.visitors[client] = v
	}
	v.lastSeen = now

	return v.limiter
}
