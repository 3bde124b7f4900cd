package events

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TopicLimiter applies a token bucket per session topic and periodically
// evicts idle topics.
type TopicLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu      sync.Mutex
	byTopic map[string]*limiterEntry
	hits    uint64
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewTopicLimiter returns nil, meaning unlimited, when rps or burst is not
// positive.
func NewTopicLimiter(rps float64, burst int, idleTTL time.Duration) *TopicLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &TopicLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		byTopic: make(map[string]*limiterEntry),
	}
}

// Allow reports whether one more request on topic may be handled at now.
func (l *TopicLimiter) Allow(topic string, now time.Time) bool {
	if l == nil || topic == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byTopic[topic]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byTopic[topic] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		l.evictLocked(now)
	}
	return allowed
}

// Forget drops the bucket of a deleted session.
func (l *TopicLimiter) Forget(topic string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.byTopic, topic)
}

func (l *TopicLimiter) evictLocked(now time.Time) {
	cutoff := now.Add(-l.idleTTL)
	for k, v := range l.byTopic {
		if v.lastSeen.Before(cutoff) {
			delete(l.byTopic, k)
		}
	}
}

func (l *TopicLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byTopic)
}
