package ratelimit

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/vyrodovalexey/apigate/internal/observability"
)

// SlidingWindowLimiter admits requests per client key using a sliding
// window log: each key keeps the timestamps of its admissions inside the
// trailing window.
//
// State is partitioned into shards selected by a hash of the key, each with
// its own mutex, so the prune, check and append sequence for one key is
// atomic while unrelated keys proceed in parallel.
type SlidingWindowLimiter struct {
	limit  int
	window time.Duration
	trust  *TrustList
	shards []*shard
	logger observability.Logger
	now    func() time.Time

	onSweep func(removed, remaining int)

	mu      sync.Mutex
	stopCh  chan struct{}
	stopped bool
}

type shard struct {
	mu      sync.Mutex
	windows map[string]*windowState
}

// windowState holds the admission timestamps of one key, oldest first.
type windowState struct {
	requests []time.Time
}

// Option configures a SlidingWindowLimiter.
type Option func(*SlidingWindowLimiter)

// WithLogger sets the logger for the limiter.
func WithLogger(logger observability.Logger) Option {
	return func(l *SlidingWindowLimiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the time source used by Allow and the sweeper.
func WithClock(now func() time.Time) Option {
	return func(l *SlidingWindowLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithSweepHook registers a callback invoked after every sweep.
func WithSweepHook(fn func(removed, remaining int)) Option {
	return func(l *SlidingWindowLimiter) {
		l.onSweep = fn
	}
}

// NewSlidingWindowLimiter creates a limiter. trust may be nil.
func NewSlidingWindowLimiter(cfg Config, trust *TrustList, opts ...Option) *SlidingWindowLimiter {
	shardCount := cfg.Shards
	if shardCount < 1 {
		shardCount = DefaultShards
	}

	l := &SlidingWindowLimiter{
		limit:  cfg.Limit,
		window: cfg.Window,
		trust:  trust,
		shards: make([]*shard, shardCount),
		logger: observability.NopLogger(),
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	for i := range l.shards {
		l.shards[i] = &shard{windows: make(map[string]*windowState)}
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Allow evaluates key against the limiter's clock.
func (l *SlidingWindowLimiter) Allow(key string) Decision {
	return l.Admit(key, l.now())
}

// Admit evaluates one request from key at instant now.
//
// Trusted keys are always admitted and never acquire state. For other keys
// timestamps at or before now-window are pruned; if the remaining count has
// reached the limit the request is rejected without being recorded,
// otherwise now is appended and the request admitted.
func (l *SlidingWindowLimiter) Admit(key string, now time.Time) Decision {
	if l.trust.IsTrusted(key) {
		return Decision{Allowed: true, Trusted: true, Limit: l.limit}
	}

	s := l.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.windows[key]
	if !ok {
		ws = &windowState{}
		s.windows[key] = ws
	}

	ws.prune(now.Add(-l.window))

	if len(ws.requests) >= l.limit {
		return Decision{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			RetryAfter: l.window,
		}
	}

	ws.requests = append(ws.requests, now)

	return Decision{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - len(ws.requests),
	}
}

// prune drops timestamps at or before cutoff.
func (ws *windowState) prune(cutoff time.Time) {
	n := 0
	for _, t := range ws.requests {
		if t.After(cutoff) {
			ws.requests[n] = t
			n++
		}
	}
	clear(ws.requests[n:])
	ws.requests = ws.requests[:n]
}

func (l *SlidingWindowLimiter) shardFor(key string) *shard {
	return l.shards[xxhash.Sum64String(key)%uint64(len(l.shards))]
}

// Limit returns the configured admissions per window.
func (l *SlidingWindowLimiter) Limit() int {
	return l.limit
}

// Window returns the configured window length.
func (l *SlidingWindowLimiter) Window() time.Duration {
	return l.window
}

// Trust returns the limiter's trust list.
func (l *SlidingWindowLimiter) Trust() *TrustList {
	return l.trust
}

// Len returns the number of keys currently holding window state.
func (l *SlidingWindowLimiter) Len() int {
	total := 0
	for _, s := range l.shards {
		s.mu.Lock()
		total += len(s.windows)
		s.mu.Unlock()
	}
	return total
}

// Count returns the number of timestamps retained for key, without pruning.
func (l *SlidingWindowLimiter) Count(key string) int {
	s := l.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, ok := s.windows[key]; ok {
		return len(ws.requests)
	}
	return 0
}

// Has reports whether key holds window state.
func (l *SlidingWindowLimiter) Has(key string) bool {
	s := l.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.windows[key]
	return ok
}

// ResetKey discards the state of a single key.
func (l *SlidingWindowLimiter) ResetKey(key string) {
	s := l.shardFor(key)
	s.mu.Lock()
	delete(s.windows, key)
	s.mu.Unlock()
}

// Reset discards all window state.
func (l *SlidingWindowLimiter) Reset() {
	for _, s := range l.shards {
		s.mu.Lock()
		s.windows = make(map[string]*windowState)
		s.mu.Unlock()
	}
}

// Sweep removes keys whose every timestamp has left the window at instant
// now. Such keys would be admitted with a fresh window anyway, so removing
// them does not change any future decision. Returns the number removed.
func (l *SlidingWindowLimiter) Sweep(now time.Time) int {
	cutoff := now.Add(-l.window)
	removed := 0
	remaining := 0

	for _, s := range l.shards {
		s.mu.Lock()
		for key, ws := range s.windows {
			ws.prune(cutoff)
			if len(ws.requests) == 0 {
				delete(s.windows, key)
				removed++
			}
		}
		remaining += len(s.windows)
		s.mu.Unlock()
	}

	if removed > 0 {
		l.logger.Debug("swept idle rate limiter keys",
			observability.Int("removed", removed),
			observability.Int("remaining", remaining),
		)
	}
	if l.onSweep != nil {
		l.onSweep(removed, remaining)
	}

	return removed
}

// StartSweeper runs Sweep every interval until Stop is called.
func (l *SlidingWindowLimiter) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		return
	}

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.Sweep(l.now())
			case <-l.stopCh:
				return
			}
		}
	}()
}

// Stop stops the sweeper goroutine. Safe to call more than once.
func (l *SlidingWindowLimiter) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.stopped {
		l.stopped = true
		close(l.stopCh)
	}
}
