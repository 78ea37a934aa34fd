package ratelimit

import (
	"sync"
	"time"
)

type Scope string

const (
	// ScopeServe covers public media reads: listings and byte serving.
	ScopeServe Scope = "serve"
	// ScopeUpload covers mutating traffic: uploads, upserts, deletes.
	ScopeUpload Scope = "upload"
)

type Config struct {
	Window time.Duration
	Serve  int
	Upload int
}

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   int64
	RetryIn   int64
}

type bucketKey struct {
	scope  Scope
	client string
}

type window struct {
	start int64
	count int
}

// Limiter is a fixed-window counter keyed by scope and client address.
// A zero limit for a scope disables limiting for that scope.
type Limiter struct {
	cfg     Config
	windowS int64

	mu      sync.Mutex
	buckets map[bucketKey]window
}

func New(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &Limiter{
		cfg:     cfg,
		windowS: int64(cfg.Window.Seconds()),
		buckets: make(map[bucketKey]window, 1024),
	}
}

func (l *Limiter) Take(now time.Time, scope Scope, client string) Result {
	limit := l.limit(scope)
	if limit <= 0 {
		return Result{Allowed: true, ResetAt: now.Unix()}
	}

	if l.windowS <= 0 {
		l.windowS = 60
	}
	unixNow := now.Unix()
	windowStart := unixNow / l.windowS * l.windowS
	resetAt := windowStart + l.windowS

	k := bucketKey{scope: scope, client: client}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.buckets[k]
	if !ok || w.start != windowStart {
		w = window{start: windowStart}
	}

	allowed := w.count < limit
	if allowed {
		w.count++
	}
	l.buckets[k] = w

	if len(l.buckets) > 100000 {
		l.evictBefore(windowStart - l.windowS*2)
	}

	remaining := limit - w.count
	if remaining < 0 {
		remaining = 0
	}
	retryIn := resetAt - unixNow
	if retryIn < 0 {
		retryIn = 0
	}
	return Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
		RetryIn:   retryIn,
	}
}

func (l *Limiter) limit(scope Scope) int {
	switch scope {
	case ScopeServe:
		return l.cfg.Serve
	case ScopeUpload:
		return l.cfg.Upload
	default:
		return 0
	}
}

func (l *Limiter) evictBefore(olderThanStart int64) {
	for k, v := range l.buckets {
		if v.start <= olderThanStart {
			delete(l.buckets, k)
		}
	}
}
