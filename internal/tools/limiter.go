// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter gates outbound requests per tool so many simultaneous runs do
// not overwhelm a single source. It is constructed once and passed into
// the layer explicitly; there is no ambient global state.
type Limiter struct {
	perSecond float64
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
}

// NewLimiter creates a per-tool rate gate allowing perSecond requests
// per tool with a burst of one.
func NewLimiter(perSecond float64) *Limiter {
	if perSecond <= 0 {
		perSecond = 2
	}
	return &Limiter{
		perSecond: perSecond,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the named tool may make a request or the context is
// cancelled.
func (l *Limiter) Wait(ctx context.Context, tool string) error {
	l.mu.Lock()
	lim, ok := l.limiters[tool]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.perSecond), 1)
		l.limiters[tool] = lim
	}
	l.mu.Unlock()

	return lim.Wait(ctx)
}
