// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package enrichment

import (
	"context"
	"time"
)

// DefaultMinInterval is the minimum gap between external geocoding calls,
// matching Nominatim's published fair-use policy of one request per second.
const DefaultMinInterval = time.Second

// Limiter enforces a minimum elapsed time between consecutive external
// calls. A single Limiter instance is shared per process: the provider's
// policy is per client, not per caller.
type Limiter struct {
	interval time.Duration

	// tokens serializes the wait-then-call sequence so concurrent callers
	// cannot both observe a stale timestamp and issue calls closer together
	// than the interval. A buffered channel instead of a mutex keeps the
	// wait cancellable.
	tokens chan struct{}
	last   time.Time
}

// NewLimiter creates a limiter with the given minimum interval between calls.
func NewLimiter(interval time.Duration) *Limiter {
	l := &Limiter{
		interval: interval,
		tokens:   make(chan struct{}, 1),
	}
	l.tokens <- struct{}{}

	return l
}

// Do blocks until at least the configured interval has passed since the
// previous call, then runs fn. The last-call timestamp is recorded only
// after fn returns, success or failure: back-to-back failures must not let
// the limiter silently allow bursts. If ctx is cancelled during the wait,
// fn is never invoked and the timestamp is left untouched.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.tokens:
	}
	defer func() { l.tokens <- struct{}{} }()

	if wait := l.interval - time.Since(l.last); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		case <-timer.C:
		}
	}

	err := fn()
	l.last = time.Now()

	return err
}
