package cache

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Coalescer runs at most one load per key at a time. Concurrent callers for
// the same key wait for the leader and share its result.
type Coalescer struct {
	group       singleflight.Group
	loadTimeout time.Duration
	inFlight    atomic.Int64
}

// NewCoalescer creates a coalescer. loadTimeout bounds each shared load
// independently of the callers' contexts; zero means no bound.
func NewCoalescer(loadTimeout time.Duration) *Coalescer {
	return &Coalescer{loadTimeout: loadTimeout}
}

// Do runs fn for key unless a load for key is already running, in which case
// it waits for that load. shared reports whether the result was given to more
// than one caller. A caller whose ctx ends stops waiting, but the load keeps
// running for the others.
func (c *Coalescer) Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, bool, error) {
	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	ch := c.group.DoChan(key, func() (any, error) {
		loadCtx := context.WithoutCancel(ctx)
		if c.loadTimeout > 0 {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithTimeout(loadCtx, c.loadTimeout)
			defer cancel()
		}
		return fn(loadCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// InFlight returns the number of callers currently inside Do.
func (c *Coalescer) InFlight() int64 {
	return c.inFlight.Load()
}
