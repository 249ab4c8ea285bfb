package render

import "sync/atomic"

// Epoch is a monotonically increasing invalidation counter. It only ever
// moves forward; there is no way to lower it.
type Epoch struct {
	n atomic.Int64
}

// NewEpoch creates an epoch counter starting at the given value. Servers
// restore the persisted value at startup so cached output survives a
// restart only when nothing was invalidated in between.
func NewEpoch(start int64) *Epoch {
	e := &Epoch{}
	e.n.Store(start)
	return e
}

// Current returns the current epoch value.
func (e *Epoch) Current() int64 {
	return e.n.Load()
}

// Bump advances the epoch by one and returns the new value. Every cache
// entry stamped before the bump becomes stale.
func (e *Epoch) Bump() int64 {
	return e.n.Add(1)
}
