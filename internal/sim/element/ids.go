package element

import (
	"math"
	"sync/atomic"
)

// IDAllocator hands out client entity ids. It starts just past MaxInt32 and
// wraps, so fake entities count up from MinInt32 and stay clear of the ids a
// real world assigns from zero.
type IDAllocator struct {
	last atomic.Int32
}

func NewIDAllocator() *IDAllocator {
	a := &IDAllocator{}
	a.last.Store(math.MaxInt32)
	return a
}

func (a *IDAllocator) Next() int32 {
	return a.last.Add(1)
}
