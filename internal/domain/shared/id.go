package shared

import (
	"fmt"
	"sync/atomic"
	"time"
)

// lastAggregateMillis guards against two aggregates minting the same
// millisecond timestamp. The generated ID keeps the documented
// "<prefix>_<ms>" shape but is bumped forward on collision.
var lastAggregateMillis int64

// NewAggregateID returns a prefixed, timestamp-based aggregate identifier
// such as "mem_1724400000000" or "search_1724400000000".
func NewAggregateID(prefix string) string {
	for {
		now := time.Now().UnixMilli()
		last := atomic.LoadInt64(&lastAggregateMillis)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastAggregateMillis, last, now) {
			return fmt.Sprintf("%s_%d", prefix, now)
		}
	}
}
