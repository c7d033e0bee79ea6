package miner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync"
)

// StatsSource is anything that can produce a statistics snapshot, usually a *Miner.
type StatsSource interface {
	Stats() Stats
}

// Feed periodically pushes statistics snapshots to any number of subscribers.
// Sends never block: a subscriber that did not consume the previous snapshot
// gets it replaced by the newer one.
type Feed struct {
	source StatsSource

	// subscribers are held in a concurrent map keyed by a unique name
	subscribers *xsync.MapOf[string, chan Stats]
	seq         atomic.Uint64
}

// NewFeed creates a Feed reading snapshots from source. Call Run to start ticking.
func NewFeed(source StatsSource) *Feed {
	return &Feed{
		source:      source,
		subscribers: xsync.NewMapOf[chan Stats](),
	}
}

// Subscribe registers a new subscriber. The returned function unsubscribes;
// the channel is never closed, stop reading from it after unsubscribing.
func (f *Feed) Subscribe(name string) (<-chan Stats, func()) {
	key := fmt.Sprintf("%s#%d", name, f.seq.Add(1))
	ch := make(chan Stats, 1)
	f.subscribers.Store(key, ch)
	return ch, func() { f.subscribers.Delete(key) }
}

// Size is the current number of subscribers.
func (f *Feed) Size() int {
	return f.subscribers.Size()
}

// Publish sends a snapshot to all subscribers without blocking.
func (f *Feed) Publish(stats Stats) {
	f.subscribers.Range(func(_ string, ch chan Stats) bool {
		select {
		case ch <- stats:
		default:
			// drop the stale snapshot and retry once
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- stats:
			default:
			}
		}
		return true
	})
}

// Run publishes a snapshot of the source every interval until ctx is done.
func (f *Feed) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			f.Publish(f.source.Stats())
		case <-ctx.Done():
			return
		}
	}
}
