package miner

import "sync"

// Stats is a snapshot of the shared mining statistics.
type Stats struct {
	HashRate          float64 `json:"hash_rate"`          // hashes/s over the latest batch
	TotalHashes       uint64  `json:"total_hashes"`       // hashes in the current or last session
	CurrentDifficulty uint32  `json:"current_difficulty"` // difficulty of the latest Start
	IsMining          bool    `json:"is_mining"`
}

// StatsBox holds the Stats shared between the search loop and its observers.
// The loop writes at batch boundaries and on exit, observers read copies.
type StatsBox struct {
	mu    sync.RWMutex
	stats Stats
}

// Snapshot returns a copy of the current statistics.
func (b *StatsBox) Snapshot() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stats
}

// reset prepares the statistics for a new session.
func (b *StatsBox) reset(difficulty uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats = Stats{
		HashRate:          0,
		TotalHashes:       0,
		CurrentDifficulty: difficulty,
		IsMining:          true,
	}
}

// addBatch accounts a finished batch and its throughput.
func (b *StatsBox) addBatch(hashes uint64, rate float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.TotalHashes += hashes
	b.stats.HashRate = rate
}

// finish accounts the hashes since the last batch and marks the session as
// ended. The hash rate is only replaced if setRate is true.
func (b *StatsBox) finish(hashes uint64, rate float64, setRate bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.TotalHashes += hashes
	if setRate {
		b.stats.HashRate = rate
	}
	b.stats.IsMining = false
}

// markStopped clears IsMining ahead of the loop noticing a Stop.
func (b *StatsBox) markStopped() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.IsMining = false
}

// control is the cooperative cancellation flag of the running session.
type control struct {
	mu     sync.RWMutex
	active bool
}

func (c *control) set(active bool) {
	c.mu.Lock()
	c.active = active
	c.mu.Unlock()
}

func (c *control) isActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}
