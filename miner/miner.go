package miner

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/marusama/semaphore/v2"
	"pimine.team/miner/hashengine"
	"pimine.team/miner/log"
)

// DefaultBatchSize is the number of hashes between two statistics updates.
const DefaultBatchSize = 10_000

// ErrSessionRunning is returned by Start while another search loop is alive.
var ErrSessionRunning = errors.New("mining session already running")

// Options configure a Miner. Zero values select the defaults.
type Options struct {
	Algorithm hashengine.Algorithm // inner hash of the double hash, default sha256d
	BatchSize uint64               // hashes per statistics batch, default DefaultBatchSize
	MaxNonce  uint64               // size of the nonce space, default math.MaxUint64
	Logger    btclog.Logger        // default is the MINR subsystem logger
}

// Miner owns the shared statistics and the cancellation flag and runs at most
// one search loop at a time. Stats and Stop are safe to call concurrently with
// a running Start.
type Miner struct {
	stats   *StatsBox
	control *control

	// admits a single search loop; held until the loop has exited
	admit semaphore.Semaphore

	algorithm hashengine.Algorithm
	batchSize uint64
	maxNonce  uint64

	log     btclog.Logger
	metrics *minerMetrics

	mu    sync.Mutex
	state State
}

// session holds the immutable parameters of one search.
type session struct {
	header     string
	difficulty uint32
	started    time.Time
}

// New creates an idle Miner.
func New(opts Options) *Miner {
	m := &Miner{
		stats:     &StatsBox{},
		control:   &control{},
		admit:     semaphore.New(1),
		algorithm: opts.Algorithm,
		batchSize: opts.BatchSize,
		maxNonce:  opts.MaxNonce,
		log:       opts.Logger,
		metrics:   initializePrometheusMetrics(),
		state:     Idle,
	}
	if m.algorithm == "" {
		m.algorithm = hashengine.SHA256d
	}
	if m.batchSize == 0 {
		m.batchSize = DefaultBatchSize
	}
	if m.maxNonce == 0 {
		m.maxNonce = math.MaxUint64
	}
	if m.log == nil {
		m.log = log.Miner
	}
	return m
}

// Start searches for a nonce such that the double hash of header+nonce has at
// least `difficulty` leading zero bits. The search runs in its own goroutine
// and Start blocks until it is found, cancelled or the nonce space is exhausted.
// Cancelling ctx has the same effect as calling Stop. Starting while another
// loop is alive returns ErrSessionRunning.
func (m *Miner) Start(ctx context.Context, header string, difficulty uint32) (*Result, error) {
	if !m.admit.TryAcquire(1) {
		m.metrics.SessionsRejected.Inc()
		return nil, ErrSessionRunning
	}

	// raise the flag before is_mining becomes visible, so a Stop issued by
	// anyone who observed is_mining=true cannot be overwritten
	m.control.set(true)
	m.stats.reset(difficulty)
	s := &session{header: header, difficulty: difficulty, started: time.Now()}
	m.setState(Running)
	m.metrics.CurrentlyMining.Set(1)
	m.log.Infof("Session started: difficulty=%d header=%q algorithm=%s", difficulty, header, m.algorithm)

	done := make(chan *Result, 1)
	go func() {
		result := m.search(s)
		m.setState(result.Status)
		m.log.Infof("Session %s: nonce=%d iterations=%d hash=%s (%s)",
			result.Status, result.Nonce, result.Iterations, result.Hash,
			time.Duration(result.ElapsedMs)*time.Millisecond)
		m.admit.Release(1)
		done <- result
	}()

	select {
	case result := <-done:
		return result, nil
	case <-ctx.Done():
		m.log.Debugf("Session context closed: %s", context.Cause(ctx))
		m.Stop()
		return <-done, nil
	}
}

// search is the loop body. It is the only writer of TotalHashes and HashRate
// and never holds a lock while hashing.
func (m *Miner) search(s *session) *Result {
	var (
		nonce   uint64
		pending uint64 // hashes since the last flush
		digest  hashengine.Digest
		buf     = make([]byte, 0, len(s.header)+20)
		last    = s.started
	)

	for {
		buf = hashengine.Candidate(buf, s.header, nonce)
		digest = m.algorithm.DoubleHash(buf)
		pending++

		// batch boundary
		if pending == m.batchSize {
			now := time.Now()
			rate := hashRate(pending, now.Sub(last))
			m.stats.addBatch(pending, rate)
			m.metrics.ObserveBatch(pending, rate)
			pending, last = 0, now
		}

		if hashengine.MeetsDifficulty(digest, s.difficulty) {
			elapsed := time.Since(s.started)
			m.stats.finish(pending, hashRate(nonce, elapsed), true)
			return m.finished(s, Found, nonce, digest.Hex(), nonce, pending, elapsed)
		}

		if !m.control.isActive() {
			elapsed := time.Since(s.started)
			m.stats.finish(pending, 0, false)
			return m.finished(s, Cancelled, nonce, digest.Hex(), nonce, pending, elapsed)
		}

		nonce++
		if nonce >= m.maxNonce {
			elapsed := time.Since(s.started)
			m.stats.finish(pending, 0, false)
			return m.finished(s, Exhausted, 0, "", m.maxNonce, pending, elapsed)
		}
	}
}

// finished assembles the Result and records metrics for a terminal state.
func (m *Miner) finished(s *session, status State, nonce uint64, hash string, iterations, remainder uint64, elapsed time.Duration) *Result {
	result := &Result{
		Status:      status,
		BlockHeader: s.header,
		Nonce:       nonce,
		Hash:        hash,
		Iterations:  iterations,
		Difficulty:  s.difficulty,
		ElapsedMs:   elapsed.Milliseconds(),
	}
	m.metrics.ObserveFinished(result, remainder, elapsed)
	return result
}

// Stop asks the running loop to exit and marks the statistics as not mining
// right away. It does not wait for the loop; calling it while idle is harmless.
func (m *Miner) Stop() {
	m.control.set(false)
	m.stats.markStopped()
	m.metrics.CurrentlyMining.Set(0)
}

// Stats returns a snapshot of the shared statistics.
func (m *Miner) Stats() Stats {
	return m.stats.Snapshot()
}

// State returns the state of the latest session.
func (m *Miner) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Running reports whether a search loop is currently alive, which can still
// be the case shortly after Stop until the loop observes the flag.
func (m *Miner) Running() bool {
	return m.admit.GetCount() > 0
}

// Algorithm returns the configured double hash.
func (m *Miner) Algorithm() hashengine.Algorithm {
	return m.algorithm
}

func (m *Miner) setState(state State) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}

// hashRate divides hashes by elapsed seconds, returning 0 for a zero duration.
func hashRate(hashes uint64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(hashes) / elapsed.Seconds()
}
