package miner

import (
	"sync"
	"time"

	"github.com/paulbellamy/ratecounter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type minerMetrics struct {

	// throughput
	HashesTotal       prometheus.Counter   // hashes across all sessions
	HashRate          prometheus.Gauge     // rate of the latest batch
	HashRateSmoothed  prometheus.GaugeFunc // rate over the ratecounter window
	CurrentlyMining   prometheus.Gauge     // 1 while a session intends to run

	// session outcomes
	SessionsCompleted prometheus.CounterVec   // partitioned by terminal status
	SessionDuration   prometheus.HistogramVec // partitioned by terminal status
	SessionsRejected  prometheus.Counter      // Start calls refused because a loop was alive

	// smoothed hash rate, fed at batch boundaries
	window  time.Duration
	counter *ratecounter.RateCounter
}

// list of useful histogram buckets, from quick low-difficulty solves to long searches
var histogramBuckets = []float64{0.010, 0.100, 1, 10, 60, 300, 1800, 3600}

var (
	metrics     *minerMetrics
	metricsOnce sync.Once
)

// create and register all the metric gauges; collectors are process-global
// so this happens once for all Miners
func initializePrometheusMetrics() *minerMetrics {
	metricsOnce.Do(func() {
		m := &minerMetrics{
			window:  5 * time.Second,
			counter: ratecounter.NewRateCounter(5 * time.Second),
		}

		m.HashesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "pimine_hashes_total",
			Help: "double hashes computed across all sessions",
		})

		m.HashRate = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pimine_hash_rate",
			Help: "hashes per second measured over the latest batch",
		})

		m.HashRateSmoothed = promauto.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "pimine_hash_rate_smoothed",
			Help: "hashes per second over a sliding five second window",
		}, m.smoothedRate)

		m.CurrentlyMining = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pimine_mining",
			Help: "1 while a mining session is running",
		})

		m.SessionsCompleted = *promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pimine_sessions_total",
			Help: "finished sessions; partitioned by terminal status",
		}, []string{"status"})

		m.SessionDuration = *promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pimine_session_duration_seconds",
			Help:    "wall-clock duration of finished sessions; partitioned by terminal status",
			Buckets: histogramBuckets,
		}, []string{"status"})

		m.SessionsRejected = promauto.NewCounter(prometheus.CounterOpts{
			Name: "pimine_sessions_rejected_total",
			Help: "Start requests rejected because a session was still running",
		})

		metrics = m
	})
	return metrics
}

func (m *minerMetrics) smoothedRate() float64 {
	return float64(m.counter.Rate()) / m.window.Seconds()
}

// Observe a flushed batch
func (m *minerMetrics) ObserveBatch(hashes uint64, rate float64) {
	m.HashesTotal.Add(float64(hashes))
	m.HashRate.Set(rate)
	m.counter.Incr(int64(hashes))
}

// ObserveFinished records the outcome of a session
func (m *minerMetrics) ObserveFinished(result *Result, remainder uint64, elapsed time.Duration) {
	if remainder > 0 {
		m.HashesTotal.Add(float64(remainder))
		m.counter.Incr(int64(remainder))
	}
	status := result.Status.String()
	m.SessionsCompleted.With(prometheus.Labels{"status": status}).Inc()
	m.SessionDuration.With(prometheus.Labels{"status": status}).Observe(elapsed.Seconds())
	m.CurrentlyMining.Set(0)
}

// SmoothedHashRate exposes the sliding-window hash rate.
func SmoothedHashRate() float64 {
	return initializePrometheusMetrics().smoothedRate()
}
