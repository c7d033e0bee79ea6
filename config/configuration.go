package config

import "time"

// Prefix for environment variable names, so HTTP_LISTEN becomes PIMINE_HTTP_LISTEN.
const envprefix = "PIMINE"

// Configuration via environment variables with github.com/kelseyhightower/envconfig.
type Configuration struct {

	// HTTP_LISTEN is the listening address for the HTTP server.
	HttpListen string `split_words:"true" default:"localhost:3000" desc:"Listening Addr for HTTP server"`

	// HTTP_CERT and HTTP_KEY are paths to a TLS keypair to optionally use for the HTTP server.
	// If none are given, a plaintext server is started. Reload keys with SIGHUP.
	HttpCert string `split_words:"true" desc:"Path to TLS certificate to use"`
	HttpKey  string `split_words:"true" desc:"Path to TLS key to use"`

	// ALLOWED_ORIGINS is a list of allowed Origin headers for CORS and the stats WebSocket.
	AllowedOrigins []string `split_words:"true" default:"*" desc:"List of allowed Origins for CORS and WebSocket"`

	// DEFAULT_HEADER is the block header template used when a mining request has none.
	DefaultHeader string `split_words:"true" default:"00000000000000000000000000000000" desc:"Header template for requests without one"`

	// ALGORITHM selects the double hash: sha256d, blake2b256d or sha3-256d.
	Algorithm string `default:"sha256d" desc:"Double hash algorithm"`

	// BATCH_SIZE is the number of hashes between statistics updates.
	BatchSize uint64 `split_words:"true" default:"10000" desc:"Hashes between statistics updates"`

	// STATS_INTERVAL is the period of the pushed statistics snapshots on /ws.
	StatsInterval time.Duration `split_words:"true" default:"1s" desc:"Interval of pushed stats snapshots"`

	// LOG_LEVEL applies to all subsystems: trace, debug, info, warn, error, critical, off.
	LogLevel string `split_words:"true" default:"info" desc:"Logging level for all subsystems"`

	// LOG_FILE additionally writes logs to a rotated file.
	LogFile string `split_words:"true" desc:"Write logs to this rotated file, too"`

	// METRICS will expose metrics for Prometheus via /metrics
	Metrics bool `desc:"Enable Prometheus exporter on /metrics" default:"false"`

	// DEBUG will enable the pprof handlers under /debug/pprof
	Debug bool `desc:"Enable profiling handlers on /debug/pprof" default:"false"`
}
