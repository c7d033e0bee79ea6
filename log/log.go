package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// logWriter writes to standard output and, once InitLogRotator was called,
// also to the rotating log file.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	rotatorMu.RLock()
	defer rotatorMu.RUnlock()
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

// Loggers per subsystem. A single backend logger is created and all subsystem
// loggers created from it write to the backend. When adding new subsystems,
// add the logger variable here and to the subsystemLoggers map.
var (
	backendLog = btclog.NewBackend(logWriter{})

	rotatorMu  sync.RWMutex
	logRotator *rotator.Rotator

	Miner  = backendLog.Logger("MINR")
	Server = backendLog.Logger("SRVR")
	API    = backendLog.Logger("APIS")
	Config = backendLog.Logger("CNFG")
)

var subsystemLoggers = map[string]btclog.Logger{
	"MINR": Miner,
	"SRVR": Server,
	"APIS": API,
	"CNFG": Config,
}

// InitLogRotator starts writing all log output to logFile in addition to
// stdout. Roll files are created in the same directory.
func InitLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0700); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}
	rotatorMu.Lock()
	logRotator = r
	rotatorMu.Unlock()
	return nil
}

// CloseLogRotator flushes and closes the log file, if any.
func CloseLogRotator() {
	rotatorMu.Lock()
	defer rotatorMu.Unlock()
	if logRotator != nil {
		logRotator.Close()
		logRotator = nil
	}
}

// SetLogLevel sets the logging level for one subsystem. Invalid subsystems
// are ignored and invalid levels default to info.
func SetLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels sets the logging level for all subsystems.
func SetLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		SetLogLevel(subsystemID, logLevel)
	}
}

// ValidLogLevel reports whether btclog understands the given level name.
func ValidLogLevel(logLevel string) bool {
	_, ok := btclog.LevelFromString(logLevel)
	return ok
}

// Subsystems returns the sorted list of subsystem tags.
func Subsystems() []string {
	ids := make([]string, 0, len(subsystemLoggers))
	for id := range subsystemLoggers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NewWriterLogger returns a standalone logger writing to w, for tools and tests
// that should not share the global backend.
func NewWriterLogger(w io.Writer, tag string, level btclog.Level) btclog.Logger {
	logger := btclog.NewBackend(w).Logger(tag)
	logger.SetLevel(level)
	return logger
}
