package log

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevels(t *testing.T) {
	SetLogLevels("debug")
	for _, id := range Subsystems() {
		assert.Equal(t, btclog.LevelDebug, subsystemLoggers[id].Level(), id)
	}
	SetLogLevel("MINR", "warn")
	assert.Equal(t, btclog.LevelWarn, Miner.Level())

	// unknown subsystems are ignored
	SetLogLevel("NOPE", "error")
	SetLogLevels("info")
	assert.Equal(t, btclog.LevelInfo, Miner.Level())
}

func TestValidLogLevel(t *testing.T) {
	assert.True(t, ValidLogLevel("trace"))
	assert.True(t, ValidLogLevel("critical"))
	assert.False(t, ValidLogLevel("verbose"))
}

func TestNewWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, "TEST", btclog.LevelInfo)
	logger.Debugf("hidden")
	logger.Infof("shown %d", 42)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[INF] TEST: shown 42")
}

func TestInitLogRotator(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "pimine.log")
	require.NoError(t, InitLogRotator(file))
	Config.Infof("rotator test")
	CloseLogRotator()
	assert.FileExists(t, file)
}
