package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleScopingNests(t *testing.T) {
	t.Parallel()

	log, logs := NewObserved(LogLevelDebug)
	log.Module("capture").Module("malgo").Info("device started")

	entries := logs.All()
	require.Len(t, entries, 1)

	module, ok := FieldValue(entries[0], "module")
	require.True(t, ok)
	assert.Equal(t, "capture.malgo", module)
}

func TestWithFieldsPersistAcrossModule(t *testing.T) {
	t.Parallel()

	log, logs := NewObserved(LogLevelDebug)
	scoped := log.With(String("session_id", "abc")).Module("session")
	scoped.Info("first")
	scoped.Warn("second", Int("blocks", 3))

	entries := logs.All()
	require.Len(t, entries, 2)
	for _, e := range entries {
		id, ok := FieldValue(e, "session_id")
		require.True(t, ok)
		assert.Equal(t, "abc", id)
	}

	blocks, ok := FieldValue(entries[1], "blocks")
	require.True(t, ok)
	assert.EqualValues(t, 3, blocks)
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	log, logs := NewObserved(LogLevelWarn)
	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	log.Log(LogLevelError, "shown too")

	assert.Equal(t, 2, logs.Len())
}

func TestFieldConstructors(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("boom")
	assert.Equal(t, Field{Key: "error", Value: err}, Error(err))
	assert.Nil(t, Error(nil).Value)
	assert.Equal(t, time.Second, Duration("d", time.Second).Value)
	assert.Equal(t, uint64(5), Uint64("u", 5).Value)
}

func TestNewLoggerWritesJSONFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.log")
	log, err := NewLogger(Config{Level: "debug", JSON: true, OutputPath: path})
	require.NoError(t, err)

	log.Module("ringbuffer").Info("created", Int("capacity_bytes", 4096))
	require.NoError(t, log.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"module":"ringbuffer"`)
	assert.Contains(t, string(data), `"capacity_bytes":4096`)
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	t.Parallel()

	_, err := NewLogger(Config{Level: "loud"})
	assert.Error(t, err)
}
