package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewTestLogger(t *testing.T) {
	logger := NewTestLogger()
	require.NotNil(t, logger)

	logger.Info("test message")
	logger.Infow("test message with fields", "key", "value")
}

func TestNewObservedLogger(t *testing.T) {
	logger, logs := NewObservedLogger(zapcore.WarnLevel)
	logger.Infow("dropped", "jobID", "a")
	logger.Warnw("kept", JobFields("b", 2)...)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Message)
	assert.Equal(t, map[string]interface{}{"jobID": "b", "attempt": int64(2)}, entries[0].ContextMap())
}
