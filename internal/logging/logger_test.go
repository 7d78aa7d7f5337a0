package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warn")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "id", "abc")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "id=abc")
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "chatty")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chatty")
}

func TestDiscard_LogsNothingAtAnyLevel(t *testing.T) {
	logger := Discard()

	assert.NotPanics(t, func() {
		logger.Debug("dropped")
		logger.Error("dropped", "id", "abc")
		logger.WithPrefix("docker").Info("dropped")
	})
}
