package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("info", &buf)
	require.NoError(t, err)

	logger.Debugw("hidden", "port", "/dev/ttyUSB0")
	logger.Warnw("cannot open candidate", "port", "/dev/ttyUSB1")
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "cannot open candidate")
	assert.Contains(t, out, `"port": "/dev/ttyUSB1"`)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New("loud", &bytes.Buffer{})
	assert.Error(t, err)
}
