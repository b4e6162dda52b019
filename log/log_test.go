package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/hatlonely/odbx/log/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	original := Default()
	require.NotNil(t, original)
	defer SetDefault(original)

	var buf bytes.Buffer
	SetDefault(logger.NewSLog(slog.New(slog.NewTextHandler(&buf, nil))))
	Default().Info("hello", "key", "value")
	assert.True(t, strings.Contains(buf.String(), "key=value"))

	SetDefault(nil)
	Default().Info("again")
	assert.True(t, strings.Contains(buf.String(), "again"))

	SetDefault(Discard())
	Default().Info("dropped")
	assert.False(t, strings.Contains(buf.String(), "dropped"))
}

func TestNewLoggerWithOptions(t *testing.T) {
	l, err := NewLoggerWithOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), l)

	l, err = NewLoggerWithOptions(&logger.SLogOptions{Level: "debug", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = NewLoggerWithOptions(&logger.SLogOptions{Level: "verbose"})
	assert.Error(t, err)
}
