package core

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, log.WarnLevel, "test")

	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("shown", "width", 800)
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "width=800")
}

func TestSetLogLevel(t *testing.T) {
	assert.NoError(t, SetLogLevel("info"))
	assert.Equal(t, log.InfoLevel, Logger().GetLevel())
	assert.Error(t, SetLogLevel("loud"))
	assert.NoError(t, SetLogLevel("debug"))
}
