package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	out, formatter, level := Logger.Out, Logger.Formatter, Logger.Level
	Logger.Out = &buf
	t.Cleanup(func() {
		Logger.Out, Logger.Formatter, Logger.Level = out, formatter, level
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, lvl)

	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}

func TestSetLevel(t *testing.T) {
	buf := capture(t)
	SetLevel(WarnLevel)

	Info("hidden")
	Warnf("shown %d", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 1")
}

func TestSetFormat_JSON(t *testing.T) {
	buf := capture(t)
	SetLevel(InfoLevel)
	SetFormat("json")

	WithFields(Fields{"form": "f1"}).Info("submitted")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "submitted", entry["msg"])
	assert.Equal(t, "f1", entry["form"])
	assert.Equal(t, "info", entry["level"])

	SetFormat("text")
	assert.IsType(t, &logrus.TextFormatter{}, Logger.Formatter)
}
