package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m), buf.String())
	buf.Reset()
	return m
}

func TestFieldsAreTyped(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "debug")

	l.Warn("provider call failed",
		String("source", "weather"),
		Int("status", 503),
		Float64("score", 47.5),
		Bool("cached", false),
		Duration("duration_ms", 1500*time.Millisecond),
		Strings("brokers", []string{"k1", "k2"}),
		Error(errors.New("boom")),
	)
	m := decodeLine(t, &buf)

	assert.Equal(t, "warn", m["level"])
	assert.Equal(t, "provider call failed", m["message"])
	assert.Equal(t, "weather", m["source"])
	assert.Equal(t, float64(503), m["status"])
	assert.Equal(t, 47.5, m["score"])
	assert.Equal(t, false, m["cached"])
	assert.Equal(t, float64(1500), m["duration_ms"])
	assert.Equal(t, "k1, k2", m["brokers"])
	assert.Equal(t, "boom", m["error"])
}

func TestWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "info").With(Component("engine"), Error(errors.New("cause")))

	l.Info("cycle complete", Any("overall", 88.9))
	m := decodeLine(t, &buf)
	assert.Equal(t, "engine", m["component"])
	assert.Equal(t, "cause", m["error"])
	assert.Equal(t, 88.9, m["overall"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "warn")

	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())
	assert.False(t, l.Enabled("info"))
	assert.True(t, l.Enabled("error"))

	l.Error("shown")
	assert.Equal(t, "shown", decodeLine(t, &buf)["message"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestNopWritesNothing(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().With(String("k", "v")).Error("ignored", Error(nil))
	})
}
