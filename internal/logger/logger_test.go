package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesServiceField(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(Options{ServiceName: "cafepos", Level: ParseLevel("debug"), Output: buf})

	l.Info().Str("cart_id", "cart-1").Msg("opened")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "cafepos", entry["service"])
	assert.Equal(t, "cart-1", entry["cart_id"])
	assert.Equal(t, "opened", entry["message"])
}

func TestNewRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(Options{ServiceName: "cafepos", Level: zerolog.WarnLevel, Output: buf})

	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
	l.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestConsoleFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(Options{ServiceName: "cafepos", Format: "console", Output: buf})

	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestParseLevelDefaults(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
}
