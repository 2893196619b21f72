package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTo(t *testing.T) {
	var buf bytes.Buffer
	log := NewTo(&buf, "prod")
	log.Debug("hidden")
	log.Info("drink redeemed", "remaining", 2)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "drink redeemed", line["msg"])
	assert.Equal(t, "coffee-club", line["service"])
	assert.EqualValues(t, 2, line["remaining"])

	buf.Reset()
	NewTo(&buf, "dev").Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
