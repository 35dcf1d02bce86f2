package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(DEBUG)
	t.Cleanup(func() {
		SetLevel(INFO)
	})
	return &buf
}

func TestInfoWritesStructuredFields(t *testing.T) {
	buf := capture(t)

	Info("report finished", "report_id", "r-1", "rows", 42, "stable", true, "err", errors.New("boom"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "report finished", entry["message"])
	assert.Equal(t, "r-1", entry["report_id"])
	assert.Equal(t, float64(42), entry["rows"])
	assert.Equal(t, true, entry["stable"])
	assert.Equal(t, "boom", entry["err"])
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)
	SetLevel(WARN)

	Debug("hidden")
	Info("hidden")
	Warn("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "shown")
}

func TestRedaction(t *testing.T) {
	buf := capture(t)

	Info("summary sent", "recipient", "john.doe@example.com", "note", "cc ops@example.com")

	out := buf.String()
	assert.NotContains(t, out, "john.doe@example.com")
	assert.Contains(t, out, "jo***@example.com")
	assert.Contains(t, out, "op***@example.com")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("Warning"))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel(""))
	assert.Equal(t, INFO, ParseLevel("loud"))
}

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", RedactEmail("john.doe@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
}
