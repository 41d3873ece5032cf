package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelsFilterAndFormat(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)
	t.Cleanup(func() {
		SetLevel(LevelInfo)
		_ = Close()
	})

	Info("hidden", "k", 1)
	Warn("no event for slug", "slug", "abc")
	Error("fetch failed", errors.New("boom"), "url", "x")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] no event for slug slug=abc")
	assert.Contains(t, out, "[ERROR] fetch failed err=boom url=x")
}

func TestFormatKVsIgnoresDanglingKey(t *testing.T) {
	assert.Equal(t, " a=1", formatKVs("a", 1, "b"))
	assert.Equal(t, " b=2", formatKVs(3, "skip", "b", 2))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}
