package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStdLoggerWritesLevelAndArgs(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Env: "TEST", Output: &buf})

	l.Info("server started")
	l.Error("insert failed", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "[INFO] server started")
	assert.Contains(t, out, "[ERROR] insert failed")
	assert.Contains(t, out, "boom")
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Warn("ignored", map[string]interface{}{"k": 1})
	})
}
