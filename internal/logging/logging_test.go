package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewBuildsLogger(t *testing.T) {
	for _, debug := range []bool{false, true} {
		l, err := New(debug)
		if err != nil {
			t.Fatalf("New(%v): %v", debug, err)
		}
		if got := l.Core().Enabled(zap.DebugLevel); got != debug {
			t.Fatalf("New(%v) debug enabled = %v", debug, got)
		}
	}
}

func TestNewWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, false)
	l.Debug("hidden")
	l.Info("row repaired", zap.Int("line", 3))
	_ = l.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at info level: %q", out)
	}
	if !strings.Contains(out, "INFO") || !strings.Contains(out, `"line": 3`) {
		t.Fatalf("unexpected output: %q", out)
	}
}
