package trace

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelGate(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	l.Debug("should be dropped")
	l.Info("should be dropped")
	if buf.Len() != 0 {
		t.Errorf("below-level output not suppressed: %q", buf.String())
	}

	l.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("warn output missing: %q", buf.String())
	}
}

func TestKeyValuePairs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	l.Error("boom", "queue", 3, "pending", 10)

	out := buf.String()
	for _, want := range []string{"boom", "queue", "3", "pending", "10"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestFormattedVariants(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	l.Infof("worker %d exited", 2)
	if !strings.Contains(buf.String(), "worker 2 exited") {
		t.Errorf("formatted output missing: %q", buf.String())
	}
}

func TestDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))
	Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("default logger output missing: %q", buf.String())
	}
}
