package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func reset() {
	SetVerbose(false)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("resolving ancestors of %s", "intercom-collection-1-c1")

	out := buf.String()
	if !strings.Contains(out, "DEBUG") {
		t.Errorf("expected DEBUG level in output: %q", out)
	}
	if !strings.Contains(out, "resolving ancestors of intercom-collection-1-c1") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("hidden")
	Section("hidden")

	if buf.Len() != 0 {
		t.Errorf("expected no output when verbose is disabled, got %q", buf.String())
	}
}

func TestWarnAndError_AlwaysEmitted(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Warn("failed to delete connection %s", "conn-1")
	Error("signal failed: %v", "boom")

	out := buf.String()
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "failed to delete connection conn-1") {
		t.Errorf("missing warning: %q", out)
	}
	if !strings.Contains(out, "ERROR") || !strings.Contains(out, "signal failed: boom") {
		t.Errorf("missing error: %q", out)
	}
}

func TestL_StructuredFields(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	L().Infow("permissions applied", "connector_id", 42)

	if !strings.Contains(buf.String(), `"connector_id": 42`) {
		t.Errorf("missing structured field: %q", buf.String())
	}
}
