package main

import (
	"bytes"
	"strings"
	"testing"

	"crazypanel/internal/stage"
)

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("Upload", statusOK, "Uploaded ✓  (2.0 KB)", false)
	if line != "  Upload:      [OK] Uploaded ✓  (2.0 KB)" {
		t.Fatalf("unexpected line %q", line)
	}
}

func TestRenderStatusLineColor(t *testing.T) {
	line := renderStatusLine("Run now", statusError, "Run-now failed", true)
	if !strings.HasPrefix(line, ansiRed) || !strings.HasSuffix(line, ansiReset) {
		t.Fatalf("expected red wrapped line, got %q", line)
	}
}

func TestOutcomeStatus(t *testing.T) {
	cases := map[stage.Outcome]statusKind{
		stage.Succeeded:   statusOK,
		stage.Rejected:    statusWarn,
		stage.Failed:      statusError,
		stage.OutcomeNone: statusInfo,
	}
	for outcome, want := range cases {
		if got := outcomeStatus(outcome); got != want {
			t.Fatalf("outcomeStatus(%s) = %d, want %d", outcome, got, want)
		}
	}
}

func TestShouldColorizeIgnoresBuffers(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers are never terminals")
	}
}
