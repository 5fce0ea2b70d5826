package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestSpinnerLifecycle_StopWithSuccess(t *testing.T) {
	var out bytes.Buffer
	s := newSpinner(&out, "Waiting")
	s.start()
	// Let it spin briefly
	time.Sleep(200 * time.Millisecond)
	s.stopWithSuccess("done")

	if !strings.Contains(out.String(), "Waiting") {
		t.Error("expected at least one frame with the message")
	}
	if !strings.Contains(out.String(), "done") {
		t.Error("expected success message")
	}
}

func TestSpinnerLifecycle_StopWithError(t *testing.T) {
	var out bytes.Buffer
	s := newSpinner(&out, "Waiting")
	s.start()
	time.Sleep(30 * time.Millisecond)
	// Should stop cleanly on error (no panic)
	s.stopWithError()
	// Stopping twice is safe
	s.stopOnce()
}
