package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSpinnerStartStop(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "Generating query", 10*time.Millisecond, true)
	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.Stop()
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "Generating query") {
		t.Errorf("expected spinner message, got %q", out)
	}
	if !strings.HasSuffix(out, "\r\033[K") {
		t.Errorf("expected the line to be cleared on stop, got %q", out)
	}
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	NewSpinner(&buf, "idle", 0, true).Stop()
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestWithSpinner(t *testing.T) {
	var buf bytes.Buffer
	err := WithSpinner(&buf, "Generating query", true, func() error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "✓ Generating query") {
		t.Errorf("expected success line, got %q", buf.String())
	}

	buf.Reset()
	boom := errors.New("boom")
	err = WithSpinner(&buf, "Generating query", true, func() error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error, got %v", err)
	}
	if !strings.Contains(buf.String(), "❌ Generating query failed") {
		t.Errorf("expected failure line, got %q", buf.String())
	}
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, 4, "Warming", true)

	bar.Add(1)
	if !strings.Contains(buf.String(), " 25% Warming") {
		t.Errorf("expected 25%%, got %q", buf.String())
	}

	bar.Add(10)
	if !strings.Contains(buf.String(), "100% Warming") {
		t.Errorf("expected progress capped at 100%%, got %q", buf.String())
	}

	buf.Reset()
	bar.Finish()
	if !strings.HasSuffix(buf.String(), "\n") || strings.Count(buf.String(), "█") != 40 {
		t.Errorf("expected a full bar and a newline, got %q", buf.String())
	}
}

func TestProgressBarZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, 0, "Nothing", true)
	bar.Add(1)
	if buf.Len() != 0 {
		t.Errorf("expected no output for a zero total, got %q", buf.String())
	}
}
