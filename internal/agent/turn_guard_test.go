package agent

import (
	"testing"
	"time"
)

func TestTurnGuard_DisabledNeverExceeds(t *testing.T) {
	g := NewTurnGuard(0)
	time.Sleep(10 * time.Millisecond)
	if exceeded, _ := g.Exceeded(); exceeded {
		t.Error("a zero-duration guard must never report exceeded")
	}
}

func TestTurnGuard_ExceedsAfterDeadline(t *testing.T) {
	g := NewTurnGuard(20 * time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	exceeded, elapsed := g.Exceeded()
	if !exceeded {
		t.Error("expected the guard to report exceeded past its deadline")
	}
	if elapsed <= 0 {
		t.Error("expected a positive elapsed duration")
	}
}

func TestTurnGuard_NotYetExceeded(t *testing.T) {
	g := NewTurnGuard(time.Hour)
	if exceeded, _ := g.Exceeded(); exceeded {
		t.Error("should not be exceeded immediately after starting")
	}
}
