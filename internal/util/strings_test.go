package util

import "testing"

func TestTruncateRunes_ShorterThanLimit(t *testing.T) {
	got := TruncateRunes("hello", 10)
	if got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
}

func TestTruncateRunes_LongerThanLimit(t *testing.T) {
	got := TruncateRunes("hello world", 5)
	want := "hello..."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTruncateRunes_ZeroOrNegativeLimitReturnsUnchanged(t *testing.T) {
	if got := TruncateRunes("hello", 0); got != "hello" {
		t.Errorf("limit 0: got %q, want unchanged", got)
	}
	if got := TruncateRunes("hello", -1); got != "hello" {
		t.Errorf("limit -1: got %q, want unchanged", got)
	}
}

func TestTruncateRunes_MultibyteRunes(t *testing.T) {
	got := TruncateRunes("héllo wörld", 3)
	want := "hél..."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
