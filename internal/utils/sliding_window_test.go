package utils

import (
	"testing"
	"time"
)

func TestSlidingWindowAdd(t *testing.T) {
	window := NewSlidingWindow(2 * time.Second)
	now := time.Now()
	if count := window.Add(now); count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}
	window.Add(now.Add(500 * time.Millisecond))
	if count := window.Count(now.Add(1 * time.Second)); count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}
	if count := window.Count(now.Add(3 * time.Second)); count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
}

func TestFloodGuardPerKey(t *testing.T) {
	guard := NewFloodGuard(2, 10*time.Second)
	now := time.Unix(1000, 0)

	if !guard.Allow("u1", now) || !guard.Allow("u1", now.Add(time.Second)) {
		t.Fatalf("expected first two messages to pass")
	}
	if guard.Allow("u1", now.Add(2*time.Second)) {
		t.Fatalf("expected third message inside window to be rejected")
	}
	if !guard.Allow("u2", now.Add(2*time.Second)) {
		t.Fatalf("expected other user to be unaffected")
	}
	if !guard.Allow("u1", now.Add(30*time.Second)) {
		t.Fatalf("expected window to reset")
	}
	if removed := guard.Sweep(now.Add(time.Hour)); removed != 2 {
		t.Fatalf("expected 2 idle windows swept, got %d", removed)
	}
}

func TestFloodGuardDisabled(t *testing.T) {
	guard := NewFloodGuard(0, time.Second)
	for i := 0; i < 100; i++ {
		if !guard.Allow("u1", time.Unix(0, 0)) {
			t.Fatalf("expected disabled guard to allow everything")
		}
	}
}
