package handlers

import (
	"testing"
	"time"
)

func TestWindowThrottle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	throttle := newWindowThrottle(1, 10*time.Second, func() time.Time { return now })

	if ok, _ := throttle.Allow("u1"); !ok {
		t.Fatalf("first attempt should pass")
	}
	now = now.Add(4 * time.Second)
	ok, retry := throttle.Allow("u1")
	if ok {
		t.Fatalf("second attempt should be throttled")
	}
	if retry != 6*time.Second {
		t.Fatalf("expected retry after 6s, got %s", retry)
	}
	now = now.Add(6 * time.Second)
	if ok, _ := throttle.Allow("u1"); !ok {
		t.Fatalf("attempt after window should pass")
	}
}

func TestNewWindowThrottleDisabled(t *testing.T) {
	if throttle := newWindowThrottle(0, time.Minute, nil); throttle != nil {
		t.Fatalf("expected nil throttle for zero limit")
	}
	if throttle := newWindowThrottle(3, 0, nil); throttle != nil {
		t.Fatalf("expected nil throttle for zero window")
	}
}
