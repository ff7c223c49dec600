package service

import (
	"testing"
	"time"
)

func TestClockTodayUsesConfiguredZone(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	// UTC 16:30 已是上海次日 00:30
	instant := time.Date(2026, 10, 14, 16, 30, 0, 0, time.UTC)

	clock := Clock{now: func() time.Time { return instant }, loc: shanghai}
	if got, want := clock.Today(), time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}

	utc := Clock{now: func() time.Time { return instant }}
	if got, want := utc.Today(), time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
