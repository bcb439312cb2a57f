package timeutil

import (
    "testing"
    "time"
)

func TestFormatDateAndClockUseMelbourne(t *testing.T) {
    // 2025-03-09 23:30 UTC is 2025-03-10 10:30 in Melbourne (AEDT, +11).
    utc := time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC)
    if got := FormatDate(utc); got != "2025-03-10" {
        t.Fatalf("FormatDate = %q, want 2025-03-10", got)
    }
    if got := FormatClock(utc); got != "10:30" {
        t.Fatalf("FormatClock = %q, want 10:30", got)
    }
}

func TestParseClock(t *testing.T) {
    h, m, err := ParseClock("09:45")
    if err != nil {
        t.Fatalf("ParseClock: %v", err)
    }
    if h != 9 || m != 45 {
        t.Fatalf("ParseClock = %d:%d, want 9:45", h, m)
    }
    for _, bad := range []string{"", "9:45pm", "25:00", "aa:bb"} {
        if _, _, err := ParseClock(bad); err == nil {
            t.Errorf("ParseClock(%q) accepted invalid input", bad)
        }
    }
}

func TestOnDateCombinesMelbourneDay(t *testing.T) {
    base := time.Date(2025, 6, 1, 10, 0, 0, 0, Zone())
    got, err := OnDate(base, "14:30")
    if err != nil {
        t.Fatalf("OnDate: %v", err)
    }
    want := time.Date(2025, 6, 1, 14, 30, 0, 0, Zone())
    if !got.Equal(want) {
        t.Fatalf("OnDate = %v, want %v", got, want)
    }
}

func TestFixedClock(t *testing.T) {
    at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
    c := NewFixedClock(at)
    if !c.Now().Equal(at) {
        t.Fatalf("fixed clock drifted: %v", c.Now())
    }
}
