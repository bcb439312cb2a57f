package schedule

import (
    "errors"
    "testing"
    "time"

    "github.com/buskabout/buskabout/internal/model"
    "github.com/buskabout/buskabout/internal/timeutil"
)

// melb builds a Melbourne-local instant on a fixed test date.
func melb(hour, min int) time.Time {
    return time.Date(2025, 6, 2, hour, min, 0, 0, timeutil.Zone())
}

func TestValidateWindowCreate(t *testing.T) {
    now := melb(10, 0)

    t.Run("within start window and duration", func(t *testing.T) {
        start, end, err := validateWindow(now, "10:30", "11:30", true)
        if err != nil {
            t.Fatalf("validateWindow: %v", err)
        }
        if got := end.Sub(start); got != time.Hour {
            t.Fatalf("duration = %v, want 1h", got)
        }
    })

    t.Run("start too far ahead", func(t *testing.T) {
        _, _, err := validateWindow(now, "12:00", "13:00", true)
        if !errors.Is(err, ErrStartOutOfWindow) {
            t.Fatalf("err = %v, want ErrStartOutOfWindow", err)
        }
    })

    t.Run("start in the past", func(t *testing.T) {
        _, _, err := validateWindow(now, "09:30", "10:30", true)
        if !errors.Is(err, ErrStartOutOfWindow) {
            t.Fatalf("err = %v, want ErrStartOutOfWindow", err)
        }
    })

    t.Run("overnight wraparound", func(t *testing.T) {
        late := melb(23, 0)
        start, end, err := validateWindow(late, "23:30", "01:00", true)
        if err != nil {
            t.Fatalf("validateWindow: %v", err)
        }
        if got := end.Sub(start); got != 90*time.Minute {
            t.Fatalf("duration = %v, want 1h30m", got)
        }
    })

    t.Run("longer than three hours", func(t *testing.T) {
        _, _, err := validateWindow(now, "10:00", "14:00", true)
        if !errors.Is(err, ErrTooLong) {
            t.Fatalf("err = %v, want ErrTooLong", err)
        }
    })

    t.Run("end equals start", func(t *testing.T) {
        _, _, err := validateWindow(now, "10:30", "10:30", true)
        if !errors.Is(err, ErrEndNotAfterStart) {
            t.Fatalf("err = %v, want ErrEndNotAfterStart", err)
        }
    })

    t.Run("missing times", func(t *testing.T) {
        if _, _, err := validateWindow(now, "", "11:00", true); !errors.Is(err, ErrTimesRequired) {
            t.Fatalf("err = %v, want ErrTimesRequired", err)
        }
        if _, _, err := validateWindow(now, "10:30", "", true); !errors.Is(err, ErrTimesRequired) {
            t.Fatalf("err = %v, want ErrTimesRequired", err)
        }
    })
}

func TestValidateWindowEditSkipsStartWindow(t *testing.T) {
    // An edit may keep a start time fixed hours ago or hours ahead; only the
    // ordering and three-hour rules apply.
    now := melb(10, 0)
    if _, _, err := validateWindow(now, "15:00", "16:00", false); err != nil {
        t.Fatalf("edit with far-future start rejected: %v", err)
    }
    if _, _, err := validateWindow(now, "08:00", "09:00", false); err != nil {
        t.Fatalf("edit with past start rejected: %v", err)
    }
    if _, _, err := validateWindow(now, "15:00", "19:00", false); !errors.Is(err, ErrTooLong) {
        t.Fatalf("err = %v, want ErrTooLong", err)
    }
}

func TestExpired(t *testing.T) {
    now := melb(12, 0) // 2025-06-02 12:00 Melbourne

    cases := []struct {
        name string
        row  model.Schedule
        want bool
    }{
        {"dated yesterday", model.Schedule{Date: "2025-06-01", EndTime: "23:00"}, true},
        {"dated tomorrow", model.Schedule{Date: "2025-06-03", EndTime: "01:00"}, false},
        {"today, ended earlier", model.Schedule{Date: "2025-06-02", EndTime: "11:30"}, true},
        {"today, ends exactly now", model.Schedule{Date: "2025-06-02", EndTime: "12:00"}, true},
        {"today, still running", model.Schedule{Date: "2025-06-02", EndTime: "13:00"}, false},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if got := expired(tc.row, now); got != tc.want {
                t.Fatalf("expired(%+v) = %v, want %v", tc.row, got, tc.want)
            }
        })
    }
}

func TestIsValidationErr(t *testing.T) {
    for _, err := range []error{ErrTimesRequired, ErrStartOutOfWindow, ErrTooLong, ErrEndNotAfterStart} {
        if !IsValidationErr(err) {
            t.Errorf("IsValidationErr(%v) = false", err)
        }
    }
    if IsValidationErr(errors.New("boom")) {
        t.Error("IsValidationErr accepted a foreign error")
    }
}
