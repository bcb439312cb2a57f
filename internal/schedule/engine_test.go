package schedule

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/buskabout/buskabout/internal/model"
    "github.com/buskabout/buskabout/internal/repository"
    "github.com/buskabout/buskabout/internal/timeutil"
)

// fakeStore is an in-memory Store recording every mutation.
type fakeStore struct {
    rows        map[uint64]model.Schedule
    nextID      uint64
    updates     int
    bulkDeletes [][]uint64
}

func newFakeStore(rows ...model.Schedule) *fakeStore {
    f := &fakeStore{rows: map[uint64]model.Schedule{}, nextID: 100}
    for _, s := range rows {
        f.rows[s.ID] = s
    }
    return f
}

func (f *fakeStore) ListAll(ctx context.Context) ([]model.Schedule, error) {
    out := make([]model.Schedule, 0, len(f.rows))
    for _, s := range f.rows {
        out = append(out, s)
    }
    return out, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uint64) (*model.Schedule, error) {
    s, ok := f.rows[id]
    if !ok {
        return nil, repository.ErrScheduleNotFound
    }
    return &s, nil
}

func (f *fakeStore) Insert(ctx context.Context, s *model.Schedule) error {
    f.nextID++
    s.ID = f.nextID
    f.rows[s.ID] = *s
    return nil
}

func (f *fakeStore) UpdateTimesByOwner(ctx context.Context, id, buskerID uint64, startTime, endTime string) error {
    s, ok := f.rows[id]
    if !ok {
        return repository.ErrScheduleNotFound
    }
    if s.BuskerID != buskerID {
        return repository.ErrForbidden
    }
    f.updates++
    s.StartTime, s.EndTime = startTime, endTime
    f.rows[id] = s
    return nil
}

func (f *fakeStore) DeleteByIDAndOwner(ctx context.Context, id, buskerID uint64) error {
    s, ok := f.rows[id]
    if !ok {
        return repository.ErrScheduleNotFound
    }
    if s.BuskerID != buskerID {
        return repository.ErrForbidden
    }
    delete(f.rows, id)
    return nil
}

func (f *fakeStore) DeleteByIDs(ctx context.Context, ids []uint64) error {
    f.bulkDeletes = append(f.bulkDeletes, ids)
    for _, id := range ids {
        delete(f.rows, id)
    }
    return nil
}

// fakeProfiles maps user ids to busker profiles.
type fakeProfiles map[uint64]model.Busker

func (f fakeProfiles) GetByUserID(ctx context.Context, userID uint64) (*model.Busker, error) {
    b, ok := f[userID]
    if !ok {
        return nil, repository.ErrBuskerNotFound
    }
    return &b, nil
}

// stepClock is a settable clock for driving the sweep.
type stepClock struct {
    mu  sync.Mutex
    now time.Time
}

func (c *stepClock) Now() time.Time {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.now
}

func (c *stepClock) set(t time.Time) {
    c.mu.Lock()
    c.now = t
    c.mu.Unlock()
}

func melbDate(y int, m time.Month, d, hour, min int) time.Time {
    return time.Date(y, m, d, hour, min, 0, 0, timeutil.Zone())
}

const (
    aliceUser = uint64(1)
    bobUser   = uint64(2)
    noProfile = uint64(99)
    aliceID   = uint64(10)
    bobID     = uint64(20)
)

func testProfiles() fakeProfiles {
    return fakeProfiles{
        aliceUser: {ID: aliceID, UserID: aliceUser, Username: "alice_sax", Genre: "Musician", MainPhoto: "/storage/buskers/1/a.jpg", Description: "saxophone"},
        bobUser:   {ID: bobID, UserID: bobUser, Username: "bob_mime", Genre: "Performer"},
    }
}

func TestActiveFiltersAndDeletesExpired(t *testing.T) {
    now := melbDate(2025, 6, 2, 12, 0)
    live := model.Schedule{ID: 1, BuskerID: aliceID, Date: "2025-06-02", StartTime: "11:00", EndTime: "13:00"}
    yesterday := model.Schedule{ID: 2, BuskerID: aliceID, Date: "2025-06-01", StartTime: "11:00", EndTime: "13:00"}
    endedToday := model.Schedule{ID: 3, BuskerID: bobID, Date: "2025-06-02", StartTime: "09:00", EndTime: "11:00"}

    store := newFakeStore(live, yesterday, endedToday)
    var notified []model.Schedule
    e := NewEngine(store, testProfiles(), timeutil.NewFixedClock(now),
        func(ctx context.Context, rows []model.Schedule) { notified = append(notified, rows...) })

    got, err := e.Active(context.Background())
    if err != nil {
        t.Fatalf("Active: %v", err)
    }
    if len(got) != 1 || got[0].ID != live.ID {
        t.Fatalf("Active = %+v, want only row %d", got, live.ID)
    }
    if len(store.bulkDeletes) != 1 || len(store.bulkDeletes[0]) != 2 {
        t.Fatalf("bulk deletes = %+v, want one call with 2 ids", store.bulkDeletes)
    }
    if len(notified) != 2 {
        t.Fatalf("expiry callback saw %d rows, want 2", len(notified))
    }
    if ids := e.VisibleIDs(); len(ids) != 1 || ids[0] != live.ID {
        t.Fatalf("VisibleIDs = %v, want [%d]", ids, live.ID)
    }
}

func TestActiveOrdersByDateThenStart(t *testing.T) {
    now := melbDate(2025, 6, 2, 10, 0)
    a := model.Schedule{ID: 1, BuskerID: aliceID, Date: "2025-06-03", StartTime: "09:00", EndTime: "10:00"}
    b := model.Schedule{ID: 2, BuskerID: aliceID, Date: "2025-06-02", StartTime: "18:00", EndTime: "19:00"}
    c := model.Schedule{ID: 3, BuskerID: bobID, Date: "2025-06-02", StartTime: "11:00", EndTime: "12:00"}

    e := NewEngine(newFakeStore(a, b, c), testProfiles(), timeutil.NewFixedClock(now), nil)
    got, err := e.Active(context.Background())
    if err != nil {
        t.Fatalf("Active: %v", err)
    }
    wantOrder := []uint64{3, 2, 1}
    for i, w := range wantOrder {
        if got[i].ID != w {
            t.Fatalf("order = %v, want ids %v", got, wantOrder)
        }
    }
}

func TestCreateSnapshotsProfile(t *testing.T) {
    now := melbDate(2025, 6, 2, 10, 0)
    store := newFakeStore()
    e := NewEngine(store, testProfiles(), timeutil.NewFixedClock(now), nil)

    s, err := e.Create(context.Background(), aliceUser, CreateInput{
        Lat: -37.8136, Lng: 144.9631, StartTime: "10:30", EndTime: "11:30",
    })
    if err != nil {
        t.Fatalf("Create: %v", err)
    }
    if s.ID == 0 {
        t.Fatal("Create did not assign an id")
    }
    if s.Date != "2025-06-02" {
        t.Fatalf("Date = %q, want today", s.Date)
    }
    if s.BuskerID != aliceID || s.Username != "alice_sax" || s.Genre != "Musician" || s.Description != "saxophone" {
        t.Fatalf("snapshot fields wrong: %+v", s)
    }
    if ids := e.VisibleIDs(); len(ids) != 1 || ids[0] != s.ID {
        t.Fatalf("VisibleIDs = %v, want [%d]", ids, s.ID)
    }
}

func TestCreateRejections(t *testing.T) {
    now := melbDate(2025, 6, 2, 10, 0)

    t.Run("no profile", func(t *testing.T) {
        store := newFakeStore()
        e := NewEngine(store, testProfiles(), timeutil.NewFixedClock(now), nil)
        _, err := e.Create(context.Background(), noProfile, CreateInput{StartTime: "10:30", EndTime: "11:30"})
        if !errors.Is(err, ErrNoProfile) {
            t.Fatalf("err = %v, want ErrNoProfile", err)
        }
        if len(store.rows) != 0 {
            t.Fatal("store written despite missing profile")
        }
    })

    t.Run("window violation leaves store untouched", func(t *testing.T) {
        store := newFakeStore()
        e := NewEngine(store, testProfiles(), timeutil.NewFixedClock(now), nil)
        _, err := e.Create(context.Background(), aliceUser, CreateInput{StartTime: "12:00", EndTime: "13:00"})
        if !errors.Is(err, ErrStartOutOfWindow) {
            t.Fatalf("err = %v, want ErrStartOutOfWindow", err)
        }
        if len(store.rows) != 0 || len(e.VisibleIDs()) != 0 {
            t.Fatal("rejected create still mutated state")
        }
    })
}

func TestEditTimesOwnership(t *testing.T) {
    now := melbDate(2025, 6, 2, 10, 0)
    row := model.Schedule{ID: 1, BuskerID: aliceID, Date: "2025-06-02", StartTime: "10:00", EndTime: "11:00"}

    t.Run("non-owner rejected before any write", func(t *testing.T) {
        store := newFakeStore(row)
        e := NewEngine(store, testProfiles(), timeutil.NewFixedClock(now), nil)
        _, err := e.EditTimes(context.Background(), bobUser, row.ID, "10:30", "11:30")
        if !errors.Is(err, repository.ErrForbidden) {
            t.Fatalf("err = %v, want ErrForbidden", err)
        }
        if store.updates != 0 {
            t.Fatal("store updated for a non-owner")
        }
    })

    t.Run("owner succeeds", func(t *testing.T) {
        store := newFakeStore(row)
        e := NewEngine(store, testProfiles(), timeutil.NewFixedClock(now), nil)
        if _, err := e.Active(context.Background()); err != nil {
            t.Fatalf("Active: %v", err)
        }
        s, err := e.EditTimes(context.Background(), aliceUser, row.ID, "10:15", "12:15")
        if err != nil {
            t.Fatalf("EditTimes: %v", err)
        }
        if s.StartTime != "10:15" || s.EndTime != "12:15" {
            t.Fatalf("times not updated: %+v", s)
        }
        if got := store.rows[row.ID]; got.StartTime != "10:15" {
            t.Fatalf("store row not updated: %+v", got)
        }
    })

    t.Run("missing schedule", func(t *testing.T) {
        store := newFakeStore()
        e := NewEngine(store, testProfiles(), timeutil.NewFixedClock(now), nil)
        _, err := e.EditTimes(context.Background(), aliceUser, 404, "10:30", "11:30")
        if !errors.Is(err, repository.ErrScheduleNotFound) {
            t.Fatalf("err = %v, want ErrScheduleNotFound", err)
        }
    })
}

func TestDeleteOwnership(t *testing.T) {
    now := melbDate(2025, 6, 2, 10, 0)
    row := model.Schedule{ID: 1, BuskerID: aliceID, Date: "2025-06-02", StartTime: "10:00", EndTime: "11:00"}

    t.Run("non-owner rejected", func(t *testing.T) {
        store := newFakeStore(row)
        e := NewEngine(store, testProfiles(), timeutil.NewFixedClock(now), nil)
        if err := e.Delete(context.Background(), bobUser, row.ID); !errors.Is(err, repository.ErrForbidden) {
            t.Fatalf("err = %v, want ErrForbidden", err)
        }
        if _, ok := store.rows[row.ID]; !ok {
            t.Fatal("row deleted by a non-owner")
        }
    })

    t.Run("owner succeeds", func(t *testing.T) {
        store := newFakeStore(row)
        e := NewEngine(store, testProfiles(), timeutil.NewFixedClock(now), nil)
        if _, err := e.Active(context.Background()); err != nil {
            t.Fatalf("Active: %v", err)
        }
        if err := e.Delete(context.Background(), aliceUser, row.ID); err != nil {
            t.Fatalf("Delete: %v", err)
        }
        if _, ok := store.rows[row.ID]; ok {
            t.Fatal("row still in store")
        }
        if len(e.VisibleIDs()) != 0 {
            t.Fatal("row still visible")
        }
    })
}

func TestOwns(t *testing.T) {
    now := melbDate(2025, 6, 2, 10, 0)
    row := model.Schedule{ID: 1, BuskerID: aliceID, Date: "2025-06-02", StartTime: "10:00", EndTime: "11:00"}
    e := NewEngine(newFakeStore(row), testProfiles(), timeutil.NewFixedClock(now), nil)

    ctx := context.Background()
    if !e.Owns(ctx, aliceUser, row.ID) {
        t.Error("owner not recognized")
    }
    if e.Owns(ctx, bobUser, row.ID) {
        t.Error("non-owner recognized as owner")
    }
    if e.Owns(ctx, noProfile, row.ID) {
        t.Error("user without profile recognized as owner")
    }
    if e.Owns(ctx, aliceUser, 404) {
        t.Error("missing schedule reported as owned")
    }
}

func TestSweepRemovesNewlyExpired(t *testing.T) {
    clk := &stepClock{now: melbDate(2025, 6, 2, 12, 0)}
    row := model.Schedule{ID: 1, BuskerID: aliceID, Date: "2025-06-02", StartTime: "11:00", EndTime: "13:00"}
    store := newFakeStore(row)

    var notified []model.Schedule
    e := NewEngine(store, testProfiles(), clk,
        func(ctx context.Context, rows []model.Schedule) { notified = append(notified, rows...) })

    ctx := context.Background()
    if _, err := e.Active(ctx); err != nil {
        t.Fatalf("Active: %v", err)
    }
    e.Sweep(ctx)
    if len(e.VisibleIDs()) != 1 {
        t.Fatal("sweep removed a still-live schedule")
    }

    clk.set(melbDate(2025, 6, 2, 13, 30))
    e.Sweep(ctx)
    if len(e.VisibleIDs()) != 0 {
        t.Fatal("sweep left an expired schedule visible")
    }
    if _, ok := store.rows[row.ID]; ok {
        t.Fatal("sweep did not delete the expired row from the store")
    }
    if len(notified) != 1 || notified[0].ID != row.ID {
        t.Fatalf("expiry callback saw %+v, want row %d", notified, row.ID)
    }
}
