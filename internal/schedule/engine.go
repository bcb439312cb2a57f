// Package schedule implements the live-schedule engine behind the map view:
// it keeps the set of currently visible (non-expired) schedules, enforces
// the creation and edit time-window rules, re-checks ownership against the
// store before every mutation, and sweeps out expired rows on a timer.
package schedule

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/buskabout/buskabout/internal/model"
	"github.com/buskabout/buskabout/internal/repository"
	"github.com/buskabout/buskabout/internal/timeutil"
)

// SweepInterval is how often the engine re-evaluates its visible set
// against the Melbourne clock.
const SweepInterval = 60 * time.Second

// ErrNoProfile is returned when a caller without a busker profile attempts
// a schedule operation.
var ErrNoProfile = errors.New("could not find your busker profile")

// Store is the slice of the row store the engine needs.  ScheduleRepo
// satisfies it; tests substitute an in-memory fake.
type Store interface {
	ListAll(ctx context.Context) ([]model.Schedule, error)
	GetByID(ctx context.Context, id uint64) (*model.Schedule, error)
	Insert(ctx context.Context, s *model.Schedule) error
	UpdateTimesByOwner(ctx context.Context, id, buskerID uint64, startTime, endTime string) error
	DeleteByIDAndOwner(ctx context.Context, id, buskerID uint64) error
	DeleteByIDs(ctx context.Context, ids []uint64) error
}

// ProfileStore resolves the caller's busker profile for ownership checks
// and creation snapshots.  BuskerRepo satisfies it.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID uint64) (*model.Busker, error)
}

// ExpiredFunc is notified with the rows removed by an expiry pass.  It must
// not block for long; failures are the callee's to log.
type ExpiredFunc func(ctx context.Context, rows []model.Schedule)

// Engine owns the visible-schedule set.  Every mutation of the set — create,
// edit, delete and the sweep — serializes on mu, since handler goroutines
// and the sweep loop all touch it.
type Engine struct {
	store    Store
	profiles ProfileStore
	clock    timeutil.Clock
	onExpire ExpiredFunc // optional

	mu      sync.Mutex
	visible map[uint64]model.Schedule
}

// NewEngine constructs an engine.  onExpire may be nil.
func NewEngine(store Store, profiles ProfileStore, clock timeutil.Clock, onExpire ExpiredFunc) *Engine {
	if store == nil || profiles == nil {
		panic("nil store passed to NewEngine")
	}
	if clock == nil {
		clock = timeutil.NewSystemClock()
	}
	return &Engine{
		store:    store,
		profiles: profiles,
		clock:    clock,
		onExpire: onExpire,
		visible:  make(map[uint64]model.Schedule),
	}
}

// Active fetches all schedule rows, partitions them against the current
// Melbourne time and returns the current ones ordered by date and start
// time.  Expired rows never reach the caller; their deletion from the store
// is best-effort and self-heals on the next fetch if it fails.
func (e *Engine) Active(ctx context.Context) ([]model.Schedule, error) {
	rows, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	var current, stale []model.Schedule
	for _, s := range rows {
		if expired(s, now) {
			stale = append(stale, s)
		} else {
			current = append(current, s)
		}
	}

	e.mu.Lock()
	e.visible = make(map[uint64]model.Schedule, len(current))
	for _, s := range current {
		e.visible[s.ID] = s
	}
	e.mu.Unlock()

	e.removeExpired(ctx, stale)

	sort.Slice(current, func(i, j int) bool {
		if current[i].Date != current[j].Date {
			return current[i].Date < current[j].Date
		}
		if current[i].StartTime != current[j].StartTime {
			return current[i].StartTime < current[j].StartTime
		}
		return current[i].ID < current[j].ID
	})
	return current, nil
}

// CreateInput carries the map-click coordinates and the requested clock
// times for a new schedule.
type CreateInput struct {
	Lat       float64
	Lng       float64
	StartTime string
	EndTime   string
}

// Create validates the requested window against "now", snapshots the
// caller's profile onto a new row dated today, stores it and adds it to the
// visible set.  The visible set is only updated after the write is
// confirmed, so a failed insert leaves no phantom marker.
func (e *Engine) Create(ctx context.Context, userID uint64, in CreateInput) (*model.Schedule, error) {
	profile, err := e.profileOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	if _, _, err := validateWindow(now, in.StartTime, in.EndTime, true); err != nil {
		return nil, err
	}
	s := &model.Schedule{
		Lat:         in.Lat,
		Lng:         in.Lng,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Date:        timeutil.FormatDate(now),
		BuskerID:    profile.ID,
		Username:    profile.Username,
		MainPhoto:   profile.MainPhoto,
		Genre:       profile.Genre,
		Description: profile.Description,
	}
	if err := e.store.Insert(ctx, s); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.visible[s.ID] = *s
	e.mu.Unlock()
	return s, nil
}

// EditTimes rewrites a schedule's start/end times.  Ownership is re-checked
// against a fresh profile fetch and the live row, not against anything the
// client sent; the 1-hour start window does not apply to edits.
func (e *Engine) EditTimes(ctx context.Context, userID, id uint64, startTime, endTime string) (*model.Schedule, error) {
	profile, err := e.profileOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	s, err := e.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.BuskerID != profile.ID {
		return nil, repository.ErrForbidden
	}
	if _, _, err := validateWindow(e.clock.Now(), startTime, endTime, false); err != nil {
		return nil, err
	}
	if err := e.store.UpdateTimesByOwner(ctx, id, profile.ID, startTime, endTime); err != nil {
		return nil, err
	}
	s.StartTime = startTime
	s.EndTime = endTime

	e.mu.Lock()
	if _, ok := e.visible[id]; ok {
		e.visible[id] = *s
	}
	e.mu.Unlock()
	return s, nil
}

// Delete removes a schedule after re-checking ownership.  The row leaves
// the visible set only once the store confirms the delete.
func (e *Engine) Delete(ctx context.Context, userID, id uint64) error {
	profile, err := e.profileOf(ctx, userID)
	if err != nil {
		return err
	}
	s, err := e.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if s.BuskerID != profile.ID {
		return repository.ErrForbidden
	}
	if err := e.store.DeleteByIDAndOwner(ctx, id, profile.ID); err != nil {
		return err
	}
	e.mu.Lock()
	delete(e.visible, id)
	e.mu.Unlock()
	return nil
}

// Owns reports whether the given user's busker profile owns the schedule.
// It answers false — never an error surfaced as ownership — when the user
// has no profile or the schedule is gone.
func (e *Engine) Owns(ctx context.Context, userID, id uint64) bool {
	profile, err := e.profileOf(ctx, userID)
	if err != nil {
		return false
	}
	s, err := e.store.GetByID(ctx, id)
	if err != nil {
		return false
	}
	return s.BuskerID == profile.ID
}

// Run executes the expiry sweep every SweepInterval until ctx is
// cancelled.  One sweep pass runs immediately on start so a restart does
// not wait a minute to clear stale rows.
func (e *Engine) Run(ctx context.Context) {
	e.Sweep(ctx)
	t := time.NewTicker(SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.Sweep(ctx)
		}
	}
}

// Sweep drops entries that have expired since the last evaluation from the
// visible set and queues them for the same best-effort bulk delete as a
// list pass.
func (e *Engine) Sweep(ctx context.Context) {
	now := e.clock.Now()

	e.mu.Lock()
	var stale []model.Schedule
	for id, s := range e.visible {
		if expired(s, now) {
			stale = append(stale, s)
			delete(e.visible, id)
		}
	}
	e.mu.Unlock()

	e.removeExpired(ctx, stale)
}

// VisibleIDs returns the ids currently in the visible set, mainly for
// observability and tests.
func (e *Engine) VisibleIDs() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]uint64, 0, len(e.visible))
	for id := range e.visible {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (e *Engine) profileOf(ctx context.Context, userID uint64) (*model.Busker, error) {
	profile, err := e.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrBuskerNotFound) {
			return nil, ErrNoProfile
		}
		return nil, err
	}
	return profile, nil
}

// removeExpired issues one bulk delete for the given rows and notifies the
// expiry callback.  Failures are logged and not retried; the rows are
// already filtered out of every response and the next pass tries again.
func (e *Engine) removeExpired(ctx context.Context, rows []model.Schedule) {
	if len(rows) == 0 {
		return
	}
	ids := make([]uint64, len(rows))
	for i, s := range rows {
		ids[i] = s.ID
	}
	if err := e.store.DeleteByIDs(ctx, ids); err != nil {
		log.Printf("schedule: bulk delete of %d expired rows failed: %v", len(ids), err)
	}
	if e.onExpire != nil {
		e.onExpire(ctx, rows)
	}
}
