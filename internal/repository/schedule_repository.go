// Package repository contains data access logic for live schedules.  A
// Schedule row is a geotagged performance window; date and clock times are
// Melbourne-local strings, so expiry decisions happen in the engine rather
// than in SQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/buskabout/buskabout/internal/model"
)

// ErrScheduleNotFound indicates that a schedule was not located in the DB.
var ErrScheduleNotFound = errors.New("schedule not found")

// ScheduleRepo manages persistence for schedules.
type ScheduleRepo struct {
	db *sql.DB
}

// NewScheduleRepo constructs a ScheduleRepo with the given DB handle.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

const scheduleCols = `id, lat, lng, start_time, end_time, date, busker_id,
                      username, main_photo, genre, description`

func scanSchedule(row interface{ Scan(...any) error }) (model.Schedule, error) {
	var s model.Schedule
	err := row.Scan(&s.ID, &s.Lat, &s.Lng, &s.StartTime, &s.EndTime, &s.Date,
		&s.BuskerID, &s.Username, &s.MainPhoto, &s.Genre, &s.Description)
	return s, err
}

// ListAll returns every schedule row.  Expired rows are included; the
// engine partitions them against the current Melbourne time.
func (r *ScheduleRepo) ListAll(ctx context.Context) ([]model.Schedule, error) {
	const q = `SELECT ` + scheduleCols + ` FROM schedules ORDER BY date ASC, start_time ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID retrieves one schedule, or ErrScheduleNotFound.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uint64) (*model.Schedule, error) {
	const q = `SELECT ` + scheduleCols + ` FROM schedules WHERE id = ? LIMIT 1`
	s, err := scanSchedule(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Insert stores a new schedule row and assigns the generated ID back to the
// struct.  All snapshot fields must already be populated by the caller.
func (r *ScheduleRepo) Insert(ctx context.Context, s *model.Schedule) error {
	const q = `INSERT INTO schedules
               (lat, lng, start_time, end_time, date, busker_id,
                username, main_photo, genre, description)
               VALUES (?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, s.Lat, s.Lng, s.StartTime, s.EndTime,
		s.Date, s.BuskerID, s.Username, s.MainPhoto, s.Genre, s.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// UpdateTimesByOwner rewrites only the start/end times of a schedule that
// belongs to the given busker profile.  Returns ErrScheduleNotFound when the
// row is missing and ErrForbidden when it is owned by someone else.
func (r *ScheduleRepo) UpdateTimesByOwner(ctx context.Context, id, buskerID uint64, startTime, endTime string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE schedules SET start_time = ?, end_time = ? WHERE id = ? AND busker_id = ?`,
		startTime, endTime, id, buskerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var dbOwner uint64
	err = r.db.QueryRowContext(ctx,
		`SELECT busker_id FROM schedules WHERE id = ?`, id).Scan(&dbOwner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrScheduleNotFound
		}
		return err
	}
	if dbOwner != buskerID {
		return ErrForbidden
	}
	return nil // row exists, values already identical
}

// DeleteByIDAndOwner removes a schedule provided it belongs to the given
// busker profile.
func (r *ScheduleRepo) DeleteByIDAndOwner(ctx context.Context, id, buskerID uint64) error {
	var dbOwner uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT busker_id FROM schedules WHERE id = ?`, id).Scan(&dbOwner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrScheduleNotFound
		}
		return err
	}
	if dbOwner != buskerID {
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	return err
}

// DeleteByIDs bulk-deletes schedule rows by id.  Used by the expiry sweep;
// a missing id is not an error because another instance may have already
// cleaned it up.
func (r *ScheduleRepo) DeleteByIDs(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM schedules WHERE id IN (`+placeholders+`)`, args...)
	return err
}
