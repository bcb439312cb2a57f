// Package repository contains data access logic for busker profiles. A
// Busker row is one performer's directory entry; the gallery travels in a
// single JSON column so item order is preserved without a child table.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/buskabout/buskabout/internal/model"
)

// ErrBuskerNotFound indicates that a busker profile was not located in the DB.
var ErrBuskerNotFound = errors.New("busker profile not found")

// ErrUsernameInUse indicates another profile already claims the display name.
var ErrUsernameInUse = errors.New("display name already in use")

// BuskerRepo manages persistence for busker profiles.
type BuskerRepo struct {
	db *sql.DB
}

// NewBuskerRepo constructs a BuskerRepo with the given DB handle.
func NewBuskerRepo(db *sql.DB) *BuskerRepo {
	return &BuskerRepo{db: db}
}

const buskerCols = `id, user_id, username, email, genre, description, location,
                    main_photo, youtube_url, instagram_url, website_url, tip_url,
                    gallery_contents, created_at, updated_at`

func scanBusker(row interface{ Scan(...any) error }) (model.Busker, error) {
	var (
		b       model.Busker
		gallery []byte
	)
	err := row.Scan(&b.ID, &b.UserID, &b.Username, &b.Email, &b.Genre,
		&b.Description, &b.Location, &b.MainPhoto, &b.YoutubeURL,
		&b.InstagramURL, &b.WebsiteURL, &b.TipURL, &gallery,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Busker{}, err
	}
	if len(gallery) > 0 {
		if err := json.Unmarshal(gallery, &b.Gallery); err != nil {
			return model.Busker{}, err
		}
	}
	return b, nil
}

// Create inserts a new profile for a user and assigns the generated ID back
// to the struct.  A user may hold at most one profile and display names are
// unique across profiles; both rules are checked up front so callers get a
// specific error, with the DB's unique indexes backstopping races.
func (r *BuskerRepo) Create(ctx context.Context, b *model.Busker) error {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM buskers WHERE user_id = ? LIMIT 1`, b.UserID).Scan(&one)
	if err == nil {
		return ErrConflict
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	err = r.db.QueryRowContext(ctx,
		`SELECT 1 FROM buskers WHERE username = ? AND user_id <> ? LIMIT 1`,
		b.Username, b.UserID).Scan(&one)
	if err == nil {
		return ErrUsernameInUse
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	gallery, err := json.Marshal(b.Gallery)
	if err != nil {
		return err
	}
	const q = `INSERT INTO buskers
               (user_id, username, email, genre, description, location, main_photo,
                youtube_url, instagram_url, website_url, tip_url, gallery_contents)
               VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, b.UserID, b.Username, b.Email, b.Genre,
		b.Description, b.Location, b.MainPhoto, b.YoutubeURL, b.InstagramURL,
		b.WebsiteURL, b.TipURL, gallery)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	const sel = `SELECT ` + buskerCols + ` FROM buskers WHERE id = ?`
	got, err := scanBusker(r.db.QueryRowContext(ctx, sel, b.ID))
	if err != nil {
		return err
	}
	*b = got
	return nil
}

// GetByUserID fetches the profile owned by a user, or ErrBuskerNotFound.
// This is the lookup every ownership check goes through.
func (r *BuskerRepo) GetByUserID(ctx context.Context, userID uint64) (*model.Busker, error) {
	const q = `SELECT ` + buskerCols + ` FROM buskers WHERE user_id = ? LIMIT 1`
	b, err := scanBusker(r.db.QueryRowContext(ctx, q, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBuskerNotFound
		}
		return nil, err
	}
	return &b, nil
}

// GetByUsername fetches a profile by its public handle.
func (r *BuskerRepo) GetByUsername(ctx context.Context, username string) (*model.Busker, error) {
	const q = `SELECT ` + buskerCols + ` FROM buskers WHERE username = ? LIMIT 1`
	b, err := scanBusker(r.db.QueryRowContext(ctx, q, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBuskerNotFound
		}
		return nil, err
	}
	return &b, nil
}

// List returns all profiles, optionally filtered to one genre, newest
// first.  When no profiles exist it returns an empty slice and nil error.
func (r *BuskerRepo) List(ctx context.Context, genre string) ([]model.Busker, error) {
	q := `SELECT ` + buskerCols + ` FROM buskers ORDER BY created_at DESC`
	args := []any{}
	if genre != "" {
		q = `SELECT ` + buskerCols + ` FROM buskers WHERE genre = ? ORDER BY created_at DESC`
		args = append(args, genre)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.Busker
	for rows.Next() {
		b, err := scanBusker(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateByIDAndOwner updates a profile's editable fields if it belongs to
// the given user.  When the row/ownership doesn't match it returns
// sql.ErrNoRows; the caller decides whether that is not-found or forbidden.
func (r *BuskerRepo) UpdateByIDAndOwner(ctx context.Context, b *model.Busker, userID uint64) error {
	const q = `UPDATE buskers
               SET genre = ?, description = ?, location = ?, main_photo = ?,
                   youtube_url = ?, instagram_url = ?, website_url = ?, tip_url = ?,
                   updated_at = CURRENT_TIMESTAMP
               WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, q, b.Genre, b.Description, b.Location,
		b.MainPhoto, b.YoutubeURL, b.InstagramURL, b.WebsiteURL, b.TipURL,
		b.ID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// Distinguish "not yours / missing" from "no change".
	var one int
	if err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM buskers WHERE id = ? AND user_id = ? LIMIT 1`,
		b.ID, userID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sql.ErrNoRows
		}
		return err
	}
	return nil
}

// DeleteByIDAndOwner removes a profile provided it belongs to the given
// user.  If the profile does not exist, ErrBuskerNotFound is returned; if
// it is owned by another user, ErrForbidden.
func (r *BuskerRepo) DeleteByIDAndOwner(ctx context.Context, id, userID uint64) error {
	var dbUserID uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id FROM buskers WHERE id = ?`, id).Scan(&dbUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBuskerNotFound
		}
		return err
	}
	if dbUserID != userID {
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM buskers WHERE id = ?`, id)
	return err
}

// UpdateGallery replaces the gallery column for the profile owned by the
// given user.  The full item list is written in one statement, matching how
// the profile editor submits it.
func (r *BuskerRepo) UpdateGallery(ctx context.Context, userID uint64, items []model.GalleryItem) error {
	if items == nil {
		items = []model.GalleryItem{}
	}
	gallery, err := json.Marshal(items)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE buskers SET gallery_contents = ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ?`,
		gallery, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either no profile or an identical gallery; confirm the profile exists.
		var one int
		if err := r.db.QueryRowContext(ctx,
			`SELECT 1 FROM buskers WHERE user_id = ? LIMIT 1`, userID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrBuskerNotFound
			}
			return err
		}
	}
	return nil
}
