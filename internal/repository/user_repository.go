package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/buskabout/buskabout/internal/model"
	"github.com/buskabout/buskabout/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")
var ErrUsernameExists = errors.New("username already exists")

// Create inserts a password-based user and returns its ID.  Uniqueness of
// email and username is enforced by the DB; duplicate-key failures are
// mapped to sentinel errors by inspecting which unique index tripped.
func (r *UserRepo) Create(ctx context.Context, email, username, password string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, username, password_hash, provider) VALUES (?,?,?,'password')",
		email, username, hash)
	if err != nil {
		return 0, dupErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CreateOAuth inserts a user signed in through a third-party provider.
// No password hash is stored for these accounts.
func (r *UserRepo) CreateOAuth(ctx context.Context, email, username, provider string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, username, password_hash, provider) VALUES (?,?,'',?)",
		email, username, provider)
	if err != nil {
		return 0, dupErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,username,password_hash,provider,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Provider, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,username,password_hash,provider,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Provider, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// UsernameTaken reports whether a username is already claimed.  Used for
// the pre-write availability check during sign-up; the unique index still
// backstops races.
func (r *UserRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM users WHERE username=? LIMIT 1", username).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// dupErr maps MySQL duplicate-key errors (1062) onto the sentinel for the
// column whose unique index rejected the row.
func dupErr(err error) error {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "1062") {
		return err
	}
	if strings.Contains(msg, "username") {
		return ErrUsernameExists
	}
	return ErrEmailExists
}
