package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// ErrTeacherNotFound is returned when no profile exists for an id.
var ErrTeacherNotFound = errors.New("teacher not found")

// ErrTokenRevoked is returned for unknown, revoked or expired refresh tokens.
var ErrTokenRevoked = errors.New("refresh token revoked or unknown")

// Teacher is the local profile of an identity-provider user.
type Teacher struct {
	ID        string    `json:"id" db:"teacher_id"`
	Email     string    `json:"email" db:"email"`
	FullName  string    `json:"full_name" db:"full_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Repository persists teachers and refresh tokens.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// UpsertTeacher ensures a teacher profile exists, keeping known fields when
// the new ones are empty.
func (r *Repository) UpsertTeacher(ctx context.Context, t Teacher) error {
	if t.ID == "" {
		return errors.New("teacher id required")
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO teachers (teacher_id, email, full_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (teacher_id) DO UPDATE SET
			email = CASE WHEN excluded.email = '' THEN teachers.email ELSE excluded.email END,
			full_name = CASE WHEN excluded.full_name = '' THEN teachers.full_name ELSE excluded.full_name END,
			updated_at = excluded.updated_at
	`), t.ID, t.Email, t.FullName, now, now)
	return errors.Wrap(err, "upsert teacher")
}

// GetTeacher returns a teacher by id.
func (r *Repository) GetTeacher(ctx context.Context, id string) (Teacher, error) {
	var t Teacher
	err := r.db.GetContext(ctx, &t, r.db.Rebind(`
		SELECT teacher_id, email, full_name, created_at, updated_at FROM teachers WHERE teacher_id = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Teacher{}, ErrTeacherNotFound
	}
	return t, errors.Wrap(err, "get teacher")
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, teacherID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO refresh_tokens (token, teacher_id, expires_at) VALUES (?, ?, ?)
	`), token, teacherID, expiresAt.UTC())
	return errors.Wrap(err, "save refresh token")
}

// RevokeRefreshToken marks a live token revoked and returns its owner.
func (r *Repository) RevokeRefreshToken(ctx context.Context, token string) (string, error) {
	var teacherID string
	err := r.db.GetContext(ctx, &teacherID, r.db.Rebind(`
		SELECT teacher_id FROM refresh_tokens WHERE token = ? AND revoked = FALSE AND expires_at > ?
	`), token, time.Now().UTC())
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrTokenRevoked
	}
	if err != nil {
		return "", errors.Wrap(err, "lookup refresh token")
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(`UPDATE refresh_tokens SET revoked = TRUE WHERE token = ?`), token)
	return teacherID, errors.Wrap(err, "revoke refresh token")
}
