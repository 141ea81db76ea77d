package store

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// schema is portable between Postgres and sqlite. Dates are stored as
// YYYY-MM-DD text so range filters compare lexically.
const schema = `
CREATE TABLE IF NOT EXISTS teachers (
	teacher_id  TEXT PRIMARY KEY,
	email       TEXT NOT NULL DEFAULT '',
	full_name   TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
	token       TEXT PRIMARY KEY,
	teacher_id  TEXT NOT NULL,
	expires_at  TIMESTAMP NOT NULL,
	revoked     BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS class_students (
	class_id    TEXT NOT NULL,
	student_id  TEXT NOT NULL,
	full_name   TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	is_active   BOOLEAN NOT NULL DEFAULT TRUE,
	enrolled_at TIMESTAMP NOT NULL,
	PRIMARY KEY (class_id, student_id)
);

CREATE TABLE IF NOT EXISTS attendance_records (
	id          TEXT PRIMARY KEY,
	class_id    TEXT NOT NULL,
	student_id  TEXT NOT NULL,
	date        VARCHAR(10) NOT NULL,
	status      VARCHAR(16) NOT NULL,
	notes       TEXT NOT NULL DEFAULT '',
	recorded_by TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	UNIQUE (class_id, student_id, date)
);

CREATE INDEX IF NOT EXISTS idx_attendance_class_date ON attendance_records (class_id, date);
`

// Migrate applies the schema idempotently, one statement at a time.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate")
		}
	}
	return nil
}
