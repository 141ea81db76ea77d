package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"classattend/internal/metrics"
)

// Repository persists attendance records in SQL (Postgres via pgx, or sqlite).
type Repository struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ Store = (*Repository)(nil)

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

const recordColumns = `id, class_id, student_id, date, status, notes, recorded_by, created_at`

// FetchByClassAndDate returns the records of one class on one day.
func (r *Repository) FetchByClassAndDate(ctx context.Context, classID string, date Date) ([]Record, error) {
	defer metrics.ObserveStore("fetch_by_date", time.Now())
	records := []Record{}
	err := r.db.SelectContext(ctx, &records, r.db.Rebind(`
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE class_id = ? AND date = ?
		ORDER BY created_at, student_id
	`), classID, date)
	return records, errors.Wrap(err, "fetch by class and date")
}

// FetchHistory returns every record of a class from since onwards.
func (r *Repository) FetchHistory(ctx context.Context, classID string, since Date) ([]Record, error) {
	defer metrics.ObserveStore("fetch_history", time.Now())
	records := []Record{}
	err := r.db.SelectContext(ctx, &records, r.db.Rebind(`
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE class_id = ? AND date >= ?
		ORDER BY date DESC, student_id
	`), classID, since)
	return records, errors.Wrap(err, "fetch history")
}

// FetchStatistics computes statistics over the inclusive range [from, to].
func (r *Repository) FetchStatistics(ctx context.Context, classID string, from, to Date) (Statistics, error) {
	defer metrics.ObserveStore("fetch_statistics", time.Now())
	records := []Record{}
	err := r.db.SelectContext(ctx, &records, r.db.Rebind(`
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE class_id = ? AND date >= ? AND date <= ?
	`), classID, from, to)
	if err != nil {
		return Statistics{}, errors.Wrap(err, "fetch statistics")
	}
	return ComputeStatistics(records), nil
}

// CommitBatch upserts every entry inside one transaction.
func (r *Repository) CommitBatch(ctx context.Context, classID string, date Date, entries []Entry, recordedBy string) error {
	defer metrics.ObserveStore("commit_batch", time.Now())
	if err := ValidateBatch(classID, date, entries, recordedBy); err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin commit")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO attendance_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (class_id, student_id, date) DO UPDATE SET
			status = excluded.status,
			notes = excluded.notes,
			recorded_by = excluded.recorded_by,
			created_at = excluded.created_at
	`))
	if err != nil {
		return errors.Wrap(err, "prepare commit")
	}
	defer stmt.Close()

	now := r.now().UTC()
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), classID, e.StudentID, date, e.Status, e.Notes, recordedBy, now); err != nil {
			return errors.Wrapf(err, "commit student %s", e.StudentID)
		}
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// ClassesWithActivity lists classes that have records on or after since.
func (r *Repository) ClassesWithActivity(ctx context.Context, since Date) ([]string, error) {
	classes := []string{}
	err := r.db.SelectContext(ctx, &classes, r.db.Rebind(`
		SELECT DISTINCT class_id FROM attendance_records WHERE date >= ? ORDER BY class_id
	`), since)
	return classes, errors.Wrap(err, "classes with activity")
}
