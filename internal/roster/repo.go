package roster

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Repository reads class enrollments from the class_students table.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// ActiveStudents implements Provider.
func (r *Repository) ActiveStudents(ctx context.Context, classID string) ([]Student, error) {
	if classID == "" {
		return nil, errors.New("class id required")
	}
	students := []Student{}
	err := r.db.SelectContext(ctx, &students, r.db.Rebind(`
		SELECT student_id, full_name, email, is_active, enrolled_at
		FROM class_students
		WHERE class_id = ? AND is_active = TRUE
		ORDER BY enrolled_at, student_id
	`), classID)
	if err != nil {
		return nil, errors.Wrapf(err, "roster: list class %s", classID)
	}
	return students, nil
}

// Enroll inserts a student into a class, or refreshes an existing enrollment.
func (r *Repository) Enroll(ctx context.Context, classID string, st Student) error {
	if classID == "" || st.ID == "" {
		return errors.New("class and student required")
	}
	if st.EnrolledAt.IsZero() {
		st.EnrolledAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO class_students (class_id, student_id, full_name, email, is_active, enrolled_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (class_id, student_id) DO UPDATE SET
			full_name = excluded.full_name,
			email = excluded.email,
			is_active = excluded.is_active
	`), classID, st.ID, st.FullName, st.Email, st.IsActive, st.EnrolledAt)
	return errors.Wrap(err, "roster: enroll")
}

// Deactivate hides a student from attendance capture without dropping history.
func (r *Repository) Deactivate(ctx context.Context, classID, studentID string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE class_students SET is_active = FALSE WHERE class_id = ? AND student_id = ?
	`), classID, studentID)
	return errors.Wrap(err, "roster: deactivate")
}
