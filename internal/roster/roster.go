package roster

import (
	"context"
	"time"
)

// Student is one enrollment of a student in a class.
type Student struct {
	ID         string    `json:"id" db:"student_id"`
	FullName   string    `json:"full_name" db:"full_name"`
	Email      string    `json:"email" db:"email"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	EnrolledAt time.Time `json:"enrolled_at" db:"enrolled_at"`
}

// Provider supplies the students eligible for attendance capture.
type Provider interface {
	// ActiveStudents returns the active students of a class in enrollment order.
	ActiveStudents(ctx context.Context, classID string) ([]Student, error)
}

// Directory is a Provider that can also change enrollments.
type Directory interface {
	Provider
	Enroll(ctx context.Context, classID string, st Student) error
	Deactivate(ctx context.Context, classID, studentID string) error
}

var (
	_ Directory = (*Memory)(nil)
	_ Directory = (*Repository)(nil)
)

// Find returns the student with the given id, if present.
func Find(students []Student, id string) (Student, bool) {
	for _, st := range students {
		if st.ID == id {
			return st, true
		}
	}
	return Student{}, false
}
