package attendance

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	"classattend/internal/roster"
)

// ErrNotEnrolled is returned (wrapped in a ValidationError) when a batch
// names a student outside the class's active roster.
var ErrNotEnrolled = errors.New("only active students of the class can be recorded")

// checkEnrolled rejects entries for students that are not active in classID.
func checkEnrolled(ctx context.Context, students roster.Provider, classID string, entries []Entry) error {
	active, err := students.ActiveStudents(ctx, classID)
	if err != nil {
		return transportErr("active students", err)
	}
	var flds []FieldError
	for i, e := range entries {
		if _, ok := roster.Find(active, e.StudentID); !ok {
			flds = append(flds, FieldError{
				Field: "entries[" + strconv.Itoa(i) + "].student_id",
				Error: "student " + e.StudentID + " is not active in this class",
			})
		}
	}
	if len(flds) > 0 {
		return NewValidationError(ErrNotEnrolled, flds...)
	}
	return nil
}

// StudentName resolves a display name, falling back to UnknownStudent.
func StudentName(students []roster.Student, id string) (string, bool) {
	s, ok := roster.Find(students, id)
	if !ok {
		return UnknownStudent, false
	}
	if s.FullName == "" {
		return UnknownStudent, true
	}
	return s.FullName, true
}
