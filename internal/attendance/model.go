package attendance

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// TrailingWindowDays is the look-back used for history and analytics.
const TrailingWindowDays = 30

// DateLayout is the wire format of a calendar day.
const DateLayout = "2006-01-02"

// Status is the attendance state of one student on one day.
type Status string

const (
	Present    Status = "present"
	Absent     Status = "absent"
	Sick       Status = "sick"
	Permission Status = "permission"

	// Unmarked is never persisted; it is what EffectiveStatus reports when
	// neither a draft nor a stored record exists.
	Unmarked Status = "unmarked"
)

// Statuses lists the persistable values in display order.
var Statuses = []Status{Present, Absent, Sick, Permission}

// Valid returns true when the status can be recorded.
func (s Status) Valid() bool {
	switch s {
	case Present, Absent, Sick, Permission:
		return true
	default:
		return false
	}
}

// Date is a calendar day formatted as YYYY-MM-DD.
type Date string

// ParseDate validates s and returns it as a Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", NewValidationError(errors.Errorf("invalid date %q, use YYYY-MM-DD", s),
			FieldError{Field: "date", Error: "must be YYYY-MM-DD"})
	}
	return Date(t.Format(DateLayout)), nil
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Time returns midnight UTC of the day. Invalid dates yield the zero time.
func (d Date) Time() time.Time {
	t, _ := time.Parse(DateLayout, string(d))
	return t
}

// AddDays shifts the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) String() string { return string(d) }

// Record is a persisted attendance entry. At most one exists per
// (ClassID, StudentID, Date).
type Record struct {
	ID         string    `json:"id" db:"id"`
	ClassID    string    `json:"class_id" db:"class_id"`
	StudentID  string    `json:"student_id" db:"student_id"`
	Date       Date      `json:"date" db:"date"`
	Status     Status    `json:"status" db:"status"`
	Notes      string    `json:"notes" db:"notes"`
	RecordedBy string    `json:"recorded_by" db:"recorded_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Entry is one student's line in a batch commit.
type Entry struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    Status `json:"status" validate:"required,oneof=present absent sick permission"`
	Notes     string `json:"notes"`
}

// DraftEntry is an unsaved edit. Status is empty until the teacher picks one.
type DraftEntry struct {
	StudentID string `json:"student_id"`
	Status    Status `json:"status,omitempty"`
	Notes     string `json:"notes,omitempty"`
}
