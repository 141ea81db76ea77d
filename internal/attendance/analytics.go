package attendance

import "classattend/internal/roster"

// UnknownStudent labels statistics rows that match no active roster entry.
const UnknownStudent = "Unknown Student"

// Rating is the traffic-light class of an attendance rate.
type Rating string

const (
	RatingGood    Rating = "good"
	RatingWarning Rating = "warning"
	RatingPoor    Rating = "poor"
)

// Classify rates >= 80 as good, >= 60 as warning and anything lower as poor.
func Classify(rate float64) Rating {
	switch {
	case rate >= 80:
		return RatingGood
	case rate >= 60:
		return RatingWarning
	default:
		return RatingPoor
	}
}

// ReportRow is a StudentStatistics row resolved against the roster.
type ReportRow struct {
	StudentStatistics
	Name   string `json:"name"`
	Known  bool   `json:"known"`
	Rating Rating `json:"rating"`
}

// Report is the analytics view of a class over a range.
type Report struct {
	From          Date        `json:"from"`
	To            Date        `json:"to"`
	TotalSessions int         `json:"total_sessions"`
	TotalStudents int         `json:"total_students"`
	ClassAverage  float64     `json:"class_average"`
	Rows          []ReportRow `json:"rows"`
}

// BuildReport joins statistics with the roster. ClassAverage is taken as
// returned by the store, and rows without a roster match are kept.
func BuildReport(stats Statistics, students []roster.Student) Report {
	rep := Report{
		TotalSessions: stats.TotalSessions,
		TotalStudents: stats.TotalStudents,
		ClassAverage:  stats.ClassAverage,
		Rows:          make([]ReportRow, 0, len(stats.StudentStats)),
	}
	for _, st := range stats.StudentStats {
		name, known := StudentName(students, st.StudentID)
		rep.Rows = append(rep.Rows, ReportRow{
			StudentStatistics: st,
			Name:              name,
			Known:             known,
			Rating:            Classify(st.AttendanceRate),
		})
	}
	return rep
}
