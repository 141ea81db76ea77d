package attendance

import (
	"strings"

	"classattend/internal/roster"
)

// Summary counts the persisted records of one day against the roster.
type Summary struct {
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Sick       int     `json:"sick"`
	Permission int     `json:"permission"`
	NotMarked  int     `json:"not_marked"`
	Completion float64 `json:"completion"`
}

// Summarize tallies persisted records for the day. NotMarked and Completion
// compare the record count to the roster size, so records of students who
// left the roster still count as marked.
func Summarize(students []roster.Student, persisted []Record) Summary {
	sum := Summary{Total: len(students)}
	for _, rec := range persisted {
		switch rec.Status {
		case Present:
			sum.Present++
		case Absent:
			sum.Absent++
		case Sick:
			sum.Sick++
		case Permission:
			sum.Permission++
		}
	}
	sum.NotMarked = sum.Total - len(persisted)
	if sum.NotMarked < 0 {
		sum.NotMarked = 0
	}
	sum.Completion = Rate(len(persisted), sum.Total)
	if sum.Completion > 100 {
		sum.Completion = 100
	}
	return sum
}

// Filter narrows the students shown in a session view.
type Filter struct {
	// Search matches name or email, case-insensitive.
	Search string
	// OnlyUnmarked keeps students with no stored status or a stored absence.
	OnlyUnmarked bool
}

func (f Filter) match(st roster.Student, persisted Status, hasPersisted bool) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(st.FullName), q) &&
			!strings.Contains(strings.ToLower(st.Email), q) {
			return false
		}
	}
	if f.OnlyUnmarked && hasPersisted && persisted != Absent {
		return false
	}
	return true
}
