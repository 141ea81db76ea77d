package attendance

import "sort"

// Statistics summarises a class over a date range.
type Statistics struct {
	TotalSessions int                 `json:"total_sessions"`
	TotalStudents int                 `json:"total_students"`
	ClassAverage  float64             `json:"class_average"`
	StudentStats  []StudentStatistics `json:"student_stats"`
}

// StudentStatistics is one student's attendance over the range.
type StudentStatistics struct {
	StudentID      string  `json:"student_id"`
	PresentDays    int     `json:"present_days"`
	TotalDays      int     `json:"total_days"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// Rate returns present/total as a percentage, 0 when total is 0.
func Rate(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(present) / float64(total) * 100
}

// ComputeStatistics derives class statistics from the records of a range.
// Store implementations use it so every backend agrees on the numbers.
func ComputeStatistics(records []Record) Statistics {
	dates := make(map[Date]struct{})
	type tally struct {
		present int
		days    map[Date]struct{}
	}
	perStudent := make(map[string]*tally)

	for _, rec := range records {
		dates[rec.Date] = struct{}{}
		t, ok := perStudent[rec.StudentID]
		if !ok {
			t = &tally{days: make(map[Date]struct{})}
			perStudent[rec.StudentID] = t
		}
		if _, seen := t.days[rec.Date]; seen {
			continue
		}
		t.days[rec.Date] = struct{}{}
		if rec.Status == Present {
			t.present++
		}
	}

	stats := Statistics{
		TotalSessions: len(dates),
		TotalStudents: len(perStudent),
		StudentStats:  make([]StudentStatistics, 0, len(perStudent)),
	}
	var sum float64
	for id, t := range perStudent {
		row := StudentStatistics{
			StudentID:      id,
			PresentDays:    t.present,
			TotalDays:      len(t.days),
			AttendanceRate: Rate(t.present, len(t.days)),
		}
		sum += row.AttendanceRate
		stats.StudentStats = append(stats.StudentStats, row)
	}
	sort.Slice(stats.StudentStats, func(i, j int) bool {
		return stats.StudentStats[i].StudentID < stats.StudentStats[j].StudentID
	})
	if len(perStudent) > 0 {
		stats.ClassAverage = sum / float64(len(perStudent))
	}
	return stats
}
