package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		rate float64
		want Rating
	}{
		{100, RatingGood},
		{80, RatingGood},
		{79.99, RatingWarning},
		{60, RatingWarning},
		{59.9, RatingPoor},
		{0, RatingPoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.rate), "rate %v", tt.rate)
	}
}

func TestBuildReport(t *testing.T) {
	stats := Statistics{
		TotalSessions: 4,
		TotalStudents: 3,
		ClassAverage:  61,
		StudentStats: []StudentStatistics{
			{StudentID: "s1", PresentDays: 4, TotalDays: 4, AttendanceRate: 100},
			{StudentID: "s2", PresentDays: 2, TotalDays: 3, AttendanceRate: Rate(2, 3)},
			{StudentID: "zz", PresentDays: 0, TotalDays: 2, AttendanceRate: 0},
		},
	}

	rep := BuildReport(stats, testStudents)
	assert.Equal(t, 4, rep.TotalSessions)
	assert.Equal(t, 3, rep.TotalStudents)
	assert.Equal(t, 61.0, rep.ClassAverage)
	require.Len(t, rep.Rows, 3)

	assert.Equal(t, "Ani Lestari", rep.Rows[0].Name)
	assert.True(t, rep.Rows[0].Known)
	assert.Equal(t, RatingGood, rep.Rows[0].Rating)

	assert.Equal(t, RatingWarning, rep.Rows[1].Rating)

	assert.Equal(t, UnknownStudent, rep.Rows[2].Name)
	assert.False(t, rep.Rows[2].Known)
	assert.Equal(t, RatingPoor, rep.Rows[2].Rating)
}
