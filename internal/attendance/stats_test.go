package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rec(student string, date Date, status Status) Record {
	return Record{ClassID: "c1", StudentID: student, Date: date, Status: status}
}

func TestRate(t *testing.T) {
	assert.Equal(t, 0.0, Rate(0, 0))
	assert.Equal(t, 50.0, Rate(1, 2))
	assert.Equal(t, 100.0, Rate(3, 3))
}

func TestComputeStatistics(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		want    Statistics
	}{
		{
			name:    "empty",
			records: nil,
			want:    Statistics{StudentStats: []StudentStatistics{}},
		},
		{
			name: "per student rates and class average",
			records: []Record{
				rec("s2", "2024-03-01", Absent),
				rec("s1", "2024-03-01", Present),
				rec("s1", "2024-03-02", Present),
				rec("s2", "2024-03-02", Present),
				rec("s1", "2024-03-03", Sick),
			},
			want: Statistics{
				TotalSessions: 3,
				TotalStudents: 2,
				ClassAverage:  (Rate(2, 3) + 50) / 2,
				StudentStats: []StudentStatistics{
					{StudentID: "s1", PresentDays: 2, TotalDays: 3, AttendanceRate: Rate(2, 3)},
					{StudentID: "s2", PresentDays: 1, TotalDays: 2, AttendanceRate: 50},
				},
			},
		},
		{
			name: "duplicate day counted once",
			records: []Record{
				rec("s1", "2024-03-01", Present),
				rec("s1", "2024-03-01", Absent),
			},
			want: Statistics{
				TotalSessions: 1,
				TotalStudents: 1,
				ClassAverage:  100,
				StudentStats: []StudentStatistics{
					{StudentID: "s1", PresentDays: 1, TotalDays: 1, AttendanceRate: 100},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStatistics(tt.records))
		})
	}
}
