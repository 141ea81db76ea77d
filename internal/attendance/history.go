package attendance

import "sort"

// HistoryBucket holds the records of one class on one date.
type HistoryBucket struct {
	Date    Date           `json:"date"`
	Records []Record       `json:"records"`
	Counts  map[Status]int `json:"counts"`
}

// Total is the number of records in the bucket.
func (b *HistoryBucket) Total() int { return len(b.Records) }

// BuildBuckets groups records by their Date field. Counts only carry the
// statuses that occur. The result is unordered; see SortedDates.
func BuildBuckets(records []Record) map[Date]*HistoryBucket {
	buckets := make(map[Date]*HistoryBucket)
	for _, rec := range records {
		b, ok := buckets[rec.Date]
		if !ok {
			b = &HistoryBucket{Date: rec.Date, Counts: make(map[Status]int)}
			buckets[rec.Date] = b
		}
		b.Records = append(b.Records, rec)
		b.Counts[rec.Status]++
	}
	return buckets
}

// SortedDates returns the bucket keys newest first.
func SortedDates(buckets map[Date]*HistoryBucket) []Date {
	dates := make([]Date, 0, len(buckets))
	for d := range buckets {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] > dates[j] })
	return dates
}
