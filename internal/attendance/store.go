package attendance

import "context"

// Store is the persistence gateway consumed by sessions, history and
// analytics. CommitBatch must be atomic: either every entry is recorded or
// none is visible to later reads. Committing a status for an existing
// (class, student, date) replaces the old record.
type Store interface {
	FetchByClassAndDate(ctx context.Context, classID string, date Date) ([]Record, error)
	FetchHistory(ctx context.Context, classID string, since Date) ([]Record, error)
	FetchStatistics(ctx context.Context, classID string, from, to Date) (Statistics, error)
	CommitBatch(ctx context.Context, classID string, date Date, entries []Entry, recordedBy string) error
}
