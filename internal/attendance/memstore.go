package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type recordKey struct {
	classID   string
	studentID string
	date      Date
}

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[recordKey]Record
	failNext error
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[recordKey]Record), now: time.Now}
}

// FailNext makes the next store call return err.
func (m *MemoryStore) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MemoryStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *MemoryStore) query(match func(Record) bool) []Record {
	out := []Record{}
	for _, rec := range m.records {
		if match(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out
}

// FetchByClassAndDate implements Store.
func (m *MemoryStore) FetchByClassAndDate(_ context.Context, classID string, date Date) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	return m.query(func(r Record) bool { return r.ClassID == classID && r.Date == date }), nil
}

// FetchHistory implements Store.
func (m *MemoryStore) FetchHistory(_ context.Context, classID string, since Date) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	return m.query(func(r Record) bool { return r.ClassID == classID && r.Date >= since }), nil
}

// FetchStatistics implements Store.
func (m *MemoryStore) FetchStatistics(_ context.Context, classID string, from, to Date) (Statistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return Statistics{}, err
	}
	return ComputeStatistics(m.query(func(r Record) bool {
		return r.ClassID == classID && r.Date >= from && r.Date <= to
	})), nil
}

// CommitBatch implements Store. Validation happens before any write so a
// rejected batch leaves no trace.
func (m *MemoryStore) CommitBatch(_ context.Context, classID string, date Date, entries []Entry, recordedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if err := ValidateBatch(classID, date, entries, recordedBy); err != nil {
		return err
	}
	now := m.now().UTC()
	for _, e := range entries {
		m.records[recordKey{classID, e.StudentID, date}] = Record{
			ID:         uuid.NewString(),
			ClassID:    classID,
			StudentID:  e.StudentID,
			Date:       date,
			Status:     e.Status,
			Notes:      e.Notes,
			RecordedBy: recordedBy,
			CreatedAt:  now,
		}
	}
	return nil
}

// ClassesWithActivity lists classes that have records on or after since.
func (m *MemoryStore) ClassesWithActivity(_ context.Context, since Date) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	for k := range m.records {
		if k.date >= since {
			seen[k.classID] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
