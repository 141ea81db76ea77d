package attendance

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"classattend/internal/roster"
)

// Service wires the store and roster into sessions, history and analytics.
type Service struct {
	store  Store
	roster roster.Provider
	log    zerolog.Logger
	now    func() time.Time
}

// NewService creates a service backed by a store and a roster.
func NewService(store Store, students roster.Provider, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		roster: students,
		log:    logger.With().Str("component", "attendance_service").Logger(),
		now:    time.Now,
	}
}

// SetClock overrides the clock used for "today".
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Store returns the underlying gateway.
func (s *Service) Store() Store { return s.store }

// Today is the current calendar day.
func (s *Service) Today() Date { return DateOf(s.now()) }

// TrailingWindow returns the inclusive range covering the last
// TrailingWindowDays days up to today.
func (s *Service) TrailingWindow() (from, to Date) {
	to = s.Today()
	return to.AddDays(-TrailingWindowDays), to
}

// Roster returns the active students of a class.
func (s *Service) Roster(ctx context.Context, classID string) ([]roster.Student, error) {
	students, err := s.roster.ActiveStudents(ctx, classID)
	return students, transportErr("active students", err)
}

// NewSession opens a draft session for a teacher on a class.
func (s *Service) NewSession(classID, teacherID string) *Session {
	return NewSession(classID, teacherID, s.store, s.roster, s.log)
}

// Day returns the stored records of one date with their summary.
func (s *Service) Day(ctx context.Context, classID string, date Date) ([]Record, Summary, error) {
	students, err := s.Roster(ctx, classID)
	if err != nil {
		return nil, Summary{}, err
	}
	records, err := s.store.FetchByClassAndDate(ctx, classID, date)
	if err != nil {
		return nil, Summary{}, transportErr("fetch by class and date", err)
	}
	return records, Summarize(students, records), nil
}

// Commit records a batch directly, bypassing any draft. Every entry must
// name an active student of the class.
func (s *Service) Commit(ctx context.Context, classID string, date Date, entries []Entry, recordedBy string) error {
	if len(entries) == 0 {
		return NewValidationError(ErrEmptyDraft, FieldError{Field: "entries", Error: ErrEmptyDraft.Error()})
	}
	if err := checkEnrolled(ctx, s.roster, classID, entries); err != nil {
		return err
	}
	return transportErr("commit batch", s.store.CommitBatch(ctx, classID, date, entries, recordedBy))
}

// History buckets the trailing window of a class by date.
func (s *Service) History(ctx context.Context, classID string) (map[Date]*HistoryBucket, error) {
	from, _ := s.TrailingWindow()
	records, err := s.store.FetchHistory(ctx, classID, from)
	if err != nil {
		return nil, transportErr("fetch history", err)
	}
	return BuildBuckets(records), nil
}

// Report builds the analytics view of a class over [from, to].
func (s *Service) Report(ctx context.Context, classID string, from, to Date) (Report, error) {
	if from > to {
		return Report{}, NewValidationError(ErrInvalidRange, FieldError{Field: "from", Error: "must not be after to"})
	}
	stats, err := s.store.FetchStatistics(ctx, classID, from, to)
	if err != nil {
		return Report{}, transportErr("fetch statistics", err)
	}
	students, err := s.Roster(ctx, classID)
	if err != nil {
		return Report{}, err
	}
	rep := BuildReport(stats, students)
	rep.From, rep.To = from, to
	return rep, nil
}
