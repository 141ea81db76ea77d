package attendance

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"classattend/internal/roster"
)

// Session is a teacher's draft of one class on one selected date, laid over
// the records already stored for that date. Only Commit writes to the store.
//
// Every fetch carries a sequence number; a response that lands after a newer
// fetch was issued is dropped. The mutex is never held across a store call.
type Session struct {
	classID   string
	teacherID string
	store     Store
	students  roster.Provider
	log       zerolog.Logger

	mu        sync.Mutex
	date      Date
	seq       uint64 // bumped by every fetch
	epoch     uint64 // bumped whenever the draft is thrown away
	order     []string
	draft     map[string]*DraftEntry
	persisted []Record
	byStudent map[string]Record
}

// NewSession creates a session with no date selected. When students is not
// nil, Commit only accepts students active in the class.
func NewSession(classID, teacherID string, store Store, students roster.Provider, logger zerolog.Logger) *Session {
	return &Session{
		classID:   classID,
		teacherID: teacherID,
		store:     store,
		students:  students,
		log: logger.With().
			Str("component", "attendance_session").
			Str("class_id", classID).
			Str("teacher_id", teacherID).
			Logger(),
		draft:     make(map[string]*DraftEntry),
		byStudent: make(map[string]Record),
	}
}

func (s *Session) ClassID() string   { return s.classID }
func (s *Session) TeacherID() string { return s.teacherID }

// Date returns the selected date, empty before the first SelectDate.
func (s *Session) Date() Date {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.date
}

// SelectDate switches the active date, drops the draft and loads the stored
// records of the new date.
func (s *Session) SelectDate(ctx context.Context, date Date) error {
	s.mu.Lock()
	s.date = date
	s.clearDraftLocked()
	s.setPersistedLocked(nil)
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	return s.load(ctx, seq, date)
}

// Refresh reloads the stored records of the selected date. The draft is kept.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.date == "" {
		s.mu.Unlock()
		return errNoDate()
	}
	s.seq++
	seq, date := s.seq, s.date
	s.mu.Unlock()

	return s.load(ctx, seq, date)
}

func (s *Session) load(ctx context.Context, seq uint64, date Date) error {
	records, err := s.store.FetchByClassAndDate(ctx, s.classID, date)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		s.log.Debug().Str("date", date.String()).Msg("dropping stale attendance response")
		return nil
	}
	if err != nil {
		return transportErr("fetch by class and date", err)
	}
	s.setPersistedLocked(records)
	return nil
}

// SetStatus sets the draft status of a student. Values outside the four
// recordable statuses are a caller bug: they are logged and ignored.
func (s *Session) SetStatus(studentID string, status Status) {
	if !status.Valid() {
		s.log.Warn().Str("student_id", studentID).Str("status", string(status)).
			Msg("ignoring invalid attendance status")
		return
	}
	if studentID == "" {
		s.log.Warn().Msg("ignoring status for empty student id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entryLocked(studentID).Status = status
}

// SetNote sets the draft note of a student, independent of its status.
func (s *Session) SetNote(studentID, text string) {
	if studentID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entryLocked(studentID).Notes = text
}

// EffectiveStatus returns the draft status, else the stored status, else
// Unmarked.
func (s *Session) EffectiveStatus(studentID string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveLocked(studentID)
}

// CommitResult describes a successful commit.
type CommitResult struct {
	Date    Date
	Entries int
}

// Commit sends every draft entry that has a status as one batch. On success
// the whole draft is cleared; the caller should Refresh afterwards. On
// failure the draft is untouched.
func (s *Session) Commit(ctx context.Context) (CommitResult, error) {
	s.mu.Lock()
	if s.date == "" {
		s.mu.Unlock()
		return CommitResult{}, errNoDate()
	}
	date, epoch := s.date, s.epoch
	entries := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		d := s.draft[id]
		if d.Status == "" {
			continue
		}
		entries = append(entries, Entry{StudentID: id, Status: d.Status, Notes: d.Notes})
	}
	s.mu.Unlock()

	if len(entries) == 0 {
		return CommitResult{}, NewValidationError(ErrEmptyDraft, FieldError{Field: "entries", Error: ErrEmptyDraft.Error()})
	}
	if s.students != nil {
		if err := checkEnrolled(ctx, s.students, s.classID, entries); err != nil {
			return CommitResult{}, err
		}
	}

	if err := s.store.CommitBatch(ctx, s.classID, date, entries, s.teacherID); err != nil {
		s.log.Error().Err(err).Str("date", date.String()).Int("entries", len(entries)).Msg("attendance commit failed")
		return CommitResult{}, transportErr("commit batch", err)
	}

	s.mu.Lock()
	if s.epoch == epoch {
		s.clearDraftLocked()
	}
	s.mu.Unlock()

	s.log.Info().Str("date", date.String()).Int("entries", len(entries)).Msg("attendance committed")
	return CommitResult{Date: date, Entries: len(entries)}, nil
}

// Discard drops all unsaved edits.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearDraftLocked()
}

// Draft returns the unsaved edits in the order they were first touched.
func (s *Session) Draft() []DraftEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DraftEntry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.draft[id])
	}
	return out
}

// Persisted returns the stored records of the selected date.
func (s *Session) Persisted() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.persisted...)
}

// Row is one student line of a session view.
type Row struct {
	Student   roster.Student `json:"student"`
	Status    Status         `json:"status"`
	Persisted Status         `json:"persisted_status,omitempty"`
	Notes     string         `json:"notes"`
	Dirty     bool           `json:"dirty"`
}

// View is what the attendance screen renders for the selected date.
type View struct {
	ClassID    string  `json:"class_id"`
	Date       Date    `json:"date"`
	Rows       []Row   `json:"rows"`
	Selected   int     `json:"selected"`
	Summary    Summary `json:"summary"`
	Unresolved int     `json:"unresolved"`
}

// View merges roster, stored records and draft. Summary always covers the
// whole roster, regardless of the filter.
func (s *Session) View(students []roster.Student, f Filter) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ClassID: s.classID,
		Date:    s.date,
		Rows:    make([]Row, 0, len(students)),
		Summary: Summarize(students, s.persisted),
	}
	for _, d := range s.draft {
		if d.Status != "" {
			v.Selected++
		}
	}
	for _, rec := range s.persisted {
		if _, ok := roster.Find(students, rec.StudentID); !ok {
			v.Unresolved++
		}
	}
	for _, st := range students {
		rec, stored := s.byStudent[st.ID]
		if !f.match(st, rec.Status, stored) {
			continue
		}
		row := Row{Student: st, Status: s.effectiveLocked(st.ID)}
		if stored {
			row.Persisted = rec.Status
			row.Notes = rec.Notes
		}
		if d, ok := s.draft[st.ID]; ok {
			row.Dirty = true
			if d.Notes != "" {
				row.Notes = d.Notes
			}
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}

func (s *Session) effectiveLocked(studentID string) Status {
	if d, ok := s.draft[studentID]; ok && d.Status != "" {
		return d.Status
	}
	if rec, ok := s.byStudent[studentID]; ok {
		return rec.Status
	}
	return Unmarked
}

func (s *Session) entryLocked(studentID string) *DraftEntry {
	d, ok := s.draft[studentID]
	if !ok {
		d = &DraftEntry{StudentID: studentID}
		s.draft[studentID] = d
		s.order = append(s.order, studentID)
	}
	return d
}

func (s *Session) clearDraftLocked() {
	s.draft = make(map[string]*DraftEntry)
	s.order = nil
	s.epoch++
}

func (s *Session) setPersistedLocked(records []Record) {
	s.persisted = records
	s.byStudent = make(map[string]Record, len(records))
	for _, rec := range records {
		s.byStudent[rec.StudentID] = rec
	}
}

func errNoDate() error {
	return NewValidationError(errors.New("select a date first"),
		FieldError{Field: "date", Error: "required"})
}
