package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classattend/internal/attendance"
	"classattend/internal/auth"
	"classattend/internal/queue"
	"classattend/internal/roster"
	"classattend/internal/store"
)

type testEnv struct {
	router  *gin.Engine
	handler *Handler
	store   *attendance.MemoryStore
	queue   *queue.InMemory
	token   string
	refresh string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := store.NewDB(ctx, "sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	students := roster.NewMemory()
	for _, st := range []roster.Student{
		{ID: "s1", FullName: "Ani Lestari", Email: "ani@school.id", IsActive: true},
		{ID: "s2", FullName: "Budi Santoso", Email: "budi@school.id", IsActive: true},
	} {
		require.NoError(t, students.Enroll(ctx, "c1", st))
	}

	mem := attendance.NewMemoryStore()
	svc := attendance.NewService(mem, students, zerolog.Nop())
	svc.SetClock(func() time.Time { return time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC) })
	q := queue.NewInMemory(16)

	h := New(Deps{
		Service:  svc,
		Roster:   students,
		Accounts: auth.NewRepository(db.Client),
		Broker:   auth.NewBroker(),
		Queue:    q,
		Tokens:   TokenConfig{Issuer: "test", SigningKey: "secret", AccessTTL: time.Minute, RefreshTTL: time.Hour},
		Health:   map[string]func(context.Context) bool{"db": db.Healthy},
		Logger:   zerolog.Nop(),
	})
	t.Cleanup(h.Close)

	r := gin.New()
	h.Register(r)
	env := &testEnv{router: r, handler: h, store: mem, queue: q}

	rec := env.do(t, http.MethodPost, "/v1/auth/token", gin.H{"teacher_id": "t1", "email": "sari@school.id", "full_name": "Bu Sari"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokens))
	env.token, env.refresh = tokens.AccessToken, tokens.RefreshToken
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (e *testEnv) nextEvent(t *testing.T) queue.CommitEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msgs, err := e.queue.Consume(ctx)
	require.NoError(t, err)
	msg, ok := <-msgs
	require.True(t, ok, "no commit event published")
	evt, err := queue.DecodeCommit(msg)
	require.NoError(t, err)
	return evt
}

func TestRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""
	rec := env.do(t, http.MethodGet, "/v1/classes/c1/roster", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoster(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/v1/classes/c1/roster/s3", gin.H{"full_name": "Citra Dewi"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodDelete, "/v1/classes/c1/roster/s1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/classes/c1/roster", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Students []roster.Student `json:"students"`
	}
	decode(t, rec, &body)
	ids := []string{}
	for _, st := range body.Students {
		ids = append(ids, st.ID)
	}
	assert.Equal(t, []string{"s2", "s3"}, ids)
}

func TestDirectCommit(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		body     any
		wantCode int
	}{
		{name: "unknown status", body: gin.H{"date": "2024-03-30", "entries": []gin.H{{"student_id": "s1", "status": "late"}}}, wantCode: http.StatusBadRequest},
		{name: "no entries", body: gin.H{"date": "2024-03-30", "entries": []gin.H{}}, wantCode: http.StatusBadRequest},
		{name: "bad date", body: gin.H{"date": "30/03/2024", "entries": []gin.H{{"student_id": "s1", "status": "present"}}}, wantCode: http.StatusBadRequest},
		{name: "ok", body: gin.H{"date": "2024-03-30", "entries": []gin.H{
			{"student_id": "s1", "status": "present"},
			{"student_id": "s2", "status": "sick", "notes": "flu"},
		}}, wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/v1/classes/c1/attendance", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	evt := env.nextEvent(t)
	assert.Equal(t, queue.CommitEvent{ClassID: "c1", Date: "2024-03-30", Entries: 2, RecordedBy: "t1"}, evt)

	rec := env.do(t, http.MethodGet, "/v1/classes/c1/attendance?date=2024-03-30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var day struct {
		Records []attendance.Record `json:"records"`
		Summary attendance.Summary  `json:"summary"`
	}
	decode(t, rec, &day)
	assert.Len(t, day.Records, 2)
	assert.Equal(t, attendance.Summary{Total: 2, Present: 1, Sick: 1, Completion: 100}, day.Summary)

	rec = env.do(t, http.MethodGet, "/v1/classes/c1/attendance?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDraftWorkflow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/classes/c1/draft/commit", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no date selected")

	rec = env.do(t, http.MethodPut, "/v1/classes/c1/draft/date", gin.H{"date": "2024-03-31"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/v1/classes/c1/draft/commit", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var verr struct {
		Error  string                  `json:"error"`
		Fields []attendance.FieldError `json:"fields"`
	}
	decode(t, rec, &verr)
	assert.Equal(t, attendance.ErrEmptyDraft.Error(), verr.Error)
	assert.NotEmpty(t, verr.Fields)

	rec = env.do(t, http.MethodPut, "/v1/classes/c1/draft/students/s1", gin.H{"status": "late"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/v1/classes/c1/draft/students/s1", gin.H{"status": "absent", "notes": "no news"})
	require.Equal(t, http.StatusOK, rec.Code)
	var view draftView
	decode(t, rec, &view)
	assert.Equal(t, 1, view.Selected)
	require.Len(t, view.Draft, 1)
	assert.Equal(t, attendance.Absent, view.Draft[0].Status)

	rec = env.do(t, http.MethodPost, "/v1/classes/c1/draft/commit", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var committed struct {
		Committed int       `json:"committed"`
		View      draftView `json:"view"`
	}
	decode(t, rec, &committed)
	assert.Equal(t, 1, committed.Committed)
	assert.Empty(t, committed.View.Draft)
	assert.Equal(t, 1, committed.View.Summary.Absent)
	assert.Equal(t, attendance.Absent, committed.View.Rows[0].Status)
	assert.Equal(t, "no news", committed.View.Rows[0].Notes)

	evt := env.nextEvent(t)
	assert.Equal(t, "c1", evt.ClassID)
	assert.Equal(t, "2024-03-31", evt.Date)

	rec = env.do(t, http.MethodGet, "/v1/classes/c1/draft?unmarked_only=true&q=ani", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &view)
	require.Len(t, view.Rows, 1, "absent students stay in the unmarked filter")
	assert.Equal(t, "s1", view.Rows[0].Student.ID)

	rec = env.do(t, http.MethodDelete, "/v1/classes/c1/draft", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, env.handler.Registry().Len())
}

func TestDraftCommitStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/v1/classes/c1/draft/date", gin.H{"date": "2024-03-31"}).Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/v1/classes/c1/draft/students/s2", gin.H{"status": "present"}).Code)

	env.store.FailNext(errors.New("connection refused"))
	rec := env.do(t, http.MethodPost, "/v1/classes/c1/draft/commit", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	rec = env.do(t, http.MethodGet, "/v1/classes/c1/draft", nil)
	var view draftView
	decode(t, rec, &view)
	assert.Len(t, view.Draft, 1, "draft kept after a failed commit")
}

func TestLogoutDropsSessions(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/v1/classes/c1/draft", nil).Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/v1/classes/c2/draft", nil).Code)
	assert.Equal(t, 2, env.handler.Registry().Len())

	rec := env.do(t, http.MethodPost, "/v1/auth/logout", gin.H{"refresh_token": env.refresh})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, 0, env.handler.Registry().Len())

	rec = env.do(t, http.MethodPost, "/v1/auth/logout", gin.H{"refresh_token": env.refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHistoryAndStatistics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, d := range []attendance.Date{"2024-02-10", "2024-03-05", "2024-03-20"} {
		require.NoError(t, env.store.CommitBatch(ctx, "c1", d, []attendance.Entry{
			{StudentID: "s1", Status: attendance.Present},
			{StudentID: "s2", Status: attendance.Absent},
		}, "t1"))
	}

	rec := env.do(t, http.MethodGet, "/v1/classes/c1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hist historyResponse
	decode(t, rec, &hist)
	assert.Equal(t, attendance.Date("2024-03-01"), hist.From)
	require.Len(t, hist.Days, 2)
	assert.Equal(t, attendance.Date("2024-03-20"), hist.Days[0].Date)
	assert.Equal(t, 1, hist.Days[0].Counts[attendance.Present])

	rec = env.do(t, http.MethodGet, "/v1/classes/c1/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rep attendance.Report
	decode(t, rec, &rep)
	assert.Equal(t, 2, rep.TotalSessions)
	assert.Equal(t, 50.0, rep.ClassAverage)
	require.Len(t, rep.Rows, 2)
	assert.Equal(t, attendance.RatingGood, rep.Rows[0].Rating)
	assert.Equal(t, attendance.RatingPoor, rep.Rows[1].Rating)

	rec = env.do(t, http.MethodGet, "/v1/classes/c1/statistics?from=2024-01-01&to=2024-03-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &rep)
	assert.Equal(t, 3, rep.TotalSessions)

	rec = env.do(t, http.MethodGet, "/v1/classes/c1/statistics?from=2024-03-31&to=2024-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.store.FailNext(errors.New("down"))
	rec = env.do(t, http.MethodGet, "/v1/classes/c1/history", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"db":true`)
}

func TestCommitRejectsInactiveStudents(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/v1/classes/c1/roster/s2", nil).Code)

	rec := env.do(t, http.MethodPost, "/v1/classes/c1/attendance", gin.H{"date": "2024-03-05", "entries": []gin.H{
		{"student_id": "s1", "status": "present"},
		{"student_id": "s2", "status": "absent"},
		{"student_id": "ghost", "status": "present"},
	}})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	var verr struct {
		Error  string                  `json:"error"`
		Fields []attendance.FieldError `json:"fields"`
	}
	decode(t, rec, &verr)
	assert.Equal(t, attendance.ErrNotEnrolled.Error(), verr.Error)
	fields := []string{}
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{"entries[1].student_id", "entries[2].student_id"}, fields)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/v1/classes/c1/draft/date", gin.H{"date": "2024-03-06"}).Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/v1/classes/c1/draft/students/nobody", gin.H{"status": "sick"}).Code)
	rec = env.do(t, http.MethodPost, "/v1/classes/c1/draft/commit", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	stored, err := env.store.FetchHistory(context.Background(), "c1", "2024-01-01")
	require.NoError(t, err)
	assert.Empty(t, stored, "nothing recorded for inactive or unknown students")
}

func TestHistoryResolvesNames(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.CommitBatch(context.Background(), "c1", "2024-03-25", []attendance.Entry{
		{StudentID: "s1", Status: attendance.Present},
		{StudentID: "gone", Status: attendance.Absent},
	}, "t1"))

	rec := env.do(t, http.MethodGet, "/v1/classes/c1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hist historyResponse
	decode(t, rec, &hist)
	require.Len(t, hist.Days, 1)
	assert.Equal(t, 2, hist.Days[0].Total)

	names := map[string]string{}
	for _, r := range hist.Days[0].Records {
		names[r.StudentID] = r.StudentName
	}
	assert.Equal(t, map[string]string{"s1": "Ani Lestari", "gone": attendance.UnknownStudent}, names)
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)

	var body struct {
		Teacher auth.Teacher `json:"teacher"`
	}
	rec := env.do(t, http.MethodGet, "/v1/me", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &body)
	assert.Equal(t, "t1", body.Teacher.ID)
	assert.Equal(t, "Bu Sari", body.Teacher.FullName)

	rec = env.do(t, http.MethodPut, "/v1/me", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/v1/me", gin.H{"full_name": "Sari Wulandari", "email": "other@school.id"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &body)
	assert.Equal(t, "Sari Wulandari", body.Teacher.FullName)
	assert.Equal(t, "sari@school.id", body.Teacher.Email, "email is not editable")
}

func TestProfileUnknownTeacher(t *testing.T) {
	env := newTestEnv(t)
	tokens, err := auth.Issue("stranger", auth.RoleTeacher, "test", "secret", time.Minute, time.Hour)
	require.NoError(t, err)
	env.token = tokens.AccessToken

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/v1/me", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPut, "/v1/me", gin.H{"full_name": "X"}).Code)
}
