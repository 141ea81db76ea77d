package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"classattend/internal/attendance"
	"classattend/internal/metrics"
	"classattend/internal/queue"
	"classattend/internal/roster"
)

const publishTimeout = 2 * time.Second

func (h *Handler) listRoster(c *gin.Context) {
	students, err := h.svc.Roster(c.Request.Context(), c.Param("classId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

type enrollRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"omitempty,email"`
}

func (h *Handler) enrollStudent(c *gin.Context) {
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	st := roster.Student{ID: c.Param("studentId"), FullName: req.FullName, Email: req.Email, IsActive: true}
	if err := h.roster.Enroll(c.Request.Context(), c.Param("classId"), st); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": st})
}

func (h *Handler) deactivateStudent(c *gin.Context) {
	if err := h.roster.Deactivate(c.Request.Context(), c.Param("classId"), c.Param("studentId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getAttendance(c *gin.Context) {
	date, err := attendance.ParseDate(c.Query("date"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	records, sum, err := h.svc.Day(c.Request.Context(), c.Param("classId"), date)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "records": records, "summary": sum})
}

type commitRequest struct {
	Date    string         `json:"date" binding:"required"`
	Entries []entryRequest `json:"entries" binding:"required,min=1,dive"`
}

type entryRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	Status    string `json:"status" binding:"required,oneof=present absent sick permission"`
	Notes     string `json:"notes"`
}

// commitAttendance records a whole batch without going through a draft.
func (h *Handler) commitAttendance(c *gin.Context) {
	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.Commits.WithLabelValues("invalid").Inc()
		badRequest(c, err)
		return
	}
	date, err := attendance.ParseDate(req.Date)
	if err != nil {
		metrics.Commits.WithLabelValues("invalid").Inc()
		h.respondError(c, err)
		return
	}
	entries := make([]attendance.Entry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, attendance.Entry{StudentID: e.StudentID, Status: attendance.Status(e.Status), Notes: e.Notes})
	}

	classID := c.Param("classId")
	err = h.svc.Commit(c.Request.Context(), classID, date, entries, teacherID(c))
	h.observeCommit(c.Request.Context(), classID, date, len(entries), teacherID(c), err)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"date": date, "committed": len(entries)})
}

// observeCommit counts the outcome and announces successful commits.
func (h *Handler) observeCommit(ctx context.Context, classID string, date attendance.Date, n int, recordedBy string, err error) {
	switch {
	case err == nil:
		metrics.Commits.WithLabelValues("ok").Inc()
		metrics.CommittedEntries.Observe(float64(n))
	case attendance.IsValidation(err):
		metrics.Commits.WithLabelValues("invalid").Inc()
		return
	default:
		metrics.Commits.WithLabelValues("failed").Inc()
		return
	}
	if h.queue == nil {
		return
	}
	evt := queue.CommitEvent{ClassID: classID, Date: date.String(), Entries: n, RecordedBy: recordedBy}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := queue.PublishCommit(pubCtx, h.queue, evt); err != nil {
		h.log.Warn().Err(err).Str("class_id", classID).Msg("commit event publish failed")
	}
}

type historyRecord struct {
	attendance.Record
	StudentName string `json:"student_name"`
	Known       bool   `json:"known"`
}

type historyDay struct {
	Date    attendance.Date           `json:"date"`
	Counts  map[attendance.Status]int `json:"counts"`
	Total   int                       `json:"total"`
	Records []historyRecord           `json:"records"`
}

type historyResponse struct {
	From attendance.Date `json:"from"`
	To   attendance.Date `json:"to"`
	Days []historyDay    `json:"days"`
}

// getHistory lists the trailing window newest date first, with student
// names resolved against the active roster.
func (h *Handler) getHistory(c *gin.Context) {
	ctx := c.Request.Context()
	classID := c.Param("classId")
	buckets, err := h.svc.History(ctx, classID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	students, err := h.svc.Roster(ctx, classID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	from, to := h.svc.TrailingWindow()
	resp := historyResponse{From: from, To: to, Days: make([]historyDay, 0, len(buckets))}
	for _, d := range attendance.SortedDates(buckets) {
		b := buckets[d]
		day := historyDay{Date: d, Counts: b.Counts, Total: b.Total(), Records: make([]historyRecord, 0, len(b.Records))}
		for _, rec := range b.Records {
			name, known := attendance.StudentName(students, rec.StudentID)
			day.Records = append(day.Records, historyRecord{Record: rec, StudentName: name, Known: known})
		}
		resp.Days = append(resp.Days, day)
	}
	c.JSON(http.StatusOK, resp)
}

// getStatistics defaults to the trailing window when from or to is missing.
func (h *Handler) getStatistics(c *gin.Context) {
	from, to := h.svc.TrailingWindow()
	var err error
	if v := c.Query("from"); v != "" {
		if from, err = attendance.ParseDate(v); err != nil {
			h.respondError(c, err)
			return
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = attendance.ParseDate(v); err != nil {
			h.respondError(c, err)
			return
		}
	}
	rep, err := h.svc.Report(c.Request.Context(), c.Param("classId"), from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}
