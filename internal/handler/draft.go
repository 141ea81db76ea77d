package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"classattend/internal/attendance"
)

type draftView struct {
	attendance.View
	Draft []attendance.DraftEntry `json:"draft"`
}

// renderDraft responds with the merged view of a session.
func (h *Handler) renderDraft(c *gin.Context, s *attendance.Session, status int, extra gin.H) {
	students, err := h.svc.Roster(c.Request.Context(), s.ClassID())
	if err != nil {
		h.respondError(c, err)
		return
	}
	onlyUnmarked, _ := strconv.ParseBool(c.Query("unmarked_only"))
	f := attendance.Filter{Search: c.Query("q"), OnlyUnmarked: onlyUnmarked}
	v := draftView{View: s.View(students, f), Draft: s.Draft()}
	if extra == nil {
		c.JSON(status, v)
		return
	}
	extra["view"] = v
	c.JSON(status, extra)
}

func (h *Handler) getDraft(c *gin.Context) {
	s := h.registry.Session(teacherID(c), c.Param("classId"))
	h.renderDraft(c, s, http.StatusOK, nil)
}

type selectDateRequest struct {
	Date string `json:"date" binding:"required"`
}

func (h *Handler) selectDraftDate(c *gin.Context) {
	var req selectDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	date, err := attendance.ParseDate(req.Date)
	if err != nil {
		h.respondError(c, err)
		return
	}
	s := h.registry.Session(teacherID(c), c.Param("classId"))
	if err := s.SelectDate(c.Request.Context(), date); err != nil {
		h.respondError(c, err)
		return
	}
	h.renderDraft(c, s, http.StatusOK, nil)
}

type editEntryRequest struct {
	Status *string `json:"status" binding:"omitempty,oneof=present absent sick permission"`
	Notes  *string `json:"notes"`
}

func (h *Handler) editDraftEntry(c *gin.Context) {
	var req editEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s := h.registry.Session(teacherID(c), c.Param("classId"))
	studentID := c.Param("studentId")
	if req.Status != nil {
		s.SetStatus(studentID, attendance.Status(*req.Status))
	}
	if req.Notes != nil {
		s.SetNote(studentID, *req.Notes)
	}
	h.renderDraft(c, s, http.StatusOK, nil)
}

// commitDraft writes the draft, then reloads the date so the view shows the
// stored result.
func (h *Handler) commitDraft(c *gin.Context) {
	classID := c.Param("classId")
	s := h.registry.Session(teacherID(c), classID)
	ctx := c.Request.Context()

	res, err := s.Commit(ctx)
	h.observeCommit(ctx, classID, res.Date, res.Entries, s.TeacherID(), err)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := s.Refresh(ctx); err != nil {
		h.log.Warn().Err(err).Str("class_id", classID).Msg("refresh after commit failed")
	}
	h.renderDraft(c, s, http.StatusCreated, gin.H{"committed": res.Entries, "date": res.Date})
}

// discardDraft throws the session away; the next draft request starts fresh.
func (h *Handler) discardDraft(c *gin.Context) {
	h.registry.Drop(teacherID(c), c.Param("classId"))
	c.Status(http.StatusNoContent)
}
