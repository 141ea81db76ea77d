package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"classattend/internal/auth"
)

type tokenRequest struct {
	TeacherID string `json:"teacher_id" binding:"required"`
	Email     string `json:"email" binding:"omitempty,email"`
	FullName  string `json:"full_name"`
}

// issueToken bridges an externally authenticated teacher into API tokens.
func (h *Handler) issueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	if err := h.accounts.UpsertTeacher(ctx, auth.Teacher{ID: req.TeacherID, Email: req.Email, FullName: req.FullName}); err != nil {
		h.respondError(c, err)
		return
	}

	tokens, err := auth.Issue(req.TeacherID, auth.RoleTeacher, h.tokens.Issuer, h.tokens.SigningKey, h.tokens.AccessTTL, h.tokens.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	if err := h.accounts.SaveRefreshToken(ctx, req.TeacherID, tokens.RefreshToken, tokens.RefreshExp); err != nil {
		h.respondError(c, err)
		return
	}

	h.broker.SignedIn(auth.Claims{Subject: req.TeacherID, Role: auth.RoleTeacher})
	h.log.Info().Str("teacher_id", req.TeacherID).Msg("teacher signed in")

	c.JSON(http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// logout revokes a refresh token and ends the teacher's draft sessions.
func (h *Handler) logout(c *gin.Context) {
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	owner, err := h.accounts.RevokeRefreshToken(c.Request.Context(), req.RefreshToken)
	if errors.Is(err, auth.ErrTokenRevoked) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.broker.SignedOut(owner)
	h.log.Info().Str("teacher_id", owner).Msg("teacher signed out")
	c.Status(http.StatusNoContent)
}

// getProfile returns the profile of the calling teacher.
func (h *Handler) getProfile(c *gin.Context) {
	t, err := h.accounts.GetTeacher(c.Request.Context(), teacherID(c))
	if errors.Is(err, auth.ErrTeacherNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teacher": t})
}

type profileRequest struct {
	FullName string `json:"full_name" binding:"required"`
}

// updateProfile changes the display name only; the email stays owned by the
// identity provider.
func (h *Handler) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	id := teacherID(c)
	if _, err := h.accounts.GetTeacher(ctx, id); err != nil {
		if errors.Is(err, auth.ErrTeacherNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.respondError(c, err)
		return
	}
	if err := h.accounts.UpsertTeacher(ctx, auth.Teacher{ID: id, FullName: req.FullName}); err != nil {
		h.respondError(c, err)
		return
	}
	h.getProfile(c)
}
