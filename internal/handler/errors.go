package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"classattend/internal/attendance"
)

// respondError maps domain failures to HTTP. Store failures are reported with
// a generic message; the cause is only logged.
func (h *Handler) respondError(c *gin.Context, err error) {
	var ve *attendance.ValidationError
	switch {
	case errors.As(err, &ve):
		body := gin.H{"error": ve.Error()}
		if len(ve.Fields) > 0 {
			body["fields"] = ve.Fields
		}
		c.JSON(http.StatusBadRequest, body)
	case attendance.IsTransport(err):
		_ = c.Error(err)
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("attendance store failure")
		c.JSON(http.StatusBadGateway, gin.H{"error": "attendance service unavailable, try again"})
	default:
		_ = c.Error(err)
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
