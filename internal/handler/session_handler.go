package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/pkg/response"
)

type sessionService interface {
	List(ctx context.Context) ([]models.AcademicSession, string, error)
}

// SessionHandler lists academic sessions.
type SessionHandler struct {
	sessions sessionService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions sessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// List godoc
// @Summary List academic sessions
// @Description Falls back to cached or configured sessions when the store is unavailable; meta.source tells which.
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	sessions, source, err := h.sessions.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, map[string]interface{}{"source": source})
}
