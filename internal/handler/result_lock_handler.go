package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/pkg/response"
)

type resultLockService interface {
	List(ctx context.Context, actor *models.Actor, query models.ResultLockQuery) ([]models.LockSummary, error)
	Mutate(ctx context.Context, actor *models.Actor, action string, req models.LockMutationRequest) (*models.LockSummary, error)
}

// ResultLockHandler exposes the publish workflow of result groups.
type ResultLockHandler struct {
	locks resultLockService
}

// NewResultLockHandler constructs handler.
func NewResultLockHandler(locks resultLockService) *ResultLockHandler {
	return &ResultLockHandler{locks: locks}
}

// List godoc
// @Summary List result locks
// @Tags ResultLocks
// @Produce json
// @Param class_id query string false "Class"
// @Param session_id query string false "Session"
// @Param term query string false "Term"
// @Param exam_type query string false "Exam type"
// @Success 200 {object} response.Envelope
// @Router /result-locks [get]
func (h *ResultLockHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query models.ResultLockQuery
	if !bindQuery(c, &query) {
		return
	}
	locks, err := h.locks.List(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, locks, nil)
}

// Mutate godoc
// @Summary Lock, unlock or change overrides of a result group
// @Tags ResultLocks
// @Accept json
// @Produce json
// @Param action path string true "lock, unlock, grantOverride or revokeOverride"
// @Param payload body models.LockMutationRequest true "Group and optional teacher"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /result-locks/{action} [post]
func (h *ResultLockHandler) Mutate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.LockMutationRequest
	if !bindJSON(c, &req) {
		return
	}
	lock, err := h.locks.Mutate(c.Request.Context(), actor, c.Param("action"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lock, nil)
}
