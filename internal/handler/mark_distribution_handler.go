package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/pkg/response"
)

type markDistributionService interface {
	Get(ctx context.Context, query models.DistributionQuery) ([]models.MarkDistributionGroup, error)
	ListTemplates(ctx context.Context, actor *models.Actor, filter models.TemplateFilter) ([]models.MarkDistributionTemplate, error)
	UpsertTemplate(ctx context.Context, actor *models.Actor, req models.TemplateRequest) (*models.MarkDistributionTemplate, error)
	DeleteTemplate(ctx context.Context, actor *models.Actor, filter models.TemplateFilter) error
}

// MarkDistributionHandler exposes component weight breakdowns and their admin templates.
type MarkDistributionHandler struct {
	distributions markDistributionService
}

// NewMarkDistributionHandler constructs handler.
func NewMarkDistributionHandler(distributions markDistributionService) *MarkDistributionHandler {
	return &MarkDistributionHandler{distributions: distributions}
}

// Get godoc
// @Summary Mark distribution of a session
// @Tags MarkDistributions
// @Produce json
// @Param session_id query string true "Session"
// @Param term query string false "Term"
// @Param class_id query string false "Class"
// @Param exam_type query string false "Exam type"
// @Param school_id query string false "School, selects school specific templates"
// @Success 200 {object} response.Envelope
// @Router /mark-distributions [get]
func (h *MarkDistributionHandler) Get(c *gin.Context) {
	var query models.DistributionQuery
	if !bindQuery(c, &query) {
		return
	}
	groups, err := h.distributions.Get(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// ListTemplates godoc
// @Summary List distribution templates
// @Tags MarkDistributions
// @Produce json
// @Param session_id query string true "Session"
// @Param term query string false "Term"
// @Param exam_type query string false "Exam type"
// @Param school_id query string false "School"
// @Success 200 {object} response.Envelope
// @Router /mark-distributions/templates [get]
func (h *MarkDistributionHandler) ListTemplates(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var filter models.TemplateFilter
	if !bindQuery(c, &filter) {
		return
	}
	templates, err := h.distributions.ListTemplates(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, nil)
}

// UpsertTemplate godoc
// @Summary Create or replace a distribution template
// @Tags MarkDistributions
// @Accept json
// @Produce json
// @Param payload body models.TemplateRequest true "Template"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /mark-distributions/templates [put]
func (h *MarkDistributionHandler) UpsertTemplate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.TemplateRequest
	if !bindJSON(c, &req) {
		return
	}
	template, err := h.distributions.UpsertTemplate(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, template, nil)
}

// DeleteTemplate godoc
// @Summary Delete a distribution template
// @Tags MarkDistributions
// @Param session_id query string true "Session"
// @Param term query string true "Term"
// @Param exam_type query string true "Exam type"
// @Param school_id query string false "School"
// @Success 204
// @Router /mark-distributions/templates [delete]
func (h *MarkDistributionHandler) DeleteTemplate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var filter models.TemplateFilter
	if !bindQuery(c, &filter) {
		return
	}
	if err := h.distributions.DeleteTemplate(c.Request.Context(), actor, filter); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
