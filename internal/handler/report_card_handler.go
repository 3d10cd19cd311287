package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/service"
	"github.com/noah-isme/sma-results-api/pkg/response"
)

type reportCardService interface {
	Build(ctx context.Context, actor *models.Actor, studentID string, query models.ReportCardQuery) (*models.ReportCard, error)
}

type reportCardExporter interface {
	ReportCardPDF(ctx context.Context, actor *models.Actor, studentID string, query models.ReportCardQuery) (*service.ExportFile, error)
}

// ReportCardHandler exposes report cards.
type ReportCardHandler struct {
	reports reportCardService
	exports reportCardExporter
}

// NewReportCardHandler constructs handler.
func NewReportCardHandler(reports reportCardService, exports reportCardExporter) *ReportCardHandler {
	return &ReportCardHandler{reports: reports, exports: exports}
}

// Get godoc
// @Summary Report card of a student
// @Tags ReportCards
// @Produce json
// @Param studentId path string true "Student"
// @Param session_id query string true "Session"
// @Param term query string true "Term"
// @Param exam_type query string false "Exam type, final by default"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /report-cards/{studentId} [get]
func (h *ReportCardHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query models.ReportCardQuery
	if !bindQuery(c, &query) {
		return
	}
	card, err := h.reports.Build(c.Request.Context(), actor, c.Param("studentId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	var meta map[string]interface{}
	if len(card.Warnings) > 0 {
		meta = map[string]interface{}{"degraded": true}
	}
	response.JSON(c, http.StatusOK, card, meta)
}

// PDF godoc
// @Summary Report card of a student as PDF
// @Tags ReportCards
// @Produce application/pdf
// @Param studentId path string true "Student"
// @Param session_id query string true "Session"
// @Param term query string true "Term"
// @Success 200 {file} file
// @Router /report-cards/{studentId}/pdf [get]
func (h *ReportCardHandler) PDF(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query models.ReportCardQuery
	if !bindQuery(c, &query) {
		return
	}
	file, err := h.exports.ReportCardPDF(c.Request.Context(), actor, c.Param("studentId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
