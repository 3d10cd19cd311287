package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/service"
	"github.com/noah-isme/sma-results-api/pkg/response"
)

type scoreService interface {
	List(ctx context.Context, actor *models.Actor, query models.ScoreQuery) ([]models.ScoreRecord, error)
	Save(ctx context.Context, actor *models.Actor, inputs []models.ScoreRecordInput) (*models.SaveResult, error)
}

type scoreSheetExporter interface {
	ScoreSheet(ctx context.Context, actor *models.Actor, query models.ScoreQuery) (*service.ExportFile, error)
}

// ScoreHandler exposes score record endpoints.
type ScoreHandler struct {
	scores  scoreService
	exports scoreSheetExporter
}

// NewScoreHandler constructs handler.
func NewScoreHandler(scores scoreService, exports scoreSheetExporter) *ScoreHandler {
	return &ScoreHandler{scores: scores, exports: exports}
}

// List godoc
// @Summary List score records
// @Tags Scores
// @Produce json
// @Param class_id query string false "Class"
// @Param subject query string false "Subject (case-insensitive)"
// @Param session_id query string false "Session"
// @Param term query string false "FIRST, SECOND or THIRD"
// @Param exam_type query string false "midterm or final"
// @Param student_id query string false "Student"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /scores [get]
func (h *ScoreHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query models.ScoreQuery
	if !bindQuery(c, &query) {
		return
	}
	records, err := h.scores.List(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, map[string]interface{}{"count": len(records)})
}

// SaveBatch godoc
// @Summary Save a batch of score records
// @Description Rows are validated first; the batch is rejected if any row is out of scope or locked.
// @Tags Scores
// @Accept json
// @Produce json
// @Param payload body models.ScoreBatchRequest true "Score rows"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /scores/batch [post]
func (h *ScoreHandler) SaveBatch(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.ScoreBatchRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.scores.Save(c.Request.Context(), actor, req.Rows)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result.Rows, map[string]interface{}{
		"saved":      result.Saved,
		"chunks":     result.Chunks,
		"echo_fresh": result.EchoFresh,
	})
}

// Export godoc
// @Summary Export score records as CSV
// @Tags Scores
// @Produce text/csv
// @Param class_id query string false "Class"
// @Param session_id query string false "Session"
// @Param term query string false "Term"
// @Param exam_type query string false "Exam type"
// @Success 200 {file} file
// @Router /scores/export [get]
func (h *ScoreHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query models.ScoreQuery
	if !bindQuery(c, &query) {
		return
	}
	file, err := h.exports.ScoreSheet(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
