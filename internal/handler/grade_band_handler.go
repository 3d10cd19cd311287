package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/grading"
	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/response"
)

// GradeBandHandler exposes the grading table.
type GradeBandHandler struct{}

// NewGradeBandHandler constructs handler.
func NewGradeBandHandler() *GradeBandHandler {
	return &GradeBandHandler{}
}

// Resolve godoc
// @Summary Grade bands
// @Description Without parameters returns the table. With percentage, or score and exam_type, returns the matching band.
// @Tags Grading
// @Produce json
// @Param percentage query number false "Percentage"
// @Param score query number false "Raw score"
// @Param exam_type query string false "midterm rescales a score out of 50"
// @Success 200 {object} response.Envelope
// @Router /grade-bands [get]
func (h *GradeBandHandler) Resolve(c *gin.Context) {
	if raw, ok := c.GetQuery("percentage"); ok {
		pct, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "percentage must be a number"))
			return
		}
		response.JSON(c, http.StatusOK, grading.Resolve(pct), nil)
		return
	}
	if raw, ok := c.GetQuery("score"); ok {
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "score must be a number"))
			return
		}
		examType := models.ExamTypeFinal
		rawExam := c.Query("exam_type")
		if rawExam == "" {
			rawExam = c.Query("examType")
		}
		if rawExam != "" {
			parsed, ok := models.ParseExamType(rawExam)
			if !ok {
				response.Error(c, appErrors.Clone(appErrors.ErrValidation, "exam_type must be midterm or final"))
				return
			}
			examType = parsed
		}
		response.JSON(c, http.StatusOK, grading.ResolveScore(examType, score), nil)
		return
	}
	response.JSON(c, http.StatusOK, grading.Bands(), nil)
}
