package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/service"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

type scoreServiceMock struct {
	records   []models.ScoreRecord
	listErr   error
	saveResp  *models.SaveResult
	saveErr   error
	lastQuery models.ScoreQuery
	lastRows  []models.ScoreRecordInput
}

func (m *scoreServiceMock) List(ctx context.Context, actor *models.Actor, query models.ScoreQuery) ([]models.ScoreRecord, error) {
	m.lastQuery = query
	return m.records, m.listErr
}

func (m *scoreServiceMock) Save(ctx context.Context, actor *models.Actor, inputs []models.ScoreRecordInput) (*models.SaveResult, error) {
	m.lastRows = inputs
	return m.saveResp, m.saveErr
}

type scoreSheetMock struct {
	file *service.ExportFile
	err  error
}

func (m *scoreSheetMock) ScoreSheet(ctx context.Context, actor *models.Actor, query models.ScoreQuery) (*service.ExportFile, error) {
	return m.file, m.err
}

func TestScoreHandlerListBindsQuery(t *testing.T) {
	svc := &scoreServiceMock{records: []models.ScoreRecord{{ID: "r1", Subject: "Maths"}}}
	handler := NewScoreHandler(svc, nil)

	c, w := newTestContext(http.MethodGet, "/scores?class_id=jss1&subject=maths&term=FIRST&limit=10", nil)
	withActor(c, models.NewActor("admin-1", models.RoleAdmin))
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jss1", svc.lastQuery.ClassID)
	assert.Equal(t, "maths", svc.lastQuery.Subject)
	assert.Equal(t, 10, svc.lastQuery.Limit)
	assert.EqualValues(t, 1, decode(t, w).Meta["count"])
}

func TestScoreHandlerListForbidden(t *testing.T) {
	handler := NewScoreHandler(&scoreServiceMock{listErr: appErrors.ErrForbidden}, nil)

	c, w := newTestContext(http.MethodGet, "/scores?class_id=other", nil)
	withActor(c, models.NewActor("teacher-1", models.RoleTeacher))
	handler.List(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestScoreHandlerSaveBatch(t *testing.T) {
	svc := &scoreServiceMock{saveResp: &models.SaveResult{
		Rows:      []models.ScoreRecord{{ID: "r1"}, {ID: "r2"}},
		Saved:     2,
		Chunks:    1,
		EchoFresh: true,
	}}
	handler := NewScoreHandler(svc, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"rows": []map[string]interface{}{
			{"student_id": "s1", "subject": "Maths", "class_id": "jss1", "session_id": "2024-2025", "term": "FIRST", "exam_type": "final",
				"components": []map[string]interface{}{{"label": "CA1", "score": "18", "maxScore": 20}}},
			{"student_id": "s2", "subject": "Maths", "class_id": "jss1", "session_id": "2024-2025", "term": "FIRST", "exam_type": "final"},
		},
	})
	c, w := newTestContext(http.MethodPost, "/scores/batch", body)
	withActor(c, models.NewActor("admin-1", models.RoleAdmin))
	handler.SaveBatch(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.lastRows, 2)
	assert.Equal(t, "18", svc.lastRows[0].Components[0]["score"])
	env := decode(t, w)
	assert.EqualValues(t, 2, env.Meta["saved"])
	assert.Equal(t, true, env.Meta["echo_fresh"])
}

func TestScoreHandlerSavePartialBatch(t *testing.T) {
	partial := appErrors.WithDetails(appErrors.ErrPartialBatch, "20 of 45 rows saved; chunk 2 failed", nil)
	handler := NewScoreHandler(&scoreServiceMock{saveErr: partial}, nil)

	c, w := newTestContext(http.MethodPost, "/scores/batch", []byte(`{"rows":[]}`))
	withActor(c, models.NewActor("admin-1", models.RoleAdmin))
	handler.SaveBatch(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	env := decode(t, w)
	assert.Equal(t, "PARTIAL_BATCH", env.Error.Code)
	assert.Equal(t, "5", w.Header().Get("Retry-After"))
}

func TestScoreHandlerSaveRequiresActor(t *testing.T) {
	svc := &scoreServiceMock{}
	handler := NewScoreHandler(svc, nil)

	c, w := newTestContext(http.MethodPost, "/scores/batch", []byte(`{"rows":[]}`))
	handler.SaveBatch(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, svc.lastRows)
}

func TestScoreHandlerExport(t *testing.T) {
	exports := &scoreSheetMock{file: &service.ExportFile{
		Filename:    "scores_2024-2025_FIRST_jss1.csv",
		ContentType: "text/csv",
		Body:        []byte("id,student_id\n"),
	}}
	handler := NewScoreHandler(&scoreServiceMock{}, exports)

	c, w := newTestContext(http.MethodGet, "/scores/export?class_id=jss1", nil)
	withActor(c, models.NewActor("admin-1", models.RoleAdmin))
	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "scores_2024-2025_FIRST_jss1.csv")
	assert.Equal(t, "id,student_id\n", w.Body.String())
}

