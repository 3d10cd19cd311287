package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var scoreRowColumns = []string{"id", "student_id", "subject", "subject_key", "class_id", "session_id", "term", "exam_type", "school_id",
	"components", "total_score", "max_score", "percentage", "updated_by", "created_at", "updated_at"}

func sampleRecord(id string) models.ScoreRecord {
	max := 20.0
	return models.ScoreRecord{
		ID:         id,
		StudentID:  "stu-1",
		Subject:    "Mathematics",
		SubjectKey: "mathematics",
		ClassID:    "5",
		SessionID:  "2024-2025",
		Term:       models.TermFirst,
		ExamType:   models.ExamTypeFinal,
		Components: []models.ScoreComponent{{ComponentID: "ca1", Label: "CA1", Score: 18, MaxScore: &max}},
		TotalScore: 18,
	}
}

func TestScoreRepositoryUpsertChunkCommits(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	created := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO score_records .* ON CONFLICT \\(student_id, subject_key, class_id, session_id, term, exam_type\\) DO UPDATE")
	prep.ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("score-1", created))
	prep.ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("score-existing", created))
	mock.ExpectCommit()

	second := sampleRecord("")
	second.StudentID = "stu-2"
	records := []models.ScoreRecord{sampleRecord("score-1"), second}
	require.NoError(t, repo.UpsertChunk(context.Background(), records))

	assert.Equal(t, "score-1", records[0].ID)
	assert.Equal(t, "score-existing", records[1].ID)
	assert.Equal(t, created, records[1].CreatedAt)
	assert.False(t, records[1].UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryUpsertLeavesIdentityColumnsAlone(t *testing.T) {
	set := upsertScoreQuery[strings.Index(upsertScoreQuery, "DO UPDATE SET"):]
	for _, column := range []string{"id =", "student_id =", "subject_key =", "class_id =", "session_id =", "term =", "exam_type ="} {
		assert.NotContains(t, set, " "+column, column)
	}
}

func TestScoreRepositoryUpsertChunkRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO score_records").ExpectQuery().WillReturnError(errors.New("constraint violated"))
	mock.ExpectRollback()

	err := repo.UpsertChunk(context.Background(), []models.ScoreRecord{sampleRecord("score-1")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert score score-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryListBuildsFilters(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(scoreRowColumns).
		AddRow("score-1", "stu-1", "Mathematics", "mathematics", "5", "2024-2025", "first", "FINAL", nil,
			[]byte(`[{"componentId":"ca1","score":18,"maxScore":20},{"id":"exam","score":"55","max_score":60}]`),
			0.0, nil, nil, nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM score_records WHERE 1=1 AND class_id = $1 AND subject_key = $2 AND term = $3 AND session_id = $4 AND class_id = ANY($5) ORDER BY updated_at DESC, id ASC LIMIT $6")).
		WithArgs("5", "mathematics", "FIRST", "2024-2025", sqlmock.AnyArg(), 50).
		WillReturnRows(rows)

	records, err := repo.List(context.Background(), models.ScoreFilter{
		ClassID:   "5",
		Subject:   "  MATHEMATICS ",
		Term:      models.TermFirst,
		SessionID: "2024-2025",
		ClassIDs:  []string{"5", "6"},
		Limit:     50,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, models.TermFirst, record.Term)
	assert.Equal(t, models.ExamTypeFinal, record.ExamType)
	require.Len(t, record.Components, 2)
	assert.Equal(t, "exam", record.Components[1].ComponentID)
	assert.Equal(t, 73.0, record.TotalScore)
	require.NotNil(t, record.Percentage)
	assert.Equal(t, 91.3, *record.Percentage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryFindByIDsShortCircuits(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	records, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}
