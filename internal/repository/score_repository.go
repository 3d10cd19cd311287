package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-results-api/internal/grading"
	"github.com/noah-isme/sma-results-api/internal/models"
)

const scoreColumns = `id, student_id, subject, subject_key, class_id, session_id, term, exam_type, school_id,
        components, total_score, max_score, percentage, updated_by, created_at, updated_at`

// upsertScoreQuery keys on the record identity; a conflicting row keeps its id, class and group.
const upsertScoreQuery = `INSERT INTO score_records (id, student_id, subject, subject_key, class_id, session_id, term, exam_type, school_id,
        components, total_score, max_score, percentage, updated_by, created_at, updated_at)
        VALUES (:id, :student_id, :subject, :subject_key, :class_id, :session_id, :term, :exam_type, :school_id,
        :components, :total_score, :max_score, :percentage, :updated_by, :created_at, :updated_at)
        ON CONFLICT (student_id, subject_key, class_id, session_id, term, exam_type) DO UPDATE SET subject = EXCLUDED.subject,
        school_id = EXCLUDED.school_id, components = EXCLUDED.components, total_score = EXCLUDED.total_score,
        max_score = EXCLUDED.max_score, percentage = EXCLUDED.percentage, updated_by = EXCLUDED.updated_by,
        updated_at = EXCLUDED.updated_at
        RETURNING id, created_at`

// scoreRow is the storage shape; components stay raw JSON until normalized.
type scoreRow struct {
	ID         string         `db:"id"`
	StudentID  string         `db:"student_id"`
	Subject    string         `db:"subject"`
	SubjectKey string         `db:"subject_key"`
	ClassID    string         `db:"class_id"`
	SessionID  string         `db:"session_id"`
	Term       string         `db:"term"`
	ExamType   string         `db:"exam_type"`
	SchoolID   *string        `db:"school_id"`
	Components types.JSONText `db:"components"`
	TotalScore float64        `db:"total_score"`
	MaxScore   *float64       `db:"max_score"`
	Percentage *float64       `db:"percentage"`
	UpdatedBy  *string        `db:"updated_by"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

// toModel normalizes the stored components and re-derives the totals; stored totals are not trusted.
func (r scoreRow) toModel() models.ScoreRecord {
	record := models.ScoreRecord{
		ID:         r.ID,
		StudentID:  r.StudentID,
		Subject:    r.Subject,
		SubjectKey: r.SubjectKey,
		ClassID:    r.ClassID,
		SessionID:  r.SessionID,
		Term:       models.Term(r.Term),
		ExamType:   models.ExamType(r.ExamType),
		SchoolID:   r.SchoolID,
		Components: grading.DecodeComponents(r.Components),
		UpdatedBy:  r.UpdatedBy,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if term, ok := models.ParseTerm(r.Term); ok {
		record.Term = term
	}
	if examType, ok := models.ParseExamType(r.ExamType); ok {
		record.ExamType = examType
	}
	if record.SubjectKey == "" {
		record.SubjectKey = models.SubjectKey(r.Subject)
	}
	grading.ApplyTotals(&record)
	return record
}

func rowFromModel(record models.ScoreRecord) (scoreRow, error) {
	components := record.Components
	if components == nil {
		components = []models.ScoreComponent{}
	}
	payload, err := json.Marshal(components)
	if err != nil {
		return scoreRow{}, fmt.Errorf("marshal components for %s: %w", record.ID, err)
	}
	return scoreRow{
		ID:         record.ID,
		StudentID:  record.StudentID,
		Subject:    record.Subject,
		SubjectKey: record.SubjectKey,
		ClassID:    record.ClassID,
		SessionID:  record.SessionID,
		Term:       string(record.Term),
		ExamType:   string(record.ExamType),
		SchoolID:   record.SchoolID,
		Components: types.JSONText(payload),
		TotalScore: record.TotalScore,
		MaxScore:   record.MaxScore,
		Percentage: record.Percentage,
		UpdatedBy:  record.UpdatedBy,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}, nil
}

// ScoreRepository persists score records.
type ScoreRepository struct {
	db *sqlx.DB
}

// NewScoreRepository creates a score repository.
func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// UpsertChunk writes records in one transaction; any failure rolls the whole chunk back.
// Ids and timestamps are filled in place, and a row matching an existing record identity
// takes over that record's id.
func (r *ScoreRepository) UpsertChunk(ctx context.Context, records []models.ScoreRecord) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]scoreRow, len(records))
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		if records[i].CreatedAt.IsZero() {
			records[i].CreatedAt = now
		}
		records[i].UpdatedAt = now
		row, err := rowFromModel(records[i])
		if err != nil {
			return err
		}
		rows[i] = row
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin score chunk: %w", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, upsertScoreQuery)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("prepare score upsert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	for i, row := range rows {
		if err := stmt.QueryRowxContext(ctx, row).Scan(&records[i].ID, &records[i].CreatedAt); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("upsert score %s: %w", row.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit score chunk: %w", err)
	}
	return nil
}

// List returns score records matching filter, most recently updated first.
func (r *ScoreRepository) List(ctx context.Context, filter models.ScoreFilter) ([]models.ScoreRecord, error) {
	query := "SELECT " + scoreColumns + " FROM score_records WHERE 1=1"
	var args []interface{}
	add := func(clause string, value interface{}) {
		args = append(args, value)
		query += fmt.Sprintf(clause, len(args))
	}

	if filter.ClassID != "" {
		add(" AND class_id = $%d", filter.ClassID)
	}
	if filter.Subject != "" {
		add(" AND subject_key = $%d", models.SubjectKey(filter.Subject))
	}
	if filter.ExamType != "" {
		add(" AND exam_type = $%d", string(filter.ExamType))
	}
	if filter.Term != "" {
		add(" AND term = $%d", string(filter.Term))
	}
	if filter.SessionID != "" {
		add(" AND session_id = $%d", filter.SessionID)
	}
	if filter.StudentID != "" {
		add(" AND student_id = $%d", filter.StudentID)
	}
	if len(filter.ClassIDs) > 0 {
		add(" AND class_id = ANY($%d)", pq.Array(filter.ClassIDs))
	}
	if len(filter.SubjectKeys) > 0 {
		add(" AND subject_key = ANY($%d)", pq.Array(filter.SubjectKeys))
	}
	if len(filter.StudentIDs) > 0 {
		add(" AND student_id = ANY($%d)", pq.Array(filter.StudentIDs))
	}
	query += " ORDER BY updated_at DESC, id ASC"
	if filter.Limit > 0 {
		add(" LIMIT $%d", filter.Limit)
	}

	var rows []scoreRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return toModels(rows), nil
}

// FindByIDs loads the records with the given ids, most recently updated first.
func (r *ScoreRepository) FindByIDs(ctx context.Context, ids []string) ([]models.ScoreRecord, error) {
	if len(ids) == 0 {
		return []models.ScoreRecord{}, nil
	}
	query := "SELECT " + scoreColumns + " FROM score_records WHERE id = ANY($1) ORDER BY updated_at DESC, id ASC"
	var rows []scoreRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find scores: %w", err)
	}
	return toModels(rows), nil
}

// Ping checks connectivity for readiness probes.
func (r *ScoreRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func toModels(rows []scoreRow) []models.ScoreRecord {
	out := make([]models.ScoreRecord, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out
}
