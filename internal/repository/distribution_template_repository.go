package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-results-api/internal/models"
)

type templateRow struct {
	ID         string         `db:"id"`
	SessionID  string         `db:"session_id"`
	Term       string         `db:"term"`
	ExamType   string         `db:"exam_type"`
	SchoolID   *string        `db:"school_id"`
	Components types.JSONText `db:"components"`
	UpdatedBy  *string        `db:"updated_by"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r templateRow) toModel() (models.MarkDistributionTemplate, error) {
	template := models.MarkDistributionTemplate{
		ID:        r.ID,
		SessionID: r.SessionID,
		Term:      models.Term(r.Term),
		ExamType:  models.ExamType(r.ExamType),
		SchoolID:  r.SchoolID,
		UpdatedBy: r.UpdatedBy,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if err := r.Components.Unmarshal(&template.Components); err != nil {
		return template, fmt.Errorf("decode template %s components: %w", r.ID, err)
	}
	return template, nil
}

// DistributionTemplateRepository stores admin authored mark distribution templates.
type DistributionTemplateRepository struct {
	db *sqlx.DB
}

// NewDistributionTemplateRepository creates the repository.
func NewDistributionTemplateRepository(db *sqlx.DB) *DistributionTemplateRepository {
	return &DistributionTemplateRepository{db: db}
}

// List returns templates of a session. When schoolID is set, school specific templates
// are returned alongside the session-wide ones (school_id IS NULL).
func (r *DistributionTemplateRepository) List(ctx context.Context, sessionID string, term models.Term, examType models.ExamType, schoolID *string) ([]models.MarkDistributionTemplate, error) {
	query := `SELECT id, session_id, term, exam_type, school_id, components, updated_by, created_at, updated_at
        FROM mark_distribution_templates WHERE session_id = $1`
	args := []interface{}{sessionID}
	if term != "" {
		args = append(args, string(term))
		query += fmt.Sprintf(" AND term = $%d", len(args))
	}
	if examType != "" {
		args = append(args, string(examType))
		query += fmt.Sprintf(" AND exam_type = $%d", len(args))
	}
	if schoolID != nil {
		args = append(args, *schoolID)
		query += fmt.Sprintf(" AND (school_id IS NULL OR school_id = $%d)", len(args))
	} else {
		query += " AND school_id IS NULL"
	}
	query += " ORDER BY term ASC, exam_type ASC, school_id NULLS FIRST"

	var rows []templateRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list distribution templates: %w", err)
	}
	templates := make([]models.MarkDistributionTemplate, 0, len(rows))
	for _, row := range rows {
		template, err := row.toModel()
		if err != nil {
			return nil, err
		}
		templates = append(templates, template)
	}
	return templates, nil
}

// Upsert replaces the template of (session, term, exam type, school).
func (r *DistributionTemplateRepository) Upsert(ctx context.Context, template *models.MarkDistributionTemplate) error {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}
	template.UpdatedAt = now

	payload, err := json.Marshal(template.Components)
	if err != nil {
		return fmt.Errorf("marshal template components: %w", err)
	}

	const query = `INSERT INTO mark_distribution_templates (id, session_id, term, exam_type, school_id, components, updated_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (session_id, term, exam_type, (COALESCE(school_id, '')))
        DO UPDATE SET components = EXCLUDED.components, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at
        RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, query, template.ID, template.SessionID, string(template.Term), string(template.ExamType),
		template.SchoolID, types.JSONText(payload), template.UpdatedBy, template.CreatedAt, template.UpdatedAt)
	if err := row.Scan(&template.ID, &template.CreatedAt); err != nil {
		return fmt.Errorf("upsert distribution template: %w", err)
	}
	return nil
}

// Delete removes the template of (session, term, exam type, school) and reports how many rows went.
func (r *DistributionTemplateRepository) Delete(ctx context.Context, sessionID string, term models.Term, examType models.ExamType, schoolID *string) (int64, error) {
	const query = `DELETE FROM mark_distribution_templates
        WHERE session_id = $1 AND term = $2 AND exam_type = $3 AND COALESCE(school_id, '') = COALESCE($4::text, '')`
	result, err := r.db.ExecContext(ctx, query, sessionID, string(term), string(examType), schoolID)
	if err != nil {
		return 0, fmt.Errorf("delete distribution template: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete distribution template: %w", err)
	}
	return affected, nil
}
