package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// SchoolRepository reads school letterheads and the academic calendar.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs the repository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// FindSchool returns the school letterhead. sql.ErrNoRows is returned untouched.
func (r *SchoolRepository) FindSchool(ctx context.Context, id string) (*models.SchoolInfo, error) {
	const query = `SELECT id, name, address, motto, logo_url FROM schools WHERE id = $1`
	var school models.SchoolInfo
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get school %s: %w", id, err)
	}
	return &school, nil
}

// FindSessionTerm returns the calendar facts of a session term. sql.ErrNoRows is returned untouched.
func (r *SchoolRepository) FindSessionTerm(ctx context.Context, sessionID string, term models.Term) (*models.SessionTermInfo, error) {
	const query = `
SELECT s.id AS session_id, s.name AS session_name, st.term,
       to_char(st.starts_on, 'YYYY-MM-DD') AS starts_on,
       to_char(st.ends_on, 'YYYY-MM-DD') AS ends_on,
       to_char(st.next_term_begins, 'YYYY-MM-DD') AS next_term_begins
FROM academic_sessions s
JOIN session_terms st ON st.session_id = s.id
WHERE s.id = $1 AND st.term = $2`
	var info models.SessionTermInfo
	if err := r.db.GetContext(ctx, &info, query, sessionID, string(term)); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get session term: %w", err)
	}
	info.TermLabel = info.Term.Label()
	return &info, nil
}

// ListSessions returns academic sessions, newest first.
func (r *SchoolRepository) ListSessions(ctx context.Context) ([]models.AcademicSession, error) {
	const query = `
SELECT id, name, is_current, to_char(starts_on, 'YYYY-MM-DD') AS starts_on, to_char(ends_on, 'YYYY-MM-DD') AS ends_on
FROM academic_sessions
ORDER BY starts_on DESC NULLS LAST, id DESC`
	var sessions []models.AcademicSession
	if err := r.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}
