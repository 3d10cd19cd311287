package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// AttendanceRepository aggregates daily attendance marks.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Summary counts a student's marks for a session term. A student without marks gets zero counts.
func (r *AttendanceRepository) Summary(ctx context.Context, studentID, sessionID string, term models.Term) (*models.AttendanceSummary, error) {
	const query = `
SELECT
    COUNT(*) FILTER (WHERE status = 'PRESENT') AS present,
    COUNT(*) FILTER (WHERE status = 'LATE') AS late,
    COUNT(*) FILTER (WHERE status = 'ABSENT') AS absent,
    COUNT(*) AS total
FROM attendance_records
WHERE student_id = $1 AND session_id = $2 AND term = $3`
	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, studentID, sessionID, string(term)); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	return &summary, nil
}
