package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// TeacherAssignmentRepository reads which classes and subjects a teacher is assigned to.
type TeacherAssignmentRepository struct {
	db *sqlx.DB
}

// NewTeacherAssignmentRepository constructs the repository.
func NewTeacherAssignmentRepository(db *sqlx.DB) *TeacherAssignmentRepository {
	return &TeacherAssignmentRepository{db: db}
}

// ListByTeacher returns the class/subject pairs of teacherID.
func (r *TeacherAssignmentRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.TeacherAssignment, error) {
	const query = `
SELECT ta.teacher_id, ta.class_id, s.name AS subject_name
FROM teacher_assignments ta
JOIN subjects s ON s.id = ta.subject_id
WHERE ta.teacher_id = $1
ORDER BY ta.class_id ASC, s.name ASC`
	var assignments []models.TeacherAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher assignments: %w", err)
	}
	return assignments, nil
}
