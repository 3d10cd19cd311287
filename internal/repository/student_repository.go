package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// StudentRepository reads the student directory.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns the student with their current class. sql.ErrNoRows is returned untouched.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `
SELECT s.id, s.full_name, s.admission_number, s.class_id, c.name AS class_name, s.school_id, s.gender
FROM students s
LEFT JOIN classes c ON c.id = s.class_id
WHERE s.id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get student %s: %w", id, err)
	}
	return &student, nil
}

// IDsForUser returns the students a viewer account may see: the student themself
// or the wards of a parent.
func (r *StudentRepository) IDsForUser(ctx context.Context, userID string, role models.UserRole) ([]string, error) {
	var query string
	switch role {
	case models.RoleStudent:
		query = `SELECT id FROM students WHERE user_id = $1 ORDER BY id`
	case models.RoleParent:
		query = `SELECT student_id FROM student_guardians WHERE guardian_user_id = $1 ORDER BY student_id`
	default:
		return nil, nil
	}
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("list students for user %s: %w", userID, err)
	}
	return ids, nil
}
