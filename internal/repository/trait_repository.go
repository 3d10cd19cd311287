package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// TraitRepository reads psychomotor and affective ratings recorded by form teachers.
type TraitRepository struct {
	db *sqlx.DB
}

// NewTraitRepository constructs the repository.
func NewTraitRepository(db *sqlx.DB) *TraitRepository {
	return &TraitRepository{db: db}
}

// ListRatings returns the ratings of a student for a session term.
func (r *TraitRepository) ListRatings(ctx context.Context, studentID, sessionID string, term models.Term) ([]models.TraitRating, error) {
	const query = `
SELECT category, trait, rating, COALESCE(description, '') AS description
FROM trait_ratings
WHERE student_id = $1 AND session_id = $2 AND term = $3
ORDER BY category ASC, trait ASC`
	var ratings []models.TraitRating
	if err := r.db.SelectContext(ctx, &ratings, query, studentID, sessionID, string(term)); err != nil {
		return nil, fmt.Errorf("list trait ratings: %w", err)
	}
	return ratings, nil
}
