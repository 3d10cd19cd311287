package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-results-api/internal/models"
)

const lockColumns = `id, class_id, session_id, term, exam_type, is_locked, locked_by, locked_at,
        allowed_teacher_ids, notes, created_at, updated_at`

// ResultLockRepository persists result locks keyed by (class, session, term, exam type).
type ResultLockRepository struct {
	db *sqlx.DB
}

// NewResultLockRepository creates a result lock repository.
func NewResultLockRepository(db *sqlx.DB) *ResultLockRepository {
	return &ResultLockRepository{db: db}
}

// FindMany loads the locks of keys, indexed by LockKey.String(). Keys without a row are absent.
func (r *ResultLockRepository) FindMany(ctx context.Context, keys []models.LockKey) (map[string]*models.ResultLock, error) {
	result := make(map[string]*models.ResultLock, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	classIDs := make([]string, len(keys))
	sessionIDs := make([]string, len(keys))
	terms := make([]string, len(keys))
	examTypes := make([]string, len(keys))
	for i, key := range keys {
		classIDs[i] = key.ClassID
		sessionIDs[i] = key.SessionID
		terms[i] = string(key.Term)
		examTypes[i] = string(key.ExamType)
	}

	query := `SELECT ` + lockColumns + ` FROM result_locks
        WHERE (class_id, session_id, term, exam_type) IN (
            SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::text[]))`
	var locks []models.ResultLock
	if err := r.db.SelectContext(ctx, &locks, query,
		pq.Array(classIDs), pq.Array(sessionIDs), pq.Array(terms), pq.Array(examTypes)); err != nil {
		return nil, fmt.Errorf("find result locks: %w", err)
	}
	for i := range locks {
		lock := locks[i]
		result[lock.LockKey.String()] = &lock
	}
	return result, nil
}

// List returns locks matching filter ordered by most recent change.
func (r *ResultLockRepository) List(ctx context.Context, filter models.ResultLockFilter) ([]models.ResultLock, error) {
	query := "SELECT " + lockColumns + " FROM result_locks WHERE 1=1"
	var args []interface{}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		query += fmt.Sprintf(" AND class_id = $%d", len(args))
	}
	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		query += fmt.Sprintf(" AND session_id = $%d", len(args))
	}
	if filter.Term != "" {
		args = append(args, string(filter.Term))
		query += fmt.Sprintf(" AND term = $%d", len(args))
	}
	if filter.ExamType != "" {
		args = append(args, string(filter.ExamType))
		query += fmt.Sprintf(" AND exam_type = $%d", len(args))
	}
	if len(filter.ClassIDs) > 0 {
		args = append(args, pq.Array(filter.ClassIDs))
		query += fmt.Sprintf(" AND class_id = ANY($%d)", len(args))
	}
	query += " ORDER BY updated_at DESC, id DESC"

	var locks []models.ResultLock
	if err := r.db.SelectContext(ctx, &locks, query, args...); err != nil {
		return nil, fmt.Errorf("list result locks: %w", err)
	}
	return locks, nil
}

// Mutate runs fn against the lock of key as one atomic read-modify-write. The row is created
// in draft state when missing and held with FOR UPDATE until the transition is written.
func (r *ResultLockRepository) Mutate(ctx context.Context, key models.LockKey, fn func(*models.ResultLock) error) (*models.ResultLock, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin result lock: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	const ensure = `INSERT INTO result_locks (class_id, session_id, term, exam_type, is_locked, allowed_teacher_ids, created_at, updated_at)
        VALUES ($1, $2, $3, $4, FALSE, '{}', $5, $5)
        ON CONFLICT (class_id, session_id, term, exam_type) DO NOTHING`
	if _, err := tx.ExecContext(ctx, ensure, key.ClassID, key.SessionID, string(key.Term), string(key.ExamType), now); err != nil {
		return nil, fmt.Errorf("ensure result lock: %w", err)
	}

	var lock models.ResultLock
	selectQuery := `SELECT ` + lockColumns + ` FROM result_locks
        WHERE class_id = $1 AND session_id = $2 AND term = $3 AND exam_type = $4 FOR UPDATE`
	if err := tx.GetContext(ctx, &lock, selectQuery, key.ClassID, key.SessionID, string(key.Term), string(key.ExamType)); err != nil {
		return nil, fmt.Errorf("select result lock: %w", err)
	}
	if lock.AllowedTeacherIDs == nil {
		lock.AllowedTeacherIDs = pq.Int64Array{}
	}

	if err := fn(&lock); err != nil {
		return nil, err
	}
	lock.UpdatedAt = now

	const update = `UPDATE result_locks SET is_locked = $1, locked_by = $2, locked_at = $3, allowed_teacher_ids = $4,
        notes = $5, updated_at = $6 WHERE id = $7`
	if _, err := tx.ExecContext(ctx, update, lock.IsLocked, lock.LockedBy, lock.LockedAt, lock.AllowedTeacherIDs,
		lock.Notes, lock.UpdatedAt, lock.ID); err != nil {
		return nil, fmt.Errorf("update result lock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit result lock: %w", err)
	}
	return &lock, nil
}
