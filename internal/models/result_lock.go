package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// LockKey identifies a result group: one class's results for a session, term and exam type.
type LockKey struct {
	ClassID   string   `json:"class_id" db:"class_id"`
	SessionID string   `json:"session_id" db:"session_id"`
	Term      Term     `json:"term" db:"term"`
	ExamType  ExamType `json:"exam_type" db:"exam_type"`
}

func (k LockKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.ClassID, k.SessionID, k.Term, k.ExamType)
}

// Valid reports whether every part of the key is set.
func (k LockKey) Valid() bool {
	return k.ClassID != "" && k.SessionID != "" && k.Term != "" && k.ExamType != ""
}

// ResultLock is the publish gate of a result group. A missing row behaves as draft.
type ResultLock struct {
	ID int64 `db:"id" json:"id"`
	LockKey
	IsLocked          bool          `db:"is_locked" json:"is_locked"`
	LockedBy          *string       `db:"locked_by" json:"locked_by,omitempty"`
	LockedAt          *time.Time    `db:"locked_at" json:"locked_at,omitempty"`
	AllowedTeacherIDs pq.Int64Array `db:"allowed_teacher_ids" json:"allowed_teacher_ids"`
	Notes             *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// State returns "published" or "draft".
func (l *ResultLock) State() string {
	if l.Published() {
		return "published"
	}
	return "draft"
}

// Published is nil-safe.
func (l *ResultLock) Published() bool {
	return l != nil && l.IsLocked
}

// HasOverride reports whether teacherID may write despite the lock.
func (l *ResultLock) HasOverride(teacherID int64) bool {
	if l == nil {
		return false
	}
	for _, id := range l.AllowedTeacherIDs {
		if id == teacherID {
			return true
		}
	}
	return false
}

// LockAction enumerates lock transitions.
type LockAction string

const (
	LockActionLock           LockAction = "lock"
	LockActionUnlock         LockAction = "unlock"
	LockActionGrantOverride  LockAction = "grantOverride"
	LockActionRevokeOverride LockAction = "revokeOverride"
)

// ErrOverrideTeacherRequired is returned when a grant or revoke names no teacher.
var ErrOverrideTeacherRequired = errors.New("teacher id is required for override actions")

// ParseLockAction accepts lock, unlock, grant-override, grant_override, grantOverride and the short grant/revoke forms.
func ParseLockAction(raw string) (LockAction, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.NewReplacer("-", "", "_", "").Replace(value)
	switch value {
	case "lock", "publish":
		return LockActionLock, true
	case "unlock", "unpublish":
		return LockActionUnlock, true
	case "grantoverride", "grant":
		return LockActionGrantOverride, true
	case "revokeoverride", "revoke":
		return LockActionRevokeOverride, true
	default:
		return "", false
	}
}

// LockMutation is one requested transition.
type LockMutation struct {
	Action    LockAction
	TeacherID int64
	ActorID   string
	Notes     *string
	At        time.Time
}

// Apply performs the transition in place. Every transition is idempotent.
func (l *ResultLock) Apply(m LockMutation) error {
	switch m.Action {
	case LockActionLock:
		if !l.IsLocked {
			at := m.At
			actor := m.ActorID
			l.IsLocked = true
			l.LockedAt = &at
			l.LockedBy = &actor
		}
	case LockActionUnlock:
		l.IsLocked = false
		l.LockedAt = nil
		l.LockedBy = nil
		l.AllowedTeacherIDs = pq.Int64Array{}
	case LockActionGrantOverride:
		if m.TeacherID <= 0 {
			return ErrOverrideTeacherRequired
		}
		if !l.HasOverride(m.TeacherID) {
			l.AllowedTeacherIDs = append(l.AllowedTeacherIDs, m.TeacherID)
		}
	case LockActionRevokeOverride:
		if m.TeacherID <= 0 {
			return ErrOverrideTeacherRequired
		}
		kept := pq.Int64Array{}
		for _, id := range l.AllowedTeacherIDs {
			if id != m.TeacherID {
				kept = append(kept, id)
			}
		}
		l.AllowedTeacherIDs = kept
	default:
		return fmt.Errorf("unknown lock action %q", m.Action)
	}
	if m.Notes != nil {
		l.Notes = m.Notes
	}
	return nil
}

// ResultLockFilter scopes lock listings.
type ResultLockFilter struct {
	ClassID   string
	SessionID string
	Term      Term
	ExamType  ExamType
	ClassIDs  []string
}

// ResultLockQuery is the caller facing filter set of listLocks.
type ResultLockQuery struct {
	ClassID   string `form:"class_id"`
	SessionID string `form:"session_id"`
	Term      string `form:"term" validate:"omitempty,term"`
	ExamType  string `form:"exam_type" validate:"omitempty,examtype"`
}

// LockMutationRequest is the body of a lock transition request.
type LockMutationRequest struct {
	ClassID   string  `json:"class_id" validate:"required"`
	SessionID string  `json:"session_id" validate:"required"`
	Term      string  `json:"term" validate:"required,term"`
	ExamType  string  `json:"exam_type" validate:"required,examtype"`
	TeacherID int64   `json:"teacher_id" validate:"omitempty,min=1"`
	Notes     *string `json:"notes" validate:"omitempty,max=500"`
}

// LockSummary is the outward view of a lock.
type LockSummary struct {
	LockKey
	State             string     `json:"state"`
	IsLocked          bool       `json:"is_locked"`
	LockedBy          *string    `json:"locked_by,omitempty"`
	LockedAt          *time.Time `json:"locked_at,omitempty"`
	AllowedTeacherIDs []int64    `json:"allowed_teacher_ids"`
	Notes             *string    `json:"notes,omitempty"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// Summary converts the lock to its outward view.
func (l *ResultLock) Summary() LockSummary {
	ids := make([]int64, len(l.AllowedTeacherIDs))
	copy(ids, l.AllowedTeacherIDs)
	summary := LockSummary{
		LockKey:           l.LockKey,
		State:             l.State(),
		IsLocked:          l.IsLocked,
		LockedBy:          l.LockedBy,
		LockedAt:          l.LockedAt,
		AllowedTeacherIDs: ids,
		Notes:             l.Notes,
	}
	if !l.UpdatedAt.IsZero() {
		updated := l.UpdatedAt
		summary.UpdatedAt = &updated
	}
	return summary
}
