package models

import (
	"strings"
	"time"
)

// ScoreComponent is one assessment component of a score record.
type ScoreComponent struct {
	ComponentID string   `json:"component_id"`
	Label       string   `json:"label"`
	Score       float64  `json:"score"`
	MaxScore    *float64 `json:"max_score,omitempty"`
}

// ScoreRecord is one student's result for one subject in a (session, term, exam type) group.
type ScoreRecord struct {
	ID         string           `json:"id"`
	StudentID  string           `json:"student_id"`
	Subject    string           `json:"subject"`
	SubjectKey string           `json:"subject_key"`
	ClassID    string           `json:"class_id"`
	SessionID  string           `json:"session_id"`
	Term       Term             `json:"term"`
	ExamType   ExamType         `json:"exam_type"`
	SchoolID   *string          `json:"school_id,omitempty"`
	Components []ScoreComponent `json:"components"`
	TotalScore float64          `json:"total_score"`
	MaxScore   *float64         `json:"max_score,omitempty"`
	Percentage *float64         `json:"percentage,omitempty"`
	UpdatedBy  *string          `json:"updated_by,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// LockKey derives the lock identity of the group the record belongs to.
func (r ScoreRecord) LockKey() LockKey {
	return LockKey{ClassID: r.ClassID, SessionID: r.SessionID, Term: r.Term, ExamType: r.ExamType}
}

// IdentityKey is the natural identity of a record: one row per student and subject within a group.
func (r ScoreRecord) IdentityKey() string {
	return strings.Join([]string{r.StudentID, SubjectKey(r.Subject), r.ClassID, r.SessionID, string(r.Term), string(r.ExamType)}, "|")
}

// ScoreRecordInput is the inbound shape of a row in a batch save.
type ScoreRecordInput struct {
	ID         string                   `json:"id" validate:"omitempty,max=64"`
	StudentID  string                   `json:"student_id" validate:"required,max=64"`
	Subject    string                   `json:"subject" validate:"required,max=120"`
	ClassID    string                   `json:"class_id" validate:"required,max=64"`
	SessionID  string                   `json:"session_id" validate:"required,max=32"`
	Term       string                   `json:"term" validate:"required,term"`
	ExamType   string                   `json:"exam_type" validate:"required,examtype"`
	SchoolID   *string                  `json:"school_id" validate:"omitempty,max=64"`
	Components []map[string]interface{} `json:"components" validate:"max=20"`
}

// ScoreFilter captures filtering criteria for listing score records.
type ScoreFilter struct {
	ClassID   string
	Subject   string
	ExamType  ExamType
	Term      Term
	SessionID string
	StudentID string
	Limit     int

	// Scope restrictions applied by the service; empty means unrestricted.
	ClassIDs    []string
	SubjectKeys []string
	StudentIDs  []string
}

// ScoreQuery is the caller facing filter set of listScores.
type ScoreQuery struct {
	ClassID   string `form:"class_id"`
	Subject   string `form:"subject"`
	ExamType  string `form:"exam_type" validate:"omitempty,examtype"`
	Term      string `form:"term" validate:"omitempty,term"`
	SessionID string `form:"session_id"`
	StudentID string `form:"student_id"`
	Limit     int    `form:"limit" validate:"omitempty,min=1"`
}

// SaveResult reports a batch save.
type SaveResult struct {
	Rows      []ScoreRecord `json:"rows"`
	Saved     int           `json:"saved"`
	Chunks    int           `json:"chunks"`
	EchoFresh bool          `json:"echo_fresh"`
}

// SubjectKey is the normalized identity of a subject name: trimmed, single spaced, lower case.
func SubjectKey(subject string) string {
	return strings.ToLower(strings.Join(strings.Fields(subject), " "))
}

// ScoreBatchRequest is the body of a batch save.
type ScoreBatchRequest struct {
	Rows []ScoreRecordInput `json:"rows"`
}
