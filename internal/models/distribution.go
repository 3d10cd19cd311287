package models

import "time"

// DistributionComponent is one weighted component of a mark distribution.
type DistributionComponent struct {
	ComponentID string  `json:"component_id"`
	Label       string  `json:"label"`
	Weight      float64 `json:"weight"`
	// AverageMaxScore is only set on inferred groups.
	AverageMaxScore *float64 `json:"average_max_score,omitempty"`
}

// Distribution sources.
const (
	DistributionSourceInferred = "inferred"
	DistributionSourceTemplate = "template"
)

// MarkDistributionGroup is the weight breakdown of a (session, term, exam type) group.
type MarkDistributionGroup struct {
	ID          string                  `json:"id"`
	Title       string                  `json:"title"`
	SessionID   string                  `json:"session_id"`
	Term        string                  `json:"term"`
	ExamType    ExamType                `json:"exam_type"`
	Source      string                  `json:"source"`
	RecordCount int                     `json:"record_count"`
	Components  []DistributionComponent `json:"components"`
}

// DistributionQuery drives getMarkDistribution.
type DistributionQuery struct {
	SessionID string `form:"session_id" validate:"required"`
	Term      string `form:"term" validate:"omitempty,term"`
	ClassID   string `form:"class_id"`
	ExamType  string `form:"exam_type" validate:"omitempty,examtype"`
	SchoolID  string `form:"school_id"`
}

// TemplateComponent is one admin authored component weight.
type TemplateComponent struct {
	ComponentID string  `json:"component_id" validate:"required,max=64"`
	Label       string  `json:"label" validate:"max=120"`
	Weight      float64 `json:"weight" validate:"gte=0,lte=100"`
	Order       int     `json:"order"`
}

// MarkDistributionTemplate overrides the inferred distribution of a group.
// A nil SchoolID applies to every school in the session.
type MarkDistributionTemplate struct {
	ID         string              `json:"id"`
	SessionID  string              `json:"session_id"`
	Term       Term                `json:"term"`
	ExamType   ExamType            `json:"exam_type"`
	SchoolID   *string             `json:"school_id,omitempty"`
	Components []TemplateComponent `json:"components"`
	UpdatedBy  *string             `json:"updated_by,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// TemplateRequest is the body of a template upsert.
type TemplateRequest struct {
	SessionID  string              `json:"session_id" validate:"required,max=32"`
	Term       string              `json:"term" validate:"required,term"`
	ExamType   string              `json:"exam_type" validate:"required,examtype"`
	SchoolID   *string             `json:"school_id" validate:"omitempty,max=64"`
	Components []TemplateComponent `json:"components" validate:"required,min=1,max=20,dive"`
}

// TemplateFilter scopes template listings and deletion.
type TemplateFilter struct {
	SessionID string  `form:"session_id" validate:"required"`
	Term      string  `form:"term" validate:"omitempty,term"`
	ExamType  string  `form:"exam_type" validate:"omitempty,examtype"`
	SchoolID  *string `form:"school_id"`
}
