package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/grading"
	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

const weightTolerance = 0.001

// ScoreLister reads score records for distribution inference.
type ScoreLister interface {
	List(ctx context.Context, filter models.ScoreFilter) ([]models.ScoreRecord, error)
}

// TemplateStore persists admin authored distribution templates.
type TemplateStore interface {
	List(ctx context.Context, sessionID string, term models.Term, examType models.ExamType, schoolID *string) ([]models.MarkDistributionTemplate, error)
	Upsert(ctx context.Context, template *models.MarkDistributionTemplate) error
	Delete(ctx context.Context, sessionID string, term models.Term, examType models.ExamType, schoolID *string) (int64, error)
}

// MarkDistributionService infers component weights from stored scores and overlays admin templates.
type MarkDistributionService struct {
	scores    ScoreLister
	templates TemplateStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	ttl       time.Duration
}

// NewMarkDistributionService constructs the service. cache may be nil.
func NewMarkDistributionService(scores ScoreLister, templates TemplateStore, cacheSvc *CacheService, validate *validator.Validate, logger *zap.Logger, ttl time.Duration) *MarkDistributionService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkDistributionService{scores: scores, templates: templates, cache: cacheSvc, validator: validate, logger: logger, ttl: ttl}
}

// Get returns the distribution groups of a session, optionally narrowed by term, class and exam type.
func (s *MarkDistributionService) Get(ctx context.Context, query models.DistributionQuery) ([]models.MarkDistributionGroup, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError("invalid distribution query", fieldErrors(err, nil))
	}
	term, examType := parseGroup(query.Term, query.ExamType)

	key := distributionKey(query.SessionID, term, query.ClassID, examType, query.SchoolID)
	var cached []models.MarkDistributionGroup
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	groups, err := s.compute(ctx, query.SessionID, term, query.ClassID, examType, optional(query.SchoolID))
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, groups, s.ttl)
	return groups, nil
}

// Warm drops the cached distributions of sessionID and recomputes the session-wide view and the
// view of the given group.
func (s *MarkDistributionService) Warm(ctx context.Context, sessionID string, term models.Term, examType models.ExamType) error {
	s.invalidate(ctx, sessionID)

	views := []struct {
		term     models.Term
		examType models.ExamType
	}{{}, {term: term, examType: examType}}
	for _, view := range views {
		groups, err := s.compute(ctx, sessionID, view.term, "", view.examType, nil)
		if err != nil {
			return err
		}
		s.cache.Set(ctx, distributionKey(sessionID, view.term, "", view.examType, ""), groups, s.ttl)
	}
	return nil
}

func (s *MarkDistributionService) compute(ctx context.Context, sessionID string, term models.Term, classID string, examType models.ExamType, schoolID *string) ([]models.MarkDistributionGroup, error) {
	records, err := s.scores.List(ctx, models.ScoreFilter{SessionID: sessionID, Term: term, ClassID: classID, ExamType: examType})
	if err != nil {
		s.logger.Error("failed to load scores for distribution", zap.String("session_id", sessionID), zap.Error(err))
		return nil, storeError(err, "failed to load scores")
	}
	groups := grading.InferDistribution(records, string(term))

	templates, err := s.templates.List(ctx, sessionID, term, examType, schoolID)
	if err != nil {
		s.logger.Error("failed to load distribution templates", zap.String("session_id", sessionID), zap.Error(err))
		return nil, storeError(err, "failed to load distribution templates")
	}
	return overlayTemplates(groups, templates), nil
}

// overlayTemplates replaces inferred groups by their template. A school specific template wins over
// the session-wide one of the same group.
func overlayTemplates(groups []models.MarkDistributionGroup, templates []models.MarkDistributionTemplate) []models.MarkDistributionGroup {
	if len(templates) == 0 {
		return groups
	}

	chosen := map[string]models.MarkDistributionTemplate{}
	for _, t := range templates {
		id := grading.GroupID(t.SessionID, string(t.Term), t.ExamType)
		if current, ok := chosen[id]; ok && current.SchoolID != nil && t.SchoolID == nil {
			continue
		}
		chosen[id] = t
	}

	out := make([]models.MarkDistributionGroup, 0, len(groups)+len(chosen))
	for _, group := range groups {
		if t, ok := chosen[group.ID]; ok {
			overlaid := grading.FromTemplate(t)
			overlaid.RecordCount = group.RecordCount
			out = append(out, overlaid)
			delete(chosen, group.ID)
			continue
		}
		out = append(out, group)
	}
	for _, t := range chosen {
		out = append(out, grading.FromTemplate(t))
	}
	grading.SortGroups(out)
	return out
}

// ListTemplates returns the stored templates of a session. Staff only.
func (s *MarkDistributionService) ListTemplates(ctx context.Context, actor *models.Actor, filter models.TemplateFilter) ([]models.MarkDistributionTemplate, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return nil, forbidden("only staff can view distribution templates")
	}
	if err := s.validator.Struct(filter); err != nil {
		return nil, validationError("invalid template filter", fieldErrors(err, nil))
	}
	term, examType := parseGroup(filter.Term, filter.ExamType)
	templates, err := s.templates.List(ctx, filter.SessionID, term, examType, filter.SchoolID)
	if err != nil {
		return nil, storeError(err, "failed to list distribution templates")
	}
	return templates, nil
}

// UpsertTemplate stores the template of a group. Admin only; weights must sum to 100.
func (s *MarkDistributionService) UpsertTemplate(ctx context.Context, actor *models.Actor, req models.TemplateRequest) (*models.MarkDistributionTemplate, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsAdmin {
		return nil, forbidden("only administrators can edit distribution templates")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError("invalid distribution template", fieldErrors(err, nil))
	}
	if err := checkTemplateComponents(req.Components); err != nil {
		return nil, err
	}

	term, examType := parseGroup(req.Term, req.ExamType)
	updatedBy := actor.UserID
	template := &models.MarkDistributionTemplate{
		SessionID:  req.SessionID,
		Term:       term,
		ExamType:   examType,
		SchoolID:   req.SchoolID,
		Components: req.Components,
		UpdatedBy:  &updatedBy,
	}
	if err := s.templates.Upsert(ctx, template); err != nil {
		s.logger.Error("failed to save distribution template", zap.String("session_id", req.SessionID), zap.Error(err))
		return nil, storeError(err, "failed to save distribution template")
	}
	s.invalidate(ctx, req.SessionID)
	s.logger.Info("distribution template saved",
		zap.String("actor_id", actor.UserID),
		zap.String("group", grading.GroupID(req.SessionID, string(term), examType)))
	return template, nil
}

// DeleteTemplate removes the template of a group. Admin only.
func (s *MarkDistributionService) DeleteTemplate(ctx context.Context, actor *models.Actor, filter models.TemplateFilter) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.IsAdmin {
		return forbidden("only administrators can delete distribution templates")
	}
	if err := s.validator.Struct(filter); err != nil {
		return validationError("invalid template filter", fieldErrors(err, nil))
	}
	term, examType := parseGroup(filter.Term, filter.ExamType)
	if term == "" || examType == "" {
		return validationError("term and exam_type are required", []appErrors.FieldError{
			{Field: "term", Message: "is required"},
			{Field: "exam_type", Message: "is required"},
		})
	}

	deleted, err := s.templates.Delete(ctx, filter.SessionID, term, examType, filter.SchoolID)
	if err != nil {
		return storeError(err, "failed to delete distribution template")
	}
	if deleted == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "distribution template not found")
	}
	s.invalidate(ctx, filter.SessionID)
	return nil
}

func (s *MarkDistributionService) invalidate(ctx context.Context, sessionID string) {
	s.cache.Invalidate(ctx, cache.Key("distribution", sessionID)+":*")
}

func checkTemplateComponents(components []models.TemplateComponent) error {
	var details []appErrors.FieldError
	seen := map[string]struct{}{}
	var sum float64
	for i, c := range components {
		if _, dup := seen[c.ComponentID]; dup {
			details = append(details, appErrors.FieldError{Row: intPtr(i), Field: "component_id", Message: "must be unique"})
		}
		seen[c.ComponentID] = struct{}{}
		sum += c.Weight
	}
	if math.Abs(sum-100) > weightTolerance {
		details = append(details, appErrors.FieldError{Field: "weight", Message: fmt.Sprintf("weights sum to %.3f, expected 100", sum)})
	}
	if len(details) > 0 {
		return appErrors.WithDetails(appErrors.ErrInvalidWeights, "", details)
	}
	return nil
}

func distributionKey(sessionID string, term models.Term, classID string, examType models.ExamType, schoolID string) string {
	return cache.Key("distribution", sessionID, string(term), classID, string(examType), schoolID)
}

// parseGroup parses already validated term and exam type values; empty stays empty.
func parseGroup(rawTerm, rawExam string) (models.Term, models.ExamType) {
	term, _ := models.ParseTerm(rawTerm)
	examType, _ := models.ParseExamType(rawExam)
	return term, examType
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
