package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

// LockStore persists result locks with atomic read-modify-write.
type LockStore interface {
	LockReader
	List(ctx context.Context, filter models.ResultLockFilter) ([]models.ResultLock, error)
	Mutate(ctx context.Context, key models.LockKey, fn func(*models.ResultLock) error) (*models.ResultLock, error)
}

// ResultLockService lists and transitions the publish locks of result groups.
type ResultLockService struct {
	store     LockStore
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewResultLockService constructs the lock service.
func NewResultLockService(store LockStore, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ResultLockService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultLockService{store: store, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// List returns the locks visible to staff. Teachers only see their own classes.
func (s *ResultLockService) List(ctx context.Context, actor *models.Actor, query models.ResultLockQuery) ([]models.LockSummary, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return nil, forbidden("only staff can view result locks")
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError("invalid lock filter", fieldErrors(err, nil))
	}

	term, examType := parseGroup(query.Term, query.ExamType)
	filter := models.ResultLockFilter{ClassID: query.ClassID, SessionID: query.SessionID, Term: term, ExamType: examType}
	if !actor.IsAdmin {
		if query.ClassID != "" && !actor.CanAccessClass(query.ClassID) {
			return nil, forbidden("class is outside your assignments")
		}
		if len(actor.AllowedClassIDs) == 0 {
			return []models.LockSummary{}, nil
		}
		filter.ClassIDs = actor.ClassIDs()
	}

	locks, err := s.store.List(ctx, filter)
	if err != nil {
		s.metrics.RecordStoreError("list_locks")
		return nil, storeError(err, "failed to list result locks")
	}
	out := make([]models.LockSummary, len(locks))
	for i := range locks {
		out[i] = locks[i].Summary()
	}
	return out, nil
}

// Mutate applies action to the lock of the requested group. Admin only.
func (s *ResultLockService) Mutate(ctx context.Context, actor *models.Actor, rawAction string, req models.LockMutationRequest) (*models.LockSummary, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsAdmin {
		return nil, forbidden("only administrators can change result locks")
	}
	action, ok := models.ParseLockAction(rawAction)
	if !ok {
		return nil, validationError("unknown lock action", []appErrors.FieldError{{Field: "action", Message: "must be lock, unlock, grantOverride or revokeOverride"}})
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError("invalid lock request", fieldErrors(err, nil))
	}
	if (action == models.LockActionGrantOverride || action == models.LockActionRevokeOverride) && req.TeacherID <= 0 {
		return nil, validationError(models.ErrOverrideTeacherRequired.Error(), []appErrors.FieldError{{Field: "teacher_id", Message: "is required"}})
	}

	term, examType := parseGroup(req.Term, req.ExamType)
	key := models.LockKey{ClassID: req.ClassID, SessionID: req.SessionID, Term: term, ExamType: examType}
	mutation := models.LockMutation{
		Action:    action,
		TeacherID: req.TeacherID,
		ActorID:   actor.UserID,
		Notes:     req.Notes,
		At:        s.now().UTC(),
	}

	lock, err := s.store.Mutate(ctx, key, func(l *models.ResultLock) error {
		return l.Apply(mutation)
	})
	if err != nil {
		if errors.Is(err, models.ErrOverrideTeacherRequired) {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		s.metrics.RecordStoreError("mutate_lock")
		s.logger.Error("lock transition failed", zap.String("actor_id", actor.UserID), zap.String("key", key.String()), zap.String("action", string(action)), zap.Error(err))
		return nil, storeError(err, "failed to update result lock")
	}

	s.metrics.RecordLockTransition(string(action))
	s.logger.Info("result lock updated",
		zap.String("actor_id", actor.UserID),
		zap.String("key", key.String()),
		zap.String("action", string(action)),
		zap.String("state", lock.State()))
	summary := lock.Summary()
	return &summary, nil
}
