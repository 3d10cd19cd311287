package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/grading"
	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

// ScoreStore persists score records.
type ScoreStore interface {
	UpsertChunk(ctx context.Context, records []models.ScoreRecord) error
	List(ctx context.Context, filter models.ScoreFilter) ([]models.ScoreRecord, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.ScoreRecord, error)
}

// LockReader loads lock rows by key. Missing keys are absent from the map.
type LockReader interface {
	FindMany(ctx context.Context, keys []models.LockKey) (map[string]*models.ResultLock, error)
}

// WarmupScheduler receives saved rows so derived caches can be refreshed off the request path.
type WarmupScheduler interface {
	Schedule(records []models.ScoreRecord)
}

// ScoreServiceConfig tunes batching and listing.
type ScoreServiceConfig struct {
	ChunkSize    int
	ListLimit    int
	MaxListLimit int
	ReadTimeout  time.Duration
}

// ScoreService implements listing and batch saving of score records.
type ScoreService struct {
	store     ScoreStore
	locks     LockReader
	warmup    WarmupScheduler
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ScoreServiceConfig
}

// NewScoreService constructs a score service. warmup and metrics may be nil.
func NewScoreService(store ScoreStore, locks LockReader, warmup WarmupScheduler, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ScoreServiceConfig) *ScoreService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 20
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 500
	}
	if cfg.MaxListLimit <= 0 {
		cfg.MaxListLimit = 2000
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	return &ScoreService{store: store, locks: locks, warmup: warmup, metrics: metrics, validator: validate, logger: logger, cfg: cfg}
}

// List returns the score records visible to actor that match query.
func (s *ScoreService) List(ctx context.Context, actor *models.Actor, query models.ScoreQuery) ([]models.ScoreRecord, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError("invalid score filter", fieldErrors(err, nil))
	}

	filter := models.ScoreFilter{
		ClassID:   query.ClassID,
		Subject:   query.Subject,
		SessionID: query.SessionID,
		StudentID: query.StudentID,
		Limit:     s.limit(query.Limit),
	}
	if query.Term != "" {
		filter.Term, _ = models.ParseTerm(query.Term)
	}
	if query.ExamType != "" {
		filter.ExamType, _ = models.ParseExamType(query.ExamType)
	}

	empty, err := s.scope(actor, &filter)
	if err != nil {
		return nil, err
	}
	if empty {
		return []models.ScoreRecord{}, nil
	}

	records, err := s.store.List(ctx, filter)
	if err != nil {
		s.metrics.RecordStoreError("list_scores")
		s.logger.Error("failed to list scores", zap.String("actor_id", actor.UserID), zap.Error(err))
		return nil, storeError(err, "failed to list scores")
	}

	if actor.IsViewer() {
		records, err = s.publishedOnly(ctx, records)
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *ScoreService) limit(requested int) int {
	if requested <= 0 {
		return s.cfg.ListLimit
	}
	if requested > s.cfg.MaxListLimit {
		return s.cfg.MaxListLimit
	}
	return requested
}

// scope narrows filter to what actor may read. It reports true when the scope is empty.
func (s *ScoreService) scope(actor *models.Actor, filter *models.ScoreFilter) (bool, error) {
	switch {
	case actor.IsAdmin:
		return false, nil
	case actor.IsTeacher:
		if filter.ClassID != "" && !actor.CanAccessClass(filter.ClassID) {
			return false, forbidden("class is outside your assignments")
		}
		if filter.Subject != "" && !actor.CanAccessSubject(filter.Subject) {
			return false, forbidden("subject is outside your assignments")
		}
		if len(actor.AllowedClassIDs) == 0 || len(actor.AllowedSubjects) == 0 {
			return true, nil
		}
		filter.ClassIDs = actor.ClassIDs()
		filter.SubjectKeys = actor.SubjectKeys()
		return false, nil
	default:
		if filter.StudentID != "" && !actor.CanSeeStudent(filter.StudentID) {
			return false, forbidden("student is outside your audience")
		}
		if len(actor.StudentIDs) == 0 {
			return true, nil
		}
		filter.StudentIDs = actor.StudentIDList()
		return false, nil
	}
}

func (s *ScoreService) publishedOnly(ctx context.Context, records []models.ScoreRecord) ([]models.ScoreRecord, error) {
	if len(records) == 0 {
		return records, nil
	}
	locks, err := s.locks.FindMany(ctx, lockKeys(records))
	if err != nil {
		s.metrics.RecordStoreError("find_locks")
		return nil, storeError(err, "failed to load result locks")
	}
	visible := make([]models.ScoreRecord, 0, len(records))
	for _, record := range records {
		if locks[record.LockKey().String()].Published() {
			visible = append(visible, record)
		}
	}
	return visible, nil
}

// Save validates, authorizes and persists a batch. Rows are written in sequential chunks; a failed
// chunk leaves earlier chunks committed and yields PARTIAL_BATCH.
func (s *ScoreService) Save(ctx context.Context, actor *models.Actor, inputs []models.ScoreRecordInput) (*models.SaveResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.IsViewer() {
		return nil, forbidden("only staff can save scores")
	}
	if len(inputs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one score row is required")
	}

	records, err := s.buildRecords(actor, inputs)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeWrite(ctx, actor, records); err != nil {
		return nil, err
	}

	saved, chunks, err := s.persist(ctx, records)
	if err != nil {
		s.logger.Error("score batch failed",
			zap.String("actor_id", actor.UserID),
			zap.Int("rows", len(records)),
			zap.Int("saved", saved),
			zap.Error(err))
		return nil, err
	}
	s.metrics.AddRowsSaved(saved)

	result := &models.SaveResult{Saved: saved, Chunks: chunks}
	result.Rows, result.EchoFresh = s.echo(ctx, records)

	if s.warmup != nil {
		s.warmup.Schedule(records)
	}
	s.logger.Info("scores saved", zap.String("actor_id", actor.UserID), zap.Int("rows", saved), zap.Int("chunks", chunks))
	return result, nil
}

func (s *ScoreService) buildRecords(actor *models.Actor, inputs []models.ScoreRecordInput) ([]models.ScoreRecord, error) {
	var details []appErrors.FieldError
	seen := make(map[string]int, len(inputs))
	identities := make(map[string]int, len(inputs))
	records := make([]models.ScoreRecord, 0, len(inputs))

	for i, input := range inputs {
		row := i
		if err := s.validator.Struct(input); err != nil {
			details = append(details, fieldErrors(err, &row)...)
			continue
		}
		if models.SubjectKey(input.Subject) == "" {
			details = append(details, appErrors.FieldError{Row: &row, Field: "subject", Message: "is required"})
			continue
		}
		if input.ID != "" {
			if first, dup := seen[input.ID]; dup {
				details = append(details, appErrors.FieldError{Row: &row, Field: "id", Message: "duplicates row " + strconv.Itoa(first)})
				continue
			}
			seen[input.ID] = i
		}

		term, _ := models.ParseTerm(input.Term)
		examType, _ := models.ParseExamType(input.ExamType)
		updatedBy := actor.UserID
		record := models.ScoreRecord{
			ID:         input.ID,
			StudentID:  input.StudentID,
			Subject:    input.Subject,
			SubjectKey: models.SubjectKey(input.Subject),
			ClassID:    input.ClassID,
			SessionID:  input.SessionID,
			Term:       term,
			ExamType:   examType,
			SchoolID:   input.SchoolID,
			Components: grading.NormalizeComponents(input.Components),
			UpdatedBy:  &updatedBy,
		}
		if first, dup := identities[record.IdentityKey()]; dup {
			details = append(details, appErrors.FieldError{Row: &row, Field: "student_id", Message: "same student and subject as row " + strconv.Itoa(first)})
			continue
		}
		identities[record.IdentityKey()] = i

		grading.ApplyTotals(&record)
		records = append(records, record)
	}

	if len(details) > 0 {
		return nil, validationError("score rows failed validation", details)
	}
	return records, nil
}

// authorizeWrite rejects the whole batch when any row is out of scope or sits in a group the actor cannot
// write. Rows that reuse an existing id are checked against the stored record too, and may not change
// its identity.
func (s *ScoreService) authorizeWrite(ctx context.Context, actor *models.Actor, records []models.ScoreRecord) error {
	existing, err := s.existing(ctx, records)
	if err != nil {
		return err
	}

	if !actor.IsAdmin {
		keys := lockKeys(records)
		for i, record := range records {
			if err := checkScope(actor, i, record); err != nil {
				return err
			}
			if prior, ok := existing[record.ID]; ok {
				if err := checkScope(actor, i, prior); err != nil {
					return err
				}
				keys = append(keys, prior.LockKey())
			}
		}

		locks, err := s.locks.FindMany(ctx, keys)
		if err != nil {
			s.metrics.RecordStoreError("find_locks")
			return storeError(err, "failed to load result locks")
		}
		for i, record := range records {
			targets := []models.ScoreRecord{record}
			if prior, ok := existing[record.ID]; ok {
				targets = append(targets, prior)
			}
			for _, target := range targets {
				key := target.LockKey().String()
				if !actor.CanWrite(locks[key]) {
					return appErrors.WithDetails(appErrors.ErrForbidden, "results for this group are published and locked",
						[]appErrors.FieldError{{Row: intPtr(i), Field: "lock", Message: key}})
				}
			}
		}
	}

	var details []appErrors.FieldError
	for i, record := range records {
		if prior, ok := existing[record.ID]; ok && prior.IdentityKey() != record.IdentityKey() {
			details = append(details, appErrors.FieldError{Row: intPtr(i), Field: "id", Message: "belongs to another student, subject or group"})
		}
	}
	if len(details) > 0 {
		return validationError("score ids cannot be moved to another record", details)
	}
	return nil
}

// existing loads the stored records whose ids the batch reuses, keyed by id.
func (s *ScoreService) existing(ctx context.Context, records []models.ScoreRecord) (map[string]models.ScoreRecord, error) {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		if record.ID != "" {
			ids = append(ids, record.ID)
		}
	}
	out := make(map[string]models.ScoreRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	found, err := s.store.FindByIDs(ctx, ids)
	if err != nil {
		s.metrics.RecordStoreError("find_scores")
		return nil, storeError(err, "failed to load existing scores")
	}
	for _, record := range found {
		out[record.ID] = record
	}
	return out, nil
}

func checkScope(actor *models.Actor, row int, record models.ScoreRecord) error {
	if actor.CanAccessClass(record.ClassID) && actor.CanAccessSubject(record.Subject) {
		return nil
	}
	return appErrors.WithDetails(appErrors.ErrForbidden, "row is outside your class or subject assignments",
		[]appErrors.FieldError{{Row: intPtr(row), Field: "class_id", Message: record.ClassID + " / " + record.Subject}})
}

func (s *ScoreService) persist(ctx context.Context, records []models.ScoreRecord) (int, int, error) {
	saved := 0
	chunks := 0
	for start := 0; start < len(records); start += s.cfg.ChunkSize {
		end := start + s.cfg.ChunkSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		begun := time.Now()
		err := s.store.UpsertChunk(ctx, chunk)
		s.metrics.ObserveChunk(time.Since(begun), err == nil)
		if err != nil {
			s.metrics.RecordStoreError("upsert_scores")
			if chunks == 0 {
				return 0, 0, storeError(err, "failed to save scores")
			}
			return saved, chunks, appErrors.WithCause(
				appErrors.WithDetails(appErrors.ErrPartialBatch,
					fmt.Sprintf("%d of %d rows saved; chunk %d failed", saved, len(records), chunks),
					[]appErrors.FieldError{
						{Field: "committed", Message: strconv.Itoa(saved)},
						{Field: "failed_chunk", Message: strconv.Itoa(chunks)},
					}),
				err, "")
		}
		saved += len(chunk)
		chunks++
	}
	return saved, chunks, nil
}

// echo re-reads the saved rows in input order. A slow or failed read falls back to the in-memory rows.
func (s *ScoreService) echo(ctx context.Context, records []models.ScoreRecord) ([]models.ScoreRecord, bool) {
	readCtx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	ids := make([]string, len(records))
	for i, record := range records {
		ids[i] = record.ID
	}
	fresh, err := s.store.FindByIDs(readCtx, ids)
	if err != nil || len(fresh) != len(records) {
		s.logger.Warn("post-write read degraded to persisted rows", zap.Int("expected", len(records)), zap.Int("found", len(fresh)), zap.Error(err))
		return records, false
	}

	byID := make(map[string]models.ScoreRecord, len(fresh))
	for _, record := range fresh {
		byID[record.ID] = record
	}
	out := make([]models.ScoreRecord, 0, len(records))
	for _, id := range ids {
		record, ok := byID[id]
		if !ok {
			return records, false
		}
		out = append(out, record)
	}
	return out, true
}

func lockKeys(records []models.ScoreRecord) []models.LockKey {
	seen := make(map[string]struct{}, len(records))
	keys := make([]models.LockKey, 0, len(records))
	for _, record := range records {
		key := record.LockKey()
		if _, ok := seen[key.String()]; ok {
			continue
		}
		seen[key.String()] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

func intPtr(v int) *int {
	return &v
}
