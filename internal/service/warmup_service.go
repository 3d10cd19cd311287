package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/pkg/jobs"
)

const warmupJobType = "distribution_warmup"

// DistributionWarmer recomputes and caches the distribution of one group.
type DistributionWarmer interface {
	Warm(ctx context.Context, sessionID string, term models.Term, examType models.ExamType) error
}

// WarmupConfig bounds post-write warm-ups.
type WarmupConfig struct {
	Enabled bool
	MaxJobs int
	Timeout time.Duration
	Workers int
}

type warmupTarget struct {
	SessionID string
	Term      models.Term
	ExamType  models.ExamType
}

// WarmupService refreshes distribution caches after saves without blocking the response.
// A full queue drops the job.
type WarmupService struct {
	warmer  DistributionWarmer
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
	cfg     WarmupConfig
}

// NewWarmupService builds the warm-up queue. Call Start before scheduling.
func NewWarmupService(warmer DistributionWarmer, metrics *MetricsService, logger *zap.Logger, cfg WarmupConfig) *WarmupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	s := &WarmupService{warmer: warmer, metrics: metrics, logger: logger, cfg: cfg}
	s.queue = jobs.NewQueue("results-warmup", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.MaxJobs * 8,
		JobTimeout: cfg.Timeout,
		Logger:     logger,
	})
	return s
}

// Start launches the workers.
func (s *WarmupService) Start(ctx context.Context) {
	if s == nil || !s.cfg.Enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *WarmupService) Stop() {
	if s == nil {
		return
	}
	s.queue.Stop()
}

// Schedule enqueues at most MaxJobs distinct (session, term, exam type) warm-ups for records.
func (s *WarmupService) Schedule(records []models.ScoreRecord) {
	if s == nil || !s.cfg.Enabled || s.warmer == nil {
		return
	}
	for _, target := range warmupTargets(records, s.cfg.MaxJobs) {
		err := s.queue.TryEnqueue(jobs.Job{Type: warmupJobType, Payload: target})
		switch {
		case err == nil:
			s.metrics.RecordWarmup("scheduled")
		case errors.Is(err, jobs.ErrQueueFull):
			s.metrics.RecordWarmup("dropped")
			s.logger.Warn("warm-up queue full, job dropped", zap.String("session_id", target.SessionID), zap.String("term", string(target.Term)))
		default:
			s.metrics.RecordWarmup("dropped")
			s.logger.Warn("warm-up not scheduled", zap.Error(err))
		}
	}
}

func (s *WarmupService) handle(ctx context.Context, job jobs.Job) error {
	target, ok := job.Payload.(warmupTarget)
	if !ok {
		return fmt.Errorf("unexpected warm-up payload %T", job.Payload)
	}
	if err := s.warmer.Warm(ctx, target.SessionID, target.Term, target.ExamType); err != nil {
		s.metrics.RecordWarmup("failed")
		return err
	}
	s.metrics.RecordWarmup("done")
	return nil
}

func warmupTargets(records []models.ScoreRecord, max int) []warmupTarget {
	seen := make(map[warmupTarget]struct{})
	targets := make([]warmupTarget, 0, max)
	for _, record := range records {
		target := warmupTarget{SessionID: record.SessionID, Term: record.Term, ExamType: record.ExamType}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		targets = append(targets, target)
		if len(targets) == max {
			break
		}
	}
	return targets
}
