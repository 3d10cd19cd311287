package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

// Session list sources.
const (
	SessionSourceStore = "store"
	SessionSourceCache = "cache"
	SessionSourceSeed  = "seed"
)

const sessionCacheTTL = 24 * time.Hour

// SessionStore lists academic sessions.
type SessionStore interface {
	ListSessions(ctx context.Context) ([]models.AcademicSession, error)
}

// SessionService lists academic sessions and degrades to cached or configured sessions when the store is down.
type SessionService struct {
	store  SessionStore
	cache  *CacheService
	seed   []string
	logger *zap.Logger
}

// NewSessionService constructs the service. seed holds configured fallback session ids.
func NewSessionService(store SessionStore, cacheSvc *CacheService, seed []string, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{store: store, cache: cacheSvc, seed: seed, logger: logger}
}

// List returns the sessions and where they came from.
func (s *SessionService) List(ctx context.Context) ([]models.AcademicSession, string, error) {
	key := cache.Key("sessions")
	sessions, err := s.store.ListSessions(ctx)
	if err == nil {
		s.cache.Set(ctx, key, sessions, sessionCacheTTL)
		return sessions, SessionSourceStore, nil
	}

	var cached []models.AcademicSession
	if s.cache.Get(ctx, key, &cached) {
		s.logger.Warn("session store unavailable, serving cached sessions", zap.Error(err))
		return cached, SessionSourceCache, nil
	}
	if len(s.seed) > 0 {
		s.logger.Warn("session store unavailable, serving configured sessions", zap.Error(err))
		seeded := make([]models.AcademicSession, len(s.seed))
		for i, id := range s.seed {
			seeded[i] = models.AcademicSession{ID: id, Name: id, IsCurrent: i == len(s.seed)-1}
		}
		return seeded, SessionSourceSeed, nil
	}

	s.logger.Error("failed to list sessions", zap.Error(err))
	return nil, "", appErrors.WithCause(appErrors.ErrStoreUnavailable, err, "")
}
