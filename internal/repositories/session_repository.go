package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/tiv91/intimshopbot/models"
	"github.com/tiv91/intimshopbot/pkg/logger"
)

// SessionRepositoryInterface stores one session (state plus cart) per user.
//
// Update is an atomic read-modify-write for a single user: fn sees the
// current session (a fresh browsing session for unknown users) and its
// changes are persisted only if it returns nil.
type SessionRepositoryInterface interface {
	Get(ctx context.Context, userID int64) (*models.Session, error)
	Update(ctx context.Context, userID int64, fn func(*models.Session) error) (*models.Session, error)
}

// MemorySessionRepository keeps sessions in process memory. Nothing survives
// a restart and entries are never evicted.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[int64]*models.Session
	now      func() time.Time
	logger   *logger.Logger
}

func NewMemorySessionRepository(log *logger.Logger) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[int64]*models.Session),
		now:      time.Now,
		logger:   log.WithComponent("session_repository"),
	}
}

func (r *MemorySessionRepository) Get(_ context.Context, userID int64) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[userID]; ok {
		return s.Clone(), nil
	}
	return models.NewSession(userID), nil
}

func (r *MemorySessionRepository) Update(_ context.Context, userID int64, fn func(*models.Session) error) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := models.NewSession(userID)
	if existing, ok := r.sessions[userID]; ok {
		session = existing.Clone()
	}

	if err := fn(session); err != nil {
		return nil, err
	}

	session.UserID = userID
	session.UpdatedAt = r.now()
	r.sessions[userID] = session
	return session.Clone(), nil
}
