package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tiv91/intimshopbot/models"
	"github.com/tiv91/intimshopbot/pkg/logger"
)

const redisUpdateRetries = 10

// RedisSessionRepository stores each session as one JSON value so several
// bot instances can share carts. Updates use optimistic WATCH/MULTI.
type RedisSessionRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
	logger *logger.Logger
}

// NewRedisSessionRepository connects using a redis:// URL and pings the server.
func NewRedisSessionRepository(ctx context.Context, redisURL string, ttl time.Duration, log *logger.Logger) (*RedisSessionRepository, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSessionRepositoryWithClient(client, ttl, log), nil
}

// NewRedisSessionRepositoryWithClient adopts an existing client. A zero ttl keeps sessions forever.
func NewRedisSessionRepositoryWithClient(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisSessionRepository {
	return &RedisSessionRepository{
		client: client,
		prefix: "storebot:session:",
		ttl:    ttl,
		now:    time.Now,
		logger: log.WithComponent("session_repository_redis"),
	}
}

func (r *RedisSessionRepository) key(userID int64) string {
	return fmt.Sprintf("%s%d", r.prefix, userID)
}

func (r *RedisSessionRepository) Get(ctx context.Context, userID int64) (*models.Session, error) {
	return r.load(ctx, r.client, userID)
}

func (r *RedisSessionRepository) load(ctx context.Context, c redis.Cmdable, userID int64) (*models.Session, error) {
	data, err := c.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.NewSession(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session := models.NewSession(userID)
	if err := json.Unmarshal(data, session); err != nil {
		r.logger.Warn("Discarding unreadable session", "user_id", userID, "error", err)
		return models.NewSession(userID), nil
	}
	return session, nil
}

func (r *RedisSessionRepository) Update(ctx context.Context, userID int64, fn func(*models.Session) error) (*models.Session, error) {
	key := r.key(userID)
	var result *models.Session

	txf := func(tx *redis.Tx) error {
		session, err := r.load(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := fn(session); err != nil {
			return err
		}
		session.UserID = userID
		session.UpdatedAt = r.now()

		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		if err == nil {
			result = session
		}
		return err
	}

	for attempt := 0; attempt < redisUpdateRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			r.logger.Debug("Session changed concurrently, retrying", "user_id", userID, "attempt", attempt+1)
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("session update for user %d gave up after %d conflicts", userID, redisUpdateRetries)
}

// Ping reports whether the server answers.
func (r *RedisSessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisSessionRepository) Close() error {
	return r.client.Close()
}
