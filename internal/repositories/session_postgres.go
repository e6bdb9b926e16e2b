package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tiv91/intimshopbot/models"
	"github.com/tiv91/intimshopbot/pkg/database"
	"github.com/tiv91/intimshopbot/pkg/logger"
)

const sessionSchema = `
CREATE TABLE IF NOT EXISTS bot_sessions (
    user_id    BIGINT PRIMARY KEY,
    data       JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`

// PostgresSessionRepository keeps one row per user and serializes updates
// with SELECT ... FOR UPDATE.
type PostgresSessionRepository struct {
	db     *database.DB
	now    func() time.Time
	logger *logger.Logger
}

func NewPostgresSessionRepository(db *database.DB, log *logger.Logger) *PostgresSessionRepository {
	return &PostgresSessionRepository{
		db:     db,
		now:    time.Now,
		logger: log.WithComponent("session_repository_postgres"),
	}
}

// EnsureSchema creates the sessions table when missing.
func (r *PostgresSessionRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sessionSchema); err != nil {
		r.logger.Error("Failed to create sessions table", "error", err)
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepository) Get(ctx context.Context, userID int64) (*models.Session, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM bot_sessions WHERE user_id = $1`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewSession(userID), nil
	}
	if err != nil {
		r.logger.Error("Failed to load session", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return r.decode(userID, data), nil
}

func (r *PostgresSessionRepository) Update(ctx context.Context, userID int64, fn func(*models.Session) error) (*models.Session, error) {
	var result *models.Session

	err := r.db.ExecuteInTransaction(ctx, func(tx *sql.Tx) error {
		initial, err := json.Marshal(models.NewSession(userID))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bot_sessions (user_id, data, updated_at) VALUES ($1, $2, $3) ON CONFLICT (user_id) DO NOTHING`,
			userID, initial, r.now()); err != nil {
			return fmt.Errorf("failed to seed session: %w", err)
		}

		var data []byte
		if err := tx.QueryRowContext(ctx,
			`SELECT data FROM bot_sessions WHERE user_id = $1 FOR UPDATE`, userID).Scan(&data); err != nil {
			return fmt.Errorf("failed to lock session: %w", err)
		}

		session := r.decode(userID, data)
		if err := fn(session); err != nil {
			return err
		}
		session.UserID = userID
		session.UpdatedAt = r.now()

		encoded, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE bot_sessions SET data = $2, updated_at = $3 WHERE user_id = $1`,
			userID, encoded, session.UpdatedAt); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		result = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresSessionRepository) decode(userID int64, data []byte) *models.Session {
	session := models.NewSession(userID)
	if err := json.Unmarshal(data, session); err != nil {
		r.logger.Warn("Discarding unreadable session", "user_id", userID, "error", err)
		return models.NewSession(userID)
	}
	return session
}
