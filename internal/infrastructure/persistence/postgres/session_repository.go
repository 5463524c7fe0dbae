package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgeboard/authkit/internal/application/ports"
	"github.com/forgeboard/authkit/internal/domain"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (id, user_id, expires_at, created_at, user_agent, ip)
VALUES ($1, $2, $3, $4, $5, $6)`

	selectSessionSQL = `
SELECT id, user_id, expires_at, created_at, user_agent, ip
FROM sessions WHERE id = $1`

	refreshSessionSQL = `
UPDATE sessions SET expires_at = $2
WHERE id = $1 AND expires_at > NOW()
RETURNING id, user_id, expires_at, created_at, user_agent, ip`

	deleteSessionSQL         = `DELETE FROM sessions WHERE id = $1`
	deleteUserSessionsSQL    = `DELETE FROM sessions WHERE user_id = $1`
	deleteExpiredSessionsSQL = `DELETE FROM sessions WHERE expires_at <= NOW()`
)

// SessionRepository is the pgx-backed ports.SessionRepository. Expiry is
// enforced lazily on read; the race with a concurrent refresh is benign, the
// worst outcome is a spurious not-found on a session valid moments earlier.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	_, err := r.pool.Exec(ctx, insertSessionSQL,
		session.ID.UUID,
		session.UserID.UUID,
		session.ExpiresAt,
		session.CreatedAt,
		session.UserAgent,
		session.IP,
	)
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID domain.SessionID) (*domain.Session, error) {
	session, err := scanSession(r.pool.QueryRow(ctx, selectSessionSQL, sessionID.UUID))
	if err != nil || session == nil {
		return nil, err
	}
	if session.Expired(time.Now()) {
		if _, err := r.pool.Exec(ctx, deleteSessionSQL, sessionID.UUID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return session, nil
}

func (r *SessionRepository) Refresh(ctx context.Context, sessionID domain.SessionID, expiresAt time.Time) (*domain.Session, error) {
	return scanSession(r.pool.QueryRow(ctx, refreshSessionSQL, sessionID.UUID, expiresAt))
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID domain.SessionID) error {
	_, err := r.pool.Exec(ctx, deleteSessionSQL, sessionID.UUID)
	return err
}

func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID domain.UserID) error {
	_, err := r.pool.Exec(ctx, deleteUserSessionsSQL, userID.UUID)
	return err
}

func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, deleteExpiredSessionsSQL)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(
		&s.ID.UUID,
		&s.UserID.UUID,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.UserAgent,
		&s.IP,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Ensure SessionRepository implements ports.SessionRepository.
var _ ports.SessionRepository = (*SessionRepository)(nil)
