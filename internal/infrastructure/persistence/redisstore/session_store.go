// Package redisstore provides a Redis-backed session store. Redis TTLs give
// native expiry; the zset index keeps sweep counts and per-user deletion
// possible.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forgeboard/authkit/internal/application/ports"
	"github.com/forgeboard/authkit/internal/domain"
)

const (
	sessionKeyPrefix = "authkit:session:"
	userSessionsKey  = "authkit:user_sessions:"
	expiryIndexKey   = "authkit:sessions_by_expiry"
)

type sessionRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UserAgent string    `json:"user_agent,omitempty"`
	IP        string    `json:"ip,omitempty"`
}

// SessionStore implements ports.SessionRepository on Redis.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	payload, err := json.Marshal(sessionRecord{
		ID:        session.ID.String(),
		UserID:    session.UserID.String(),
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UserAgent: session.UserAgent,
		IP:        session.IP,
	})
	if err != nil {
		return err
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Millisecond
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.ID.String(), payload, ttl)
	pipe.SAdd(ctx, userSessionsKey+session.UserID.String(), session.ID.String())
	pipe.ZAdd(ctx, expiryIndexKey, redis.Z{Score: float64(session.ExpiresAt.Unix()), Member: session.ID.String()})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *SessionStore) GetByID(ctx context.Context, sessionID domain.SessionID) (*domain.Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil || session == nil {
		return nil, err
	}
	if session.Expired(time.Now()) {
		return nil, s.remove(ctx, session)
	}
	return session, nil
}

func (s *SessionStore) Refresh(ctx context.Context, sessionID domain.SessionID, expiresAt time.Time) (*domain.Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil || session == nil {
		return nil, err
	}
	if session.Expired(time.Now()) {
		return nil, s.remove(ctx, session)
	}
	session.ExpiresAt = expiresAt
	if err := s.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID domain.SessionID) error {
	session, err := s.load(ctx, sessionID)
	if err != nil || session == nil {
		return err
	}
	return s.remove(ctx, session)
}

func (s *SessionStore) DeleteAllForUser(ctx context.Context, userID domain.UserID) error {
	ids, err := s.client.SMembers(ctx, userSessionsKey+userID.String()).Result()
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, sessionKeyPrefix+id)
		pipe.ZRem(ctx, expiryIndexKey, id)
	}
	pipe.Del(ctx, userSessionsKey+userID.String())
	_, err = pipe.Exec(ctx)
	return err
}

// DeleteExpired sweeps the expiry index. Redis TTLs already drop the session
// payloads; this reclaims the index entries and reports the count.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now().Unix()
	ids, err := s.client.ZRangeByScore(ctx, expiryIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: formatUnix(now),
	}).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	pipe := s.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, sessionKeyPrefix+id)
		pipe.ZRem(ctx, expiryIndexKey, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func (s *SessionStore) load(ctx context.Context, sessionID domain.SessionID) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+sessionID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	sid, err := domain.ParseSessionID(rec.ID)
	if err != nil {
		return nil, err
	}
	uid, err := domain.ParseUserID(rec.UserID)
	if err != nil {
		return nil, err
	}
	return &domain.Session{
		ID:        sid,
		UserID:    uid,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
		UserAgent: rec.UserAgent,
		IP:        rec.IP,
	}, nil
}

func (s *SessionStore) remove(ctx context.Context, session *domain.Session) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+session.ID.String())
	pipe.SRem(ctx, userSessionsKey+session.UserID.String(), session.ID.String())
	pipe.ZRem(ctx, expiryIndexKey, session.ID.String())
	_, err := pipe.Exec(ctx)
	return err
}

func formatUnix(ts int64) string {
	return strconv.FormatInt(ts, 10)
}

// Ensure SessionStore implements ports.SessionRepository.
var _ ports.SessionRepository = (*SessionStore)(nil)
