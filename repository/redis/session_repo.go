package redis

import (
	"context"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/taskboard/domain"
	"github.com/fastygo/taskboard/repository"
)

const keyPrefix = "taskboard:session:"

// Hash fields of a stored session.
const (
	fieldUserID    = "user_id"
	fieldEmail     = "email"
	fieldExpiresAt = "expires_at"
	fieldCreatedAt = "created_at"
)

type sessionRepository struct {
	client redislib.Cmdable
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionRepository stores each session as a hash whose key expires with
// the session.
func NewSessionRepository(client redislib.Cmdable, ttl time.Duration) repository.SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &sessionRepository{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	fields, err := r.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	session := &domain.Session{
		ID:     id,
		UserID: fields[fieldUserID],
		Email:  fields[fieldEmail],
	}
	if session.ExpiresAt, err = time.Parse(time.RFC3339Nano, fields[fieldExpiresAt]); err != nil {
		return nil, err
	}
	if session.CreatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldCreatedAt]); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *sessionRepository) Save(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" || session.UserID == "" {
		return domain.ErrInvalidPayload
	}

	now := r.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if !session.ExpiresAt.After(session.CreatedAt) {
		session.ExpiresAt = session.CreatedAt.Add(r.ttl)
	}

	ttl := session.ExpiresAt.Sub(now)
	if ttl <= 0 {
		ttl = r.ttl
	}

	key := sessionKey(session.ID)
	_, err := r.client.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			fieldUserID, session.UserID,
			fieldEmail, session.Email,
			fieldExpiresAt, session.ExpiresAt.UTC().Format(time.RFC3339Nano),
			fieldCreatedAt, session.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, sessionKey(id)).Err()
}

// Extend moves both the key expiry and the stored expires_at.
func (r *sessionRepository) Extend(ctx context.Context, id string, ttlSeconds int) error {
	duration := time.Duration(ttlSeconds) * time.Second
	if duration <= 0 {
		duration = r.ttl
	}

	key := sessionKey(id)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return domain.ErrSessionNotFound
	}

	expiresAt := r.now().Add(duration)
	_, err = r.client.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
		pipe.HSet(ctx, key, fieldExpiresAt, expiresAt.UTC().Format(time.RFC3339Nano))
		pipe.Expire(ctx, key, duration)
		return nil
	})
	return err
}

func sessionKey(id string) string {
	return keyPrefix + id
}
