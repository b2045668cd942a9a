package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"insureadmin/internal/session"
	id "insureadmin/pkg/domain"
	"insureadmin/pkg/platform/sentinel"
)

const sessionKeyPrefix = "insureadmin:session:"

// RedisStore keeps sessions in Redis with the session's remaining lifetime as
// key TTL. A record that no longer decodes is deleted and reported missing.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedis(client *redis.Client, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, logger: logger}
}

func (s *RedisStore) Save(ctx context.Context, sess *session.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := time.Duration(0)
	if !sess.ExpiresAt.IsZero() {
		ttl = time.Until(sess.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}
	if err := s.client.Set(ctx, key(sess.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, sessionID id.SessionID) (*session.Session, error) {
	raw, err := s.client.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess session.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable session record",
			"session_id", sessionID,
			"error", err,
		)
		_ = s.client.Del(ctx, key(sessionID)).Err()
		return nil, sentinel.ErrNotFound
	}
	return &sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	if err := s.client.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func key(sessionID id.SessionID) string {
	return sessionKeyPrefix + sessionID.String()
}
