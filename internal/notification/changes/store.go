package changes

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// VersionStore remembers the last published card version per contact, so a
// duplicate timer or a restart never re-announces an already-published
// version.
type VersionStore interface {
	LastPublished(ctx context.Context, contactID uuid.UUID) (int64, bool, error)
	SetLastPublished(ctx context.Context, contactID uuid.UUID, version int64) error
}

// RedisVersionStore keeps last published versions in redis so the at-most-
// once guarantee survives process restarts.
type RedisVersionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisVersionStore(client *redis.Client) *RedisVersionStore {
	return &RedisVersionStore{client: client, ttl: 30 * 24 * time.Hour}
}

func versionKey(contactID uuid.UUID) string {
	return fmt.Sprintf("cardchange:lastver:%s", contactID)
}

func (s *RedisVersionStore) LastPublished(ctx context.Context, contactID uuid.UUID) (int64, bool, error) {
	raw, err := s.client.Get(ctx, versionKey(contactID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return version, true, nil
}

func (s *RedisVersionStore) SetLastPublished(ctx context.Context, contactID uuid.UUID, version int64) error {
	return s.client.Set(ctx, versionKey(contactID), strconv.FormatInt(version, 10), s.ttl).Err()
}
