package rolestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures from the Redis backend.
var ErrRedisUnavailable = errors.New("rolestore: redis unavailable")

// RedisStore keeps one hash per subject under <prefix>:subject:<id> plus a
// record-ID index under <prefix>:record:<id> so updates can address records
// the way the SQL store does.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore returns a RedisStore with the given key prefix
// ("roles" when empty).
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "roles"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) subjectKey(subjectID string) string {
	return s.prefix + ":subject:" + subjectID
}

func (s *RedisStore) recordKey(recordID string) string {
	return s.prefix + ":record:" + recordID
}

// Find implements Store.
func (s *RedisStore) Find(ctx context.Context, subjectID string) (*Assignment, error) {
	fields, err := s.redis.HGetAll(ctx, s.subjectKey(subjectID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return &Assignment{
		RecordID:  fields["record_id"],
		SubjectID: subjectID,
		Role:      Role(fields["role"]),
	}, nil
}

// Insert implements Store.
func (s *RedisStore) Insert(ctx context.Context, subjectID string, role Role) (*Assignment, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	a := &Assignment{
		RecordID:  uuid.NewString(),
		SubjectID: subjectID,
		Role:      role,
	}

	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, s.subjectKey(subjectID), "record_id", a.RecordID, "role", string(role))
	pipe.Set(ctx, s.recordKey(a.RecordID), subjectID, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return a, nil
}

// Update implements Store.
func (s *RedisStore) Update(ctx context.Context, recordID string, role Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	subjectID, err := s.redis.Get(ctx, s.recordKey(recordID)).Result()
	if err == redis.Nil {
		return ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if err := s.redis.HSet(ctx, s.subjectKey(subjectID), "role", string(role)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
