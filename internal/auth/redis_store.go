package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/eshaffer321/retail-go/internal/types"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore persists credentials in redis under <prefix><fixed key name>.
// Useful when several processes on one host share a session.
type RedisStore struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a store. ttl of zero keeps keys until cleared.
func NewRedisStore(rdb redis.Cmdable, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}

// Load reads all three keys in one round trip
func (s *RedisStore) Load(ctx context.Context) (*types.Credentials, error) {
	vals, err := s.rdb.MGet(ctx, s.key(AccessTokenKey), s.key(RefreshTokenKey), s.key(UserKey)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read credentials from redis")
	}

	creds := &types.Credentials{
		AccessToken:  stringValue(vals, 0),
		RefreshToken: stringValue(vals, 1),
	}

	if raw := stringValue(vals, 2); raw != "" {
		var user types.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal stored user")
		}
		creds.User = &user
	}

	if creds.Empty() && creds.User == nil {
		return nil, nil
	}
	return creds, nil
}

// Save writes all keys atomically
func (s *RedisStore) Save(ctx context.Context, creds *types.Credentials) error {
	if creds == nil {
		return errors.New("nil credentials")
	}

	var userJSON []byte
	if creds.User != nil {
		var err error
		userJSON, err = json.Marshal(creds.User)
		if err != nil {
			return errors.Wrap(err, "failed to marshal user")
		}
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(AccessTokenKey), creds.AccessToken, s.ttl)
		pipe.Set(ctx, s.key(RefreshTokenKey), creds.RefreshToken, s.ttl)
		if userJSON != nil {
			pipe.Set(ctx, s.key(UserKey), userJSON, s.ttl)
		} else {
			pipe.Del(ctx, s.key(UserKey))
		}
		return nil
	})
	return errors.Wrap(err, "failed to write credentials to redis")
}

// Clear deletes all keys
func (s *RedisStore) Clear(ctx context.Context) error {
	err := s.rdb.Del(ctx, s.key(AccessTokenKey), s.key(RefreshTokenKey), s.key(UserKey)).Err()
	return errors.Wrap(err, "failed to clear credentials in redis")
}

func stringValue(vals []interface{}, i int) string {
	if i >= len(vals) || vals[i] == nil {
		return ""
	}
	s, _ := vals[i].(string)
	return s
}
