package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/voicegate/internal/db"
)

// GetInt64 reads an integer counter. A missing key yields db.ErrKeyNotFound.
func (s *Store) GetInt64(ctx context.Context, key string) (int64, error) {
	n, err := s.do(ctx, s.b().Get().Key(key).Build()).AsInt64()
	switch {
	case err == nil:
		return n, nil
	case rueidis.IsRedisNil(err):
		return 0, db.ErrKeyNotFound
	default:
		return 0, &db.Error{Op: db.OpGet, Err: err}
	}
}

// IncrBy adds val to the counter at key and returns the new value.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) (int64, error) {
	n, err := s.do(ctx, s.b().Incrby().Key(key).Increment(val).Build()).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpIncrBy, Err: err}
	}
	return n, nil
}

// Del removes keys; missing keys are not an error.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.do(ctx, s.b().Del().Key(keys...).Build()).Error(); err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}
