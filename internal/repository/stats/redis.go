package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/voicegate/internal/db"
	domstats "github.com/kailas-cloud/voicegate/internal/domain/stats"
)

// store is the consumer interface for stats operations (ISP).
type store interface {
	GetInt64(ctx context.Context, key string) (int64, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Del(ctx context.Context, keys ...string) error
	LPushTrim(ctx context.Context, key string, value []byte, maxLen int) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
}

// Redis keeps statistics in Redis so they survive restarts and are shared
// between replicas.
type Redis struct {
	store     store
	totalKey  string
	recentKey string
}

// NewRedis creates a Redis-backed recorder. Keys are namespaced by prefix and
// share the {rag} hash tag so Reset's multi-key DEL stays in one cluster slot.
func NewRedis(s store, prefix string) *Redis {
	return &Redis{
		store:     s,
		totalKey:  prefix + "{rag}:total",
		recentKey: prefix + "{rag}:recent",
	}
}

// Record increments the counter and prepends rec.
func (r *Redis) Record(ctx context.Context, rec domstats.Record) error {
	data, err := json.Marshal(recordToDTO(rec))
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := r.store.IncrBy(ctx, r.totalKey, 1); err != nil {
		return fmt.Errorf("stats INCRBY %s: %w", r.totalKey, err)
	}
	if err := r.store.LPushTrim(ctx, r.recentKey, data, domstats.MaxRecent); err != nil {
		return fmt.Errorf("stats LPUSH %s: %w", r.recentKey, err)
	}
	return nil
}

// Snapshot reads the counter and the audit list.
func (r *Redis) Snapshot(ctx context.Context) (domstats.Snapshot, error) {
	total, err := r.total(ctx)
	if err != nil {
		return domstats.Snapshot{}, err
	}

	items, err := r.store.LRange(ctx, r.recentKey, 0, domstats.MaxRecent-1)
	if err != nil {
		return domstats.Snapshot{}, fmt.Errorf("stats LRANGE %s: %w", r.recentKey, err)
	}

	recent := make([]domstats.Record, 0, len(items))
	for _, item := range items {
		var dto recordDTO
		if err := json.Unmarshal(item, &dto); err != nil {
			// skip entries written by an incompatible version
			continue
		}
		recent = append(recent, dto.toDomain())
	}

	return domstats.Snapshot{Total: total, Recent: recent}, nil
}

// Reset deletes both keys.
func (r *Redis) Reset(ctx context.Context) error {
	if err := r.store.Del(ctx, r.totalKey, r.recentKey); err != nil {
		return fmt.Errorf("stats DEL: %w", err)
	}
	return nil
}

func (r *Redis) total(ctx context.Context) (int64, error) {
	val, err := r.store.GetInt64(ctx, r.totalKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("stats GET %s: %w", r.totalKey, err)
	}
	return val, nil
}
