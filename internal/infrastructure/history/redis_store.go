package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/doeshing/pdqa/internal/domain"
	"github.com/doeshing/pdqa/internal/ports"
)

// RedisStore keeps history in Redis so several machines can share it. Ids
// live in a sorted set scored by submission time; each record is a JSON
// string under its own key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to addr and verifies the server answers.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:                  addr,
		ContextTimeoutEnabled: true,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s is offline: %w", addr, err)
	}
	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, key: domain.HistoryRedisKey}
}

func (r *RedisStore) recordKey(queryID string) string {
	return r.key + ":" + queryID
}

// Save implements ports.HistoryRepository.
func (r *RedisStore) Save(ctx context.Context, record domain.HistoryRecord) error {
	raw, err := r.client.Get(ctx, r.recordKey(record.QueryID)).Bytes()
	switch {
	case err == nil:
		var prev domain.HistoryRecord
		if json.Unmarshal(raw, &prev) == nil && !prev.SubmittedAt.IsZero() {
			record.SubmittedAt = prev.SubmittedAt
		}
	case !errors.Is(err, redis.Nil):
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.recordKey(record.QueryID), data, 0)
		pipe.ZAddNX(ctx, r.key, redis.Z{
			Score:  float64(record.SubmittedAt.UnixMilli()),
			Member: record.QueryID,
		})
		return nil
	})
	return err
}

// Records returns history entries, newest first (limit/search optional).
func (r *RedisStore) Records(ctx context.Context, limit int, search string) ([]domain.HistoryRecord, error) {
	ids, err := r.client.ZRevRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.recordKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(search)
	var out []domain.HistoryRecord
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var rec domain.HistoryRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			continue
		}
		if search != "" && !matches(rec, needle) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Prune removes entries submitted before olderThan.
func (r *RedisStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	ids, err := r.client.ZRangeByScore(ctx, r.key, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(olderThan.UnixMilli(), 10),
	}).Result()
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return len(ids), r.remove(ctx, ids)
}

// Clear removes every entry.
func (r *RedisStore) Clear(ctx context.Context) error {
	ids, err := r.client.ZRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return err
	}
	if err := r.remove(ctx, ids); err != nil {
		return err
	}
	return r.client.Del(ctx, r.key).Err()
}

func (r *RedisStore) remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		keys[i] = r.recordKey(id)
		members[i] = id
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, r.key, members...)
		return nil
	})
	return err
}

// Location returns the redis address and key.
func (r *RedisStore) Location() string {
	return "redis://" + r.client.Options().Addr + "/" + r.key
}

// Close releases the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

var _ ports.HistoryRepository = (*RedisStore)(nil)
