package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// dedupTTL 覆盖任意时区的"昨日"清理，无需额外清理任务
const dedupTTL = 48 * time.Hour

// DedupLog is the idempotency log for once-per-day notification categories.
// Key existence means "already sent today". Check and insert are split on
// purpose: the dispatcher sends first and records after, so a race costs at
// most one duplicate and never a silently dropped send.
type DedupLog interface {
	// Unsent returns the subset of keys not yet recorded.
	Unsent(ctx context.Context, keys []string) (map[string]bool, error)
	MarkSent(ctx context.Context, keys []string) error
}

type redisDedupLog struct {
	rdb *redis.Client
}

func NewDedupLog(rdb *redis.Client) DedupLog { return &redisDedupLog{rdb: rdb} }

func (d *redisDedupLog) Unsent(ctx context.Context, keys []string) (map[string]bool, error) {
	out := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := d.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		out[keys[i]] = v == nil
	}
	return out, nil
}

func (d *redisDedupLog) MarkSent(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	pipe := d.rdb.Pipeline()
	for _, k := range keys {
		pipe.SetNX(ctx, k, 1, dedupTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}
