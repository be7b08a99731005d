// Package cache is a performance layer over FriendGraph reads. It is
// invalidated, never locked: a stale entry may delay a read by one TTL but
// every write path re-checks its own precondition against the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type FriendCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewFriendCache(rdb *redis.Client, ttl time.Duration) *FriendCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &FriendCache{rdb: rdb, ttl: ttl}
}

func friendsKey(userID string) string { return fmt.Sprintf("friends:index:%s", userID) }
func countsKey(userID string) string  { return fmt.Sprintf("friends:counts:%s", userID) }

// GetFriends returns the cached active-friend list; ok=false on miss.
func (c *FriendCache) GetFriends(ctx context.Context, userID string) ([]string, bool) {
	vals, err := c.rdb.LRange(ctx, friendsKey(userID), 0, -1).Result()
	if err != nil || len(vals) == 0 {
		return nil, false
	}
	// 单元素哨兵表示"空好友列表"已缓存
	if len(vals) == 1 && vals[0] == "-" {
		return []string{}, true
	}
	return vals, true
}

func (c *FriendCache) SetFriends(ctx context.Context, userID string, ids []string) {
	key := friendsKey(userID)
	pipe := c.rdb.Pipeline()
	pipe.Del(ctx, key)
	if len(ids) == 0 {
		pipe.RPush(ctx, key, "-")
	} else {
		members := make([]interface{}, len(ids))
		for i, id := range ids {
			members[i] = id
		}
		pipe.RPush(ctx, key, members...)
	}
	pipe.Expire(ctx, key, c.ttl)
	_, _ = pipe.Exec(ctx)
}

// AggregateCounts is the cached friend/post count snapshot for one user.
type AggregateCounts struct {
	Friends int64 `json:"friends"`
	Posts   int64 `json:"posts"`
}

func (c *FriendCache) GetCounts(ctx context.Context, userID string) (*AggregateCounts, bool) {
	data, err := c.rdb.Get(ctx, countsKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var out AggregateCounts
	if json.Unmarshal(data, &out) != nil {
		return nil, false
	}
	return &out, true
}

func (c *FriendCache) SetCounts(ctx context.Context, userID string, counts AggregateCounts) {
	if payload, err := json.Marshal(counts); err == nil {
		_ = c.rdb.Set(ctx, countsKey(userID), payload, c.ttl).Err()
	}
}

// Invalidate drops every cached aggregate for the given users. Called by any
// write path that changes friendships, account status, or post counts.
func (c *FriendCache) Invalidate(ctx context.Context, userIDs ...string) {
	if len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs)*2)
	for _, id := range userIDs {
		keys = append(keys, friendsKey(id), countsKey(id))
	}
	_ = c.rdb.Del(ctx, keys...).Err()
}
