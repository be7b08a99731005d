package service

import (
	"context"
	"errors"

	"github.com/d60-Lab/beacon-feed/internal/cache"
	"github.com/d60-Lab/beacon-feed/internal/model"
	"github.com/d60-Lab/beacon-feed/internal/repository"
)

var ErrSelfRelation = errors.New("relation with self")

// RelationStatus is the pairwise relation viewed from one side.
type RelationStatus string

const (
	RelationSelf            RelationStatus = "SELF"
	RelationFriend          RelationStatus = "FRIEND"
	RelationPendingSent     RelationStatus = "PENDING_SENT"
	RelationPendingReceived RelationStatus = "PENDING_RECEIVED"
	RelationNone            RelationStatus = "NONE"
)

// FriendGraph 好友关系只读查询；列表与聚合计数走缓存，写路径负责失效
type FriendGraph interface {
	ActiveFriends(ctx context.Context, userID string) ([]string, error)
	RelationStatus(ctx context.Context, me, other string) (RelationStatus, error)
	UsersWhoPostedInBeacon(ctx context.Context, beaconID string, candidateIDs []string) ([]string, error)
	BatchFriendCounts(ctx context.Context, userIDs []string) (map[string]int64, error)
	BatchPostCounts(ctx context.Context, userIDs []string) (map[string]int64, error)
	// Invalidate 好友关系或账号状态变更后由写路径调用
	Invalidate(ctx context.Context, userIDs ...string)
}

type friendGraph struct {
	friendships repository.FriendshipRepository
	posts       repository.PostRepository
	cache       *cache.FriendCache
}

func NewFriendGraph(friendships repository.FriendshipRepository, posts repository.PostRepository, c *cache.FriendCache) FriendGraph {
	return &friendGraph{friendships: friendships, posts: posts, cache: c}
}

func (g *friendGraph) ActiveFriends(ctx context.Context, userID string) ([]string, error) {
	if ids, ok := g.cache.GetFriends(ctx, userID); ok {
		return ids, nil
	}
	ids, err := g.friendships.ActiveFriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	g.cache.SetFriends(ctx, userID, ids)
	return ids, nil
}

func (g *friendGraph) RelationStatus(ctx context.Context, me, other string) (RelationStatus, error) {
	if me == other {
		return RelationSelf, nil
	}
	row, err := g.friendships.PairRow(ctx, me, other)
	if err != nil {
		return RelationNone, err
	}
	if row == nil {
		return RelationNone, nil
	}
	switch row.Status {
	case model.FriendshipAccepted:
		return RelationFriend, nil
	case model.FriendshipPending:
		if row.RequesterID == me {
			return RelationPendingSent, nil
		}
		return RelationPendingReceived, nil
	default:
		return RelationNone, nil
	}
}

func (g *friendGraph) UsersWhoPostedInBeacon(ctx context.Context, beaconID string, candidateIDs []string) ([]string, error) {
	return g.posts.UsersWhoPostedInBeacon(ctx, beaconID, candidateIDs)
}

func (g *friendGraph) BatchFriendCounts(ctx context.Context, userIDs []string) (map[string]int64, error) {
	return g.batchCounts(ctx, userIDs, true)
}

func (g *friendGraph) BatchPostCounts(ctx context.Context, userIDs []string) (map[string]int64, error) {
	return g.batchCounts(ctx, userIDs, false)
}

// batchCounts 逐用户读缓存快照，缺失的统一回源再回填
func (g *friendGraph) batchCounts(ctx context.Context, userIDs []string, friends bool) (map[string]int64, error) {
	out := make(map[string]int64, len(userIDs))
	missing := make([]string, 0, len(userIDs))
	snaps := make(map[string]*cache.AggregateCounts, len(userIDs))
	for _, id := range userIDs {
		if snap, ok := g.cache.GetCounts(ctx, id); ok {
			snaps[id] = snap
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		fc, err := g.friendships.BatchFriendCounts(ctx, missing)
		if err != nil {
			return nil, err
		}
		pc, err := g.posts.BatchPostCounts(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, id := range missing {
			snap := &cache.AggregateCounts{Friends: fc[id], Posts: pc[id]}
			snaps[id] = snap
			g.cache.SetCounts(ctx, id, *snap)
		}
	}

	for _, id := range userIDs {
		if snap := snaps[id]; snap != nil {
			if friends {
				out[id] = snap.Friends
			} else {
				out[id] = snap.Posts
			}
		}
	}
	return out, nil
}

func (g *friendGraph) Invalidate(ctx context.Context, userIDs ...string) {
	g.cache.Invalidate(ctx, userIDs...)
}
