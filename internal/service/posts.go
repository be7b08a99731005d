package service

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/beacon-feed/internal/event"
	"github.com/d60-Lab/beacon-feed/internal/geo"
	"github.com/d60-Lab/beacon-feed/internal/model"
	"github.com/d60-Lab/beacon-feed/internal/repository"
)

var (
	ErrAuthorInactive = errors.New("author is not active")
	ErrPostNotFound   = errors.New("post not found")
)

type CreatePostInput struct {
	AuthorID      string
	Caption       string
	Thumbnail     string
	Lat           float64
	Lng           float64
	Collaborators []string
}

// PostService 发帖入口：定格 beacon、同事务写帖子与 outbox 行，
// 提交成功才可能触发扇出
type PostService struct {
	db        *gorm.DB
	posts     repository.PostRepository
	users     repository.UserRepository
	graph     FriendGraph
	publisher *event.Publisher
}

func NewPostService(
	db *gorm.DB,
	posts repository.PostRepository,
	users repository.UserRepository,
	graph FriendGraph,
	publisher *event.Publisher,
) *PostService {
	return &PostService{db: db, posts: posts, users: users, graph: graph, publisher: publisher}
}

// Create resolves the beacon from the raw coordinate and persists the post
// together with its outbox row in one transaction.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*model.Post, error) {
	beaconID, err := geo.CellID(in.Lat, in.Lng)
	if err != nil {
		return nil, err
	}
	author, err := s.users.Get(ctx, in.AuthorID)
	if err != nil {
		return nil, err
	}
	if author == nil || author.Status != model.UserStatusActive {
		return nil, ErrAuthorInactive
	}

	// 同行人去重、剔除作者自己
	seen := map[string]bool{in.AuthorID: true}
	collabs := make(model.StringArray, 0, len(in.Collaborators))
	for _, id := range in.Collaborators {
		if !seen[id] {
			seen[id] = true
			collabs = append(collabs, id)
		}
	}

	post := &model.Post{
		ID:            uuid.New().String(),
		AuthorID:      in.AuthorID,
		Caption:       in.Caption,
		Thumbnail:     in.Thumbnail,
		Lat:           in.Lat,
		Lng:           in.Lng,
		BeaconID:      beaconID,
		Collaborators: collabs,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		return s.publisher.PostCreatedTx(tx, post.ID)
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// Get returns one post.
func (s *PostService) Get(ctx context.Context, id string) (*model.Post, error) {
	p, err := s.posts.Get(ctx, id)
	if err == gorm.ErrRecordNotFound {
		return nil, ErrPostNotFound
	}
	return p, err
}

// NearbyFriendPosts lists friends' posts in the viewer's cell and its ring,
// closest cells first.
func (s *PostService) NearbyFriendPosts(ctx context.Context, viewerID string, lat, lng float64, limit int) ([]*model.Post, error) {
	center, err := geo.CellID(lat, lng)
	if err != nil {
		return nil, err
	}
	cells, err := geo.Neighbors(center)
	if err != nil {
		return nil, err
	}
	friendIDs, err := s.graph.ActiveFriends(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	friends := make(map[string]bool, len(friendIDs))
	for _, id := range friendIDs {
		friends[id] = true
	}

	if limit <= 0 {
		limit = 50
	}
	var out []*model.Post
	for _, cell := range cells {
		posts, err := s.posts.FindInBeacon(ctx, cell, limit)
		if err != nil {
			return nil, err
		}
		for _, p := range posts {
			if friends[p.AuthorID] {
				out = append(out, p)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, _ := geo.Distance(center, out[i].BeaconID)
		dj, _ := geo.Distance(center, out[j].BeaconID)
		return di < dj
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
