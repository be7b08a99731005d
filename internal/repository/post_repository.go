package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/beacon-feed/internal/model"
)

type PostRepository interface {
	Get(ctx context.Context, id string) (*model.Post, error)
	Create(ctx context.Context, post *model.Post) error
	FindInBeacon(ctx context.Context, beaconID string, limit int) ([]*model.Post, error)
	// UsersWhoPostedInBeacon 将候选集合收窄为在该 beacon 留过帖子的用户
	UsersWhoPostedInBeacon(ctx context.Context, beaconID string, candidateIDs []string) ([]string, error)
	CountByUserInBeacon(ctx context.Context, userID, beaconID string) (int64, error)
	DistinctBeaconCount(ctx context.Context, userID string) (int64, error)
	BatchPostCounts(ctx context.Context, userIDs []string) (map[string]int64, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Get(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) FindInBeacon(ctx context.Context, beaconID string, limit int) ([]*model.Post, error) {
	if limit <= 0 {
		limit = 50
	}
	var res []*model.Post
	err := r.db.WithContext(ctx).
		Where("beacon_id = ? AND archived = ?", beaconID, false).
		Order("created_at DESC").
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *postRepository) UsersWhoPostedInBeacon(ctx context.Context, beaconID string, candidateIDs []string) ([]string, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Distinct("author_id").
		Where("beacon_id = ? AND archived = ? AND author_id IN ?", beaconID, false, candidateIDs).
		Pluck("author_id", &ids).Error
	return ids, err
}

func (r *postRepository) CountByUserInBeacon(ctx context.Context, userID, beaconID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("author_id = ? AND beacon_id = ? AND archived = ?", userID, beaconID, false).
		Count(&cnt).Error
	return cnt, err
}

func (r *postRepository) DistinctBeaconCount(ctx context.Context, userID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Distinct("beacon_id").
		Where("author_id = ? AND archived = ?", userID, false).
		Count(&cnt).Error
	return cnt, err
}

func (r *postRepository) BatchPostCounts(ctx context.Context, userIDs []string) (map[string]int64, error) {
	if len(userIDs) == 0 {
		return map[string]int64{}, nil
	}
	type row struct {
		AuthorID string
		Cnt      int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Select("author_id, COUNT(*) AS cnt").
		Where("author_id IN ? AND archived = ?", userIDs, false).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, rw := range rows {
		out[rw.AuthorID] = rw.Cnt
	}
	return out, nil
}
