package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/beacon-feed/internal/model"
)

type BadgeRepository interface {
	// Award 幂等授予；返回本次是否为首次授予
	Award(ctx context.Context, userID, badgeType string) (bool, error)
	Has(ctx context.Context, userID, badgeType string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]*model.UserBadge, error)
	// SetFeaturedIfUnset 用户未设置展示徽章时将本次授予设为展示徽章
	SetFeaturedIfUnset(ctx context.Context, userID, badgeType string) error
	SeedCatalog(ctx context.Context, catalog []model.Badge) error
	Catalog(ctx context.Context) ([]*model.Badge, error)
}

type badgeRepository struct {
	db *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) BadgeRepository { return &badgeRepository{db: db} }

func (r *badgeRepository) Award(ctx context.Context, userID, badgeType string) (bool, error) {
	ub := &model.UserBadge{ID: uuid.New().String(), UserID: userID, BadgeType: badgeType}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(ub)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *badgeRepository) Has(ctx context.Context, userID, badgeType string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.UserBadge{}).
		Where("user_id = ? AND badge_type = ?", userID, badgeType).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *badgeRepository) ListForUser(ctx context.Context, userID string) ([]*model.UserBadge, error) {
	var res []*model.UserBadge
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&res).Error
	return res, err
}

func (r *badgeRepository) SetFeaturedIfUnset(ctx context.Context, userID, badgeType string) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND (featured_badge IS NULL OR featured_badge = '')", userID).
		Update("featured_badge", badgeType).Error
}

func (r *badgeRepository) SeedCatalog(ctx context.Context, catalog []model.Badge) error {
	if len(catalog) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&catalog).Error
}

func (r *badgeRepository) Catalog(ctx context.Context) ([]*model.Badge, error) {
	var res []*model.Badge
	err := r.db.WithContext(ctx).Order("type").Find(&res).Error
	return res, err
}
