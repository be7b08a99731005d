package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/beacon-feed/internal/model"
)

type StatRepository interface {
	Get(ctx context.Context, userID string) (*model.UserStat, error)
	// Save upsert 整行；计数型增量用 Incr
	Save(ctx context.Context, stat *model.UserStat) error
	Incr(ctx context.Context, userID, column string, delta int64) error
}

type statRepository struct {
	db *gorm.DB
}

func NewStatRepository(db *gorm.DB) StatRepository { return &statRepository{db: db} }

func (r *statRepository) Get(ctx context.Context, userID string) (*model.UserStat, error) {
	var s model.UserStat
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error
	if err == gorm.ErrRecordNotFound {
		return &model.UserStat{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *statRepository) Save(ctx context.Context, stat *model.UserStat) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"streak", "last_post_date", "visited_places", "post_count",
			"morning_posts", "night_posts", "comment_count", "nudges_received", "updated_at",
		}),
	}).Create(stat).Error
}

func (r *statRepository) Incr(ctx context.Context, userID, column string, delta int64) error {
	// 行可能尚不存在，先确保有行
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserStat{UserID: userID}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&model.UserStat{}).
		Where("user_id = ?", userID).
		Update(column, gorm.Expr(column+" + ?", delta)).Error
}
