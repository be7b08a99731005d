package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/beacon-feed/internal/model"
)

type IntimacyRepository interface {
	// EnsureRow 为无序对建行（已存在则无操作）
	EnsureRow(ctx context.Context, a, b string) error
	Get(ctx context.Context, a, b string) (*model.Intimacy, error)
	// AddScore 原子自增，杜绝并发丢更新
	AddScore(ctx context.Context, a, b string, delta int64) error
	// SetLevelIfHigher 只升不降
	SetLevelIfHigher(ctx context.Context, a, b string, level int) error
}

type intimacyRepository struct {
	db *gorm.DB
}

func NewIntimacyRepository(db *gorm.DB) IntimacyRepository { return &intimacyRepository{db: db} }

func orderPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

func (r *intimacyRepository) EnsureRow(ctx context.Context, a, b string) error {
	lo, hi := orderPair(a, b)
	row := &model.Intimacy{ID: uuid.New().String(), UserA: lo, UserB: hi}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
}

func (r *intimacyRepository) Get(ctx context.Context, a, b string) (*model.Intimacy, error) {
	lo, hi := orderPair(a, b)
	var row model.Intimacy
	err := r.db.WithContext(ctx).Where("user_a = ? AND user_b = ?", lo, hi).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *intimacyRepository) AddScore(ctx context.Context, a, b string, delta int64) error {
	lo, hi := orderPair(a, b)
	return r.db.WithContext(ctx).
		Model(&model.Intimacy{}).
		Where("user_a = ? AND user_b = ?", lo, hi).
		Update("score", gorm.Expr("score + ?", delta)).Error
}

func (r *intimacyRepository) SetLevelIfHigher(ctx context.Context, a, b string, level int) error {
	lo, hi := orderPair(a, b)
	return r.db.WithContext(ctx).
		Model(&model.Intimacy{}).
		Where("user_a = ? AND user_b = ? AND level < ?", lo, hi, level).
		Update("level", level).Error
}
