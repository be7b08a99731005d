package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/beacon-feed/internal/model"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	CreateBatch(ctx context.Context, ns []*model.Notification) error
	ListByReceiver(ctx context.Context, receiverID string, offset, limit int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, receiverID, notificationID string) error
	CountUnread(ctx context.Context, receiverID string) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) CreateBatch(ctx context.Context, ns []*model.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&ns).Error
}

func (r *notificationRepository) ListByReceiver(ctx context.Context, receiverID string, offset, limit int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	var res []*model.Notification
	err := r.db.WithContext(ctx).
		Where("receiver_id = ?", receiverID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, receiverID, notificationID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND receiver_id = ?", notificationID, receiverID).
		Update("read", true).Error
}

func (r *notificationRepository) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("receiver_id = ? AND read = ?", receiverID, false).
		Count(&cnt).Error
	return cnt, err
}
