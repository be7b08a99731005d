package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/beacon-feed/internal/model"
)

type FriendshipRepository interface {
	// ActiveFriendIDs 返回状态为 FRIENDSHIP 且对方账号未注销的好友
	ActiveFriendIDs(ctx context.Context, userID string) ([]string, error)
	PairRow(ctx context.Context, a, b string) (*model.Friendship, error)
	Upsert(ctx context.Context, requesterID, receiverID, status string) error
	BatchFriendCounts(ctx context.Context, userIDs []string) (map[string]int64, error)
}

type friendshipRepository struct {
	db *gorm.DB
}

func NewFriendshipRepository(db *gorm.DB) FriendshipRepository {
	return &friendshipRepository{db: db}
}

func (r *friendshipRepository) ActiveFriendIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Raw(`
		SELECT u.id
		FROM friendships f
		JOIN users u ON u.id = CASE WHEN f.requester_id = ? THEN f.receiver_id ELSE f.requester_id END
		WHERE (f.requester_id = ? OR f.receiver_id = ?)
		  AND f.status = ?
		  AND u.status = ?
	`, userID, userID, userID, model.FriendshipAccepted, model.UserStatusActive).Scan(&ids).Error
	return ids, err
}

func (r *friendshipRepository) PairRow(ctx context.Context, a, b string) (*model.Friendship, error) {
	var f model.Friendship
	err := r.db.WithContext(ctx).Where("pair_key = ?", model.PairKeyOf(a, b)).First(&f).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Upsert 由好友申请流程调用；重复写同一无序对只更新状态
func (r *friendshipRepository) Upsert(ctx context.Context, requesterID, receiverID, status string) error {
	f := &model.Friendship{
		ID:          uuid.New().String(),
		RequesterID: requesterID,
		ReceiverID:  receiverID,
		PairKey:     model.PairKeyOf(requesterID, receiverID),
		Status:      status,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pair_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(f).Error
}

func (r *friendshipRepository) BatchFriendCounts(ctx context.Context, userIDs []string) (map[string]int64, error) {
	if len(userIDs) == 0 {
		return map[string]int64{}, nil
	}
	type row struct {
		UID string
		Cnt int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Raw(`
		SELECT uid, COUNT(*) AS cnt FROM (
			SELECT requester_id AS uid FROM friendships WHERE status = ? AND requester_id IN ?
			UNION ALL
			SELECT receiver_id AS uid FROM friendships WHERE status = ? AND receiver_id IN ?
		) t GROUP BY uid
	`, model.FriendshipAccepted, userIDs, model.FriendshipAccepted, userIDs).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, rw := range rows {
		out[rw.UID] = rw.Cnt
	}
	return out, nil
}
