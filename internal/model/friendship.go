package model

import "time"

// 好友关系状态
const (
	FriendshipPending  = "PENDING"
	FriendshipAccepted = "FRIENDSHIP"
)

// Friendship 好友关系（无序对唯一；requester/receiver 保留申请方向）
type Friendship struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	RequesterID string `gorm:"type:varchar(36);index:idx_friendship_requester;not null"`
	ReceiverID  string `gorm:"type:varchar(36);index:idx_friendship_receiver;not null"`
	// PairKey = "<min>_<max>"，保证无序对唯一
	PairKey   string `gorm:"type:varchar(80);uniqueIndex:ux_friendship_pair;not null"`
	Status    string `gorm:"type:varchar(16);index;not null;default:PENDING"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Friendship) TableName() string { return "friendships" }

// PairKeyOf returns the canonical unordered-pair key for two user ids.
func PairKeyOf(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}
