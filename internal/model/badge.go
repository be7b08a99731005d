package model

import "time"

// Badge 徽章目录（启动时载入的只读参照数据）
type Badge struct {
	Type         string `gorm:"primaryKey;type:varchar(32)"`
	Name         string `gorm:"type:varchar(64);not null"`
	Description  string `gorm:"type:varchar(255)"`
	Condition    string `gorm:"type:varchar(255)"`
	UnlockedIcon string `gorm:"type:varchar(255)"`
	LockedIcon   string `gorm:"type:varchar(255)"`
}

func (Badge) TableName() string { return "badges" }

// UserBadge 用户获得的徽章（(user, badge) 唯一，授予幂等）
type UserBadge struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	UserID    string `gorm:"type:varchar(36);index:idx_user_badge,unique;not null"`
	BadgeType string `gorm:"type:varchar(32);index:idx_user_badge,unique;not null"`
	CreatedAt time.Time
}

func (UserBadge) TableName() string { return "user_badges" }
