package model

import "time"

// UserStat 滚动统计，作为徽章判定的事实来源（连续天数按作者本地日期推进）
type UserStat struct {
	UserID         string `gorm:"primaryKey;type:varchar(36)"`
	Streak         int    `gorm:"not null;default:0"`
	LastPostDate   string `gorm:"type:varchar(10)"` // yyyy-mm-dd, author-local
	VisitedPlaces  int64  `gorm:"not null;default:0"`
	PostCount      int64  `gorm:"not null;default:0"`
	MorningPosts   int64  `gorm:"not null;default:0"` // author-local 06:00-07:59
	NightPosts     int64  `gorm:"not null;default:0"` // author-local 22:00-23:59
	CommentCount   int64  `gorm:"not null;default:0"`
	NudgesReceived int64  `gorm:"not null;default:0"`
	UpdatedAt      time.Time
}

func (UserStat) TableName() string { return "user_stats" }
