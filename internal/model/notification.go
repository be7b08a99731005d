package model

import "time"

// Notification 通知记录；push 只是尽力投递，行本身先落库
type Notification struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	ReceiverID string `gorm:"type:varchar(36);index:idx_notification_receiver;not null"`
	Category   string `gorm:"type:varchar(32);index;not null"`
	Title      string `gorm:"type:varchar(128);not null"`
	Body       string `gorm:"type:varchar(512)"`
	RelatedID  string `gorm:"type:varchar(36)"`
	Thumbnail  string `gorm:"type:varchar(255)"`
	Read       bool   `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"index"`
}

func (Notification) TableName() string { return "notifications" }
