package model

import "time"

// Intimacy 亲密度（无序对唯一，UserA < UserB；分数只增不减）
type Intimacy struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	UserA     string `gorm:"type:varchar(36);index:idx_intimacy_pair,unique;not null"`
	UserB     string `gorm:"type:varchar(36);index:idx_intimacy_pair,unique;not null"`
	Score     int64  `gorm:"not null;default:0"`
	Level     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Intimacy) TableName() string { return "intimacies" }
