package model

import "time"

// Outbox 事件外发盒：与业务写同事务落库，提交后由 relay 派发
type Outbox struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	Kind        string    `gorm:"type:varchar(32);index;not null"`
	Payload     string    `gorm:"type:text;not null"`
	Status      string    `gorm:"type:varchar(16);index;not null"` // pending, processing, done
	CreatedAt   time.Time `gorm:"index"`
	ProcessedAt *time.Time
}

func (Outbox) TableName() string { return "outbox" }
