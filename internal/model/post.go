package model

import "time"

// Post 位置打点内容（本核心只读，由发帖用例创建）
type Post struct {
	ID            string      `gorm:"primaryKey;type:varchar(36)"`
	AuthorID      string      `gorm:"type:varchar(36);index:idx_post_author;not null"`
	Caption       string      `gorm:"type:text"`
	Thumbnail     string      `gorm:"type:varchar(255)"`
	Lat           float64     `gorm:"not null"`
	Lng           float64     `gorm:"not null"`
	BeaconID      string      `gorm:"type:varchar(36);index:idx_post_beacon;not null"`
	Collaborators StringArray `gorm:"type:text"`
	Archived      bool        `gorm:"index;not null;default:false"`
	CreatedAt     time.Time   `gorm:"index"`
	UpdatedAt     time.Time
}

func (Post) TableName() string { return "posts" }
