package model

import "time"

// 账号状态
const (
	UserStatusActive    = "ACTIVE"
	UserStatusWithdrawn = "WITHDRAWN"
)

// User 用户（本核心只读：状态、时区、推送令牌等由账号系统维护）
type User struct {
	ID            string `gorm:"primaryKey;type:varchar(36)"`
	Nickname      string `gorm:"type:varchar(64);not null"`
	Status        string `gorm:"type:varchar(16);index;not null;default:ACTIVE"`
	Locale        string `gorm:"type:varchar(8);not null;default:en"`
	Timezone      string `gorm:"type:varchar(48);not null;default:UTC"`
	PushToken     string `gorm:"type:varchar(255)"`
	FeaturedBadge string `gorm:"type:varchar(32)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (User) TableName() string { return "users" }

// Location returns the user's zone for local-date computations, falling back
// to UTC when the stored zone name is unparseable.
func (u *User) Location() *time.Location {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
