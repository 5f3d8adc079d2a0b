package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the minimal buyer identity the order core needs: the pointer to
// the currently open cart plus a version guarding that pointer.
type User struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email      string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	LastCartID *uuid.UUID `gorm:"column:last_cart_id;type:uuid;uniqueIndex"`
	Version    int64      `gorm:"column:version;not null;default:0"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	assignID(&u.ID)
	return nil
}
