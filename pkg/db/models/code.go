package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/enums"
)

// Code is an access or discount code redeemable against an event.
type Code struct {
	ID                   uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name                 string         `gorm:"column:name;type:text;not null"`
	EventID              uuid.UUID      `gorm:"column:event_id;type:uuid;not null"`
	CodeType             enums.CodeType `gorm:"column:code_type;type:text;not null"`
	RedemptionCode       string         `gorm:"column:redemption_code;type:text;not null;uniqueIndex"`
	MaxUses              int64          `gorm:"column:max_uses;not null;default:0"`
	DiscountInCents      *int64         `gorm:"column:discount_in_cents"`
	DiscountAsPercentage *int64         `gorm:"column:discount_as_percentage"`
	StartDate            time.Time      `gorm:"column:start_date;not null"`
	EndDate              time.Time      `gorm:"column:end_date;not null"`
	MaxTicketsPerUser    *int64         `gorm:"column:max_tickets_per_user"`
	CreatedAt            time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Code) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// ValidAt reports whether now falls inside the redemption window.
func (c Code) ValidAt(now time.Time) bool {
	return !now.Before(c.StartDate) && now.Before(c.EndDate)
}
