package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/enums"
)

// Hold carves inventory of one ticket type out of general sale behind a
// redemption code.
type Hold struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name            string         `gorm:"column:name;type:text;not null"`
	EventID         uuid.UUID      `gorm:"column:event_id;type:uuid;not null"`
	TicketTypeID    uuid.UUID      `gorm:"column:ticket_type_id;type:uuid;not null"`
	RedemptionCode  string         `gorm:"column:redemption_code;type:text;not null;uniqueIndex"`
	HoldType        enums.HoldType `gorm:"column:hold_type;type:text;not null"`
	DiscountInCents int64          `gorm:"column:discount_in_cents;not null;default:0"`
	EndAt           *time.Time     `gorm:"column:end_at"`
	MaxPerUser      int            `gorm:"column:max_per_user;not null;default:0"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (h *Hold) BeforeCreate(tx *gorm.DB) error {
	assignID(&h.ID)
	return nil
}

// ExpiredAt reports whether the hold stopped accepting redemptions.
func (h Hold) ExpiredAt(now time.Time) bool {
	return h.EndAt != nil && !now.Before(*h.EndAt)
}
