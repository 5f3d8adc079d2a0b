package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event owns ticket types and the fee configuration applied to them.
type Event struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name              string     `gorm:"column:name;type:text;not null"`
	FeeScheduleID     *uuid.UUID `gorm:"column:fee_schedule_id;type:uuid"`
	ClientFeeInCents  int64      `gorm:"column:client_fee_in_cents;not null;default:0"`
	CompanyFeeInCents int64      `gorm:"column:company_fee_in_cents;not null;default:0"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	assignID(&e.ID)
	return nil
}

// FeeInCents is the event level fee charged once per order.
func (e Event) FeeInCents() int64 {
	return e.ClientFeeInCents + e.CompanyFeeInCents
}
