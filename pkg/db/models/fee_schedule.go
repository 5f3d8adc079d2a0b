package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FeeSchedule struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Name      string             `gorm:"column:name;type:text;not null"`
	Ranges    []FeeScheduleRange `gorm:"foreignKey:FeeScheduleID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (f *FeeSchedule) BeforeCreate(tx *gorm.DB) error {
	assignID(&f.ID)
	return nil
}

// FeeScheduleRange applies to unit prices at or above MinPriceInCents.
type FeeScheduleRange struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	FeeScheduleID     uuid.UUID `gorm:"column:fee_schedule_id;type:uuid;not null"`
	MinPriceInCents   int64     `gorm:"column:min_price_in_cents;not null"`
	CompanyFeeInCents int64     `gorm:"column:company_fee_in_cents;not null;default:0"`
	ClientFeeInCents  int64     `gorm:"column:client_fee_in_cents;not null;default:0"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *FeeScheduleRange) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}

func (r FeeScheduleRange) FeeInCents() int64 {
	return r.CompanyFeeInCents + r.ClientFeeInCents
}
