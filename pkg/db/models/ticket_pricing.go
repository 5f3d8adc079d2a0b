package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/enums"
)

// TicketPricing is a priced window for a ticket type.
type TicketPricing struct {
	ID              uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	TicketTypeID    uuid.UUID                 `gorm:"column:ticket_type_id;type:uuid;not null"`
	Name            string                    `gorm:"column:name;type:text;not null"`
	PriceInCents    int64                     `gorm:"column:price_in_cents;not null"`
	StartDate       time.Time                 `gorm:"column:start_date;not null"`
	EndDate         time.Time                 `gorm:"column:end_date;not null"`
	IsBoxOfficeOnly bool                      `gorm:"column:is_box_office_only;not null;default:false"`
	Status          enums.TicketPricingStatus `gorm:"column:status;type:text;not null;default:'Published'"`
	CreatedAt       time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *TicketPricing) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// ActiveAt reports whether the pricing window covers now.
func (p TicketPricing) ActiveAt(now time.Time) bool {
	return !now.Before(p.StartDate) && now.Before(p.EndDate)
}

func (TicketPricing) TableName() string {
	return "ticket_pricing"
}
