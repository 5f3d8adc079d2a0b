package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/enums"
)

// OrderItem is a priced line of an order. PerUnitFees and Discount lines are
// children of a Tickets line through ParentID.
type OrderItem struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID            uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	ItemType           enums.OrderItemType `gorm:"column:item_type;type:text;not null"`
	Quantity           int64               `gorm:"column:quantity;not null"`
	RefundedQuantity   int64               `gorm:"column:refunded_quantity;not null;default:0"`
	UnitPriceInCents   int64               `gorm:"column:unit_price_in_cents;not null"`
	CompanyFeeInCents  int64               `gorm:"column:company_fee_in_cents;not null;default:0"`
	ClientFeeInCents   int64               `gorm:"column:client_fee_in_cents;not null;default:0"`
	TicketTypeID       *uuid.UUID          `gorm:"column:ticket_type_id;type:uuid"`
	TicketPricingID    *uuid.UUID          `gorm:"column:ticket_pricing_id;type:uuid"`
	FeeScheduleRangeID *uuid.UUID          `gorm:"column:fee_schedule_range_id;type:uuid"`
	HoldID             *uuid.UUID          `gorm:"column:hold_id;type:uuid"`
	CodeID             *uuid.UUID          `gorm:"column:code_id;type:uuid"`
	EventID            *uuid.UUID          `gorm:"column:event_id;type:uuid"`
	ParentID           *uuid.UUID          `gorm:"column:parent_id;type:uuid"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// RemainingQuantity is the number of units not yet refunded.
func (i OrderItem) RemainingQuantity() int64 {
	return i.Quantity - i.RefundedQuantity
}

// TotalInCents is the line total over unrefunded units.
func (i OrderItem) TotalInCents() int64 {
	return i.UnitPriceInCents * i.RemainingQuantity()
}
