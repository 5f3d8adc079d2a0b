package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefundedTicket tracks the ticket and fee refund of one physical ticket on
// one order item. A resold ticket gets a fresh record for its new line.
type RefundedTicket struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderItemID      uuid.UUID  `gorm:"column:order_item_id;type:uuid;not null;uniqueIndex:ux_refunded_tickets_item_instance"`
	TicketInstanceID uuid.UUID  `gorm:"column:ticket_instance_id;type:uuid;not null;uniqueIndex:ux_refunded_tickets_item_instance"`
	TicketRefundedAt *time.Time `gorm:"column:ticket_refunded_at"`
	FeeRefundedAt    *time.Time `gorm:"column:fee_refunded_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *RefundedTicket) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}
