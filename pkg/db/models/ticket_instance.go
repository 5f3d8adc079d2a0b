package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/enums"
)

// TicketInstance is one sellable ticket. A Reserved instance whose
// ReservedUntil has passed is allocatable again.
type TicketInstance struct {
	ID               uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	TicketTypeID     uuid.UUID                  `gorm:"column:ticket_type_id;type:uuid;not null"`
	HoldID           *uuid.UUID                 `gorm:"column:hold_id;type:uuid"`
	OrderItemID      *uuid.UUID                 `gorm:"column:order_item_id;type:uuid"`
	OwnerUserID      *uuid.UUID                 `gorm:"column:owner_user_id;type:uuid"`
	Status           enums.TicketInstanceStatus `gorm:"column:status;type:text;not null;default:'Available'"`
	ReservedUntil    *time.Time                 `gorm:"column:reserved_until"`
	RedeemKey        *string                    `gorm:"column:redeem_key"`
	RedeemedAt       *time.Time                 `gorm:"column:redeemed_at"`
	RedeemedByUserID *uuid.UUID                 `gorm:"column:redeemed_by_user_id;type:uuid"`
	CreatedAt        time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *TicketInstance) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}
