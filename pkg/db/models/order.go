package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/enums"
)

// Order is a cart while Draft and a purchase record afterwards. Every
// mutating write is conditioned on Version.
type Order struct {
	ID                  uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	UserID              uuid.UUID                  `gorm:"column:user_id;type:uuid;not null"`
	OnBehalfOfUserID    *uuid.UUID                 `gorm:"column:on_behalf_of_user_id;type:uuid"`
	Status              enums.OrderStatus          `gorm:"column:status;type:text;not null;default:'Draft'"`
	OrderType           enums.OrderType            `gorm:"column:order_type;type:text;not null;default:'Cart'"`
	OrderDate           time.Time                  `gorm:"column:order_date;not null"`
	Version             int64                      `gorm:"column:version;not null;default:0"`
	ExpiresAt           *time.Time                 `gorm:"column:expires_at"`
	BoxOfficePricing    bool                       `gorm:"column:box_office_pricing;not null;default:false"`
	PaidAt              *time.Time                 `gorm:"column:paid_at"`
	CheckoutURL         *string                    `gorm:"column:checkout_url"`
	CheckoutURLExpires  *time.Time                 `gorm:"column:checkout_url_expires"`
	CreateUserAgent     *string                    `gorm:"column:create_user_agent"`
	PurchaseUserAgent   *string                    `gorm:"column:purchase_user_agent"`
	ExternalPaymentType *enums.ExternalPaymentType `gorm:"column:external_payment_type;type:text"`
	Note                *string                    `gorm:"column:note"`
	CreatedAt           time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// Number is the human facing order number: the last 8 characters of the id.
func (o Order) Number() string {
	id := o.ID.String()
	return id[len(id)-8:]
}

// Owner is the user that receives purchased tickets.
func (o Order) Owner() uuid.UUID {
	if o.OnBehalfOfUserID != nil {
		return *o.OnBehalfOfUserID
	}
	return o.UserID
}
