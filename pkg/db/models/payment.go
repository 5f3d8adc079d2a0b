package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/enums"
)

// Payment is an append-only record of money moved against an order.
type Payment struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID             `gorm:"column:order_id;type:uuid;not null"`
	CreatedBy         uuid.UUID             `gorm:"column:created_by;type:uuid;not null"`
	Status            enums.PaymentStatus   `gorm:"column:status;type:text;not null"`
	PaymentMethod     enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null"`
	Provider          enums.PaymentProvider `gorm:"column:provider;type:text;not null"`
	ExternalReference *string               `gorm:"column:external_reference"`
	Amount            int64                 `gorm:"column:amount;not null"`
	ProviderData      json.RawMessage       `gorm:"column:provider_data;type:jsonb"`
	URLNonce          *string               `gorm:"column:url_nonce"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}
