package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/enums"
)

type TicketTransfer struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	TicketInstanceID  uuid.UUID            `gorm:"column:ticket_instance_id;type:uuid;not null"`
	SourceUserID      uuid.UUID            `gorm:"column:source_user_id;type:uuid;not null"`
	DestinationUserID *uuid.UUID           `gorm:"column:destination_user_id;type:uuid"`
	Status            enums.TransferStatus `gorm:"column:status;type:text;not null;default:'Pending'"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *TicketTransfer) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}
