package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/enums"
)

// DomainEvent is an append-only audit entry, relayed to Pub/Sub by the
// outbox publisher.
type DomainEvent struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	EventType    enums.DomainEventType `gorm:"column:event_type;type:text;not null"`
	DisplayText  string                `gorm:"column:display_text;type:text;not null"`
	MainTable    enums.Table           `gorm:"column:main_table;type:text;not null"`
	MainID       *uuid.UUID            `gorm:"column:main_id;type:uuid"`
	UserID       *uuid.UUID            `gorm:"column:user_id;type:uuid"`
	EventData    json.RawMessage       `gorm:"column:event_data;type:jsonb"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	PublishedAt  *time.Time            `gorm:"column:published_at"`
	AttemptCount int                   `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string               `gorm:"column:last_error"`
}

func (e *DomainEvent) BeforeCreate(tx *gorm.DB) error {
	assignID(&e.ID)
	return nil
}
