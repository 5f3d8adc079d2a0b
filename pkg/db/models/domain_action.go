package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eventtix-backend/pkg/enums"
)

// DomainAction is a unit of async work picked up by an external worker.
type DomainAction struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	DomainEventID *uuid.UUID               `gorm:"column:domain_event_id;type:uuid"`
	ActionType    enums.DomainActionType   `gorm:"column:action_type;type:text;not null"`
	Payload       json.RawMessage          `gorm:"column:payload;type:jsonb;not null"`
	MainTable     enums.Table              `gorm:"column:main_table;type:text;not null"`
	MainID        *uuid.UUID               `gorm:"column:main_id;type:uuid"`
	ScheduledAt   time.Time                `gorm:"column:scheduled_at;not null"`
	ExpiresAt     time.Time                `gorm:"column:expires_at;not null"`
	Status        enums.DomainActionStatus `gorm:"column:status;type:text;not null;default:'Pending'"`
	AttemptCount  int                      `gorm:"column:attempt_count;not null;default:0"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *DomainAction) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
