package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TicketType groups interchangeable ticket instances for an event.
type TicketType struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	EventID        uuid.UUID `gorm:"column:event_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;type:text;not null"`
	LimitPerPerson int       `gorm:"column:limit_per_person;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *TicketType) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}
