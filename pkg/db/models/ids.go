package models

import (
	"github.com/google/uuid"
)

// assignID fills a nil primary key before insert so rows get the same kind of
// identifier on every driver.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
