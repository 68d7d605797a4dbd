package model

import "github.com/google/uuid"

// ensureID fills an empty UUID primary key before insert.
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
