package model

import (
	"github.com/google/uuid"

	"crm-backend/internal/shared"
)

// Contact is a person attached to a customer. Email is the unique business
// identifier; first+last name is the fallback natural key.
type Contact struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty" db:"customer_id"`
	FirstName  *string    `json:"first_name,omitempty" db:"first_name"`
	LastName   string     `json:"last_name" db:"last_name"`
	Email      *string    `json:"email,omitempty" db:"email"`
	Phone      *string    `json:"phone,omitempty" db:"phone"`
	Mobile     *string    `json:"mobile,omitempty" db:"mobile"`
	Role       *string    `json:"role,omitempty" db:"role"`

	shared.SyncMetadata
}
