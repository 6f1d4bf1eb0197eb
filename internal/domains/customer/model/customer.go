package model

import (
	"github.com/google/uuid"

	"crm-backend/internal/shared"
)

// Customer is a company record. SIRET is the unique business identifier;
// the company name is the fallback natural key used by the import matcher.
type Customer struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Siret           *string   `json:"siret,omitempty" db:"siret"`
	Name            string    `json:"name" db:"name"`
	Address         *string   `json:"address,omitempty" db:"address"`
	PostalCode      *string   `json:"postal_code,omitempty" db:"postal_code"`
	City            *string   `json:"city,omitempty" db:"city"`
	Phone           *string   `json:"phone,omitempty" db:"phone"`
	Email           *string   `json:"email,omitempty" db:"email"`
	CommercialEmail *string   `json:"commercial_email,omitempty" db:"commercial_email"`

	shared.SyncMetadata
}
