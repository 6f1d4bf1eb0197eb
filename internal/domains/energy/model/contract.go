package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"crm-backend/internal/shared"
)

// Energy types accepted on import rows.
const (
	TypeElectricity = "elec"
	TypeGas         = "gas"
)

// Contract is an energy supply contract. The (code, type, contract_end)
// triple is the unique business identifier: the same delivery point can
// appear once per energy type and renewal date.
type Contract struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	CustomerID    *uuid.UUID       `json:"customer_id,omitempty" db:"customer_id"`
	Code          string           `json:"code" db:"code"` // PDL (elec) or PCE (gas) delivery point
	Type          string           `json:"type" db:"type"`
	Provider      *string          `json:"provider,omitempty" db:"provider"`
	ContractEnd   *time.Time       `json:"contract_end,omitempty" db:"contract_end"`
	MonthlyBudget *decimal.Decimal `json:"monthly_budget,omitempty" db:"monthly_budget"`

	shared.SyncMetadata
}

// NormalizeType maps the spellings seen in import files onto the canonical
// energy type constants. Returns false for anything unrecognized.
func NormalizeType(raw string) (string, bool) {
	switch raw {
	case "elec", "electricite", "electricity", "e":
		return TypeElectricity, true
	case "gas", "gaz", "g":
		return TypeGas, true
	}
	return "", false
}
