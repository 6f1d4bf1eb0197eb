package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	contactModel "crm-backend/internal/domains/contact/model"
	customerModel "crm-backend/internal/domains/customer/model"
	energyModel "crm-backend/internal/domains/energy/model"
	"crm-backend/internal/domains/importer/mapper"
	"crm-backend/internal/domains/importer/model"
)

// Record matching: prioritized key strategies per entity kind. A present
// unique business identifier is authoritative: when it is set, the lookup
// result decides, and a miss means a new record without consulting the
// fallback natural key. Only rows without a business identifier fall
// through to the fallback lookup.

func findCustomer(ctx context.Context, store Store, fields mapper.Fields) (*customerModel.Customer, error) {
	if siret := fields.Get(mapper.FieldSiret); siret != "" {
		return store.Customers().FindBySiret(ctx, siret)
	}
	if name := fields.Get(mapper.FieldCompanyName); name != "" {
		return store.Customers().FindByName(ctx, name)
	}
	return nil, nil
}

func findContact(ctx context.Context, store Store, fields mapper.Fields) (*contactModel.Contact, error) {
	if email := fields.Get(mapper.FieldEmail); email != "" {
		return store.Contacts().FindByEmail(ctx, email)
	}
	if lastName := fields.Get(mapper.FieldLastName); lastName != "" {
		return store.Contacts().FindByFullName(ctx, fields.Get(mapper.FieldFirstName), lastName)
	}
	return nil, nil
}

func findEnergyContract(ctx context.Context, store Store, fields mapper.Fields) (*energyModel.Contract, error) {
	code := fields.Get(mapper.FieldEnergyCode)
	if code == "" {
		return nil, nil
	}

	contractType, ok := energyModel.NormalizeType(strings.ToLower(fields.Get(mapper.FieldEnergyType)))
	if !ok {
		return nil, nil
	}

	var contractEnd *time.Time
	if raw := fields.Get(mapper.FieldContractEnd); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return nil, nil
		}
		contractEnd = &parsed
	}

	return store.Energy().FindByTriple(ctx, code, contractType, contractEnd)
}

// matchResult converts a lookup outcome into the matcher verdict.
func matchResult(existingID *uuid.UUID) model.MatchResult {
	if existingID != nil {
		return model.MatchResult{ExistingID: existingID}
	}
	return model.MatchResult{IsNew: true}
}
