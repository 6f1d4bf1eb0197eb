package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	contactModel "crm-backend/internal/domains/contact/model"
	customerModel "crm-backend/internal/domains/customer/model"
	energyModel "crm-backend/internal/domains/energy/model"
	"crm-backend/internal/domains/importer/mapper"
	"crm-backend/internal/domains/importer/model"
)

// EntityImporter carries the per-kind row logic shared by analysis and
// processing: presence/validation checks, the read-only match decision, and
// the create-or-update application.
type EntityImporter interface {
	Kind() model.EntityKind

	// Present reports whether the row carries any data for this kind.
	// Secondary importers of a full import skip rows where it is false.
	Present(fields mapper.Fields) bool

	// Validate checks the kind's minimum required fields. Failures are
	// *model.RowValidationError values, recorded rather than raised.
	Validate(fields mapper.Fields) error

	// Match runs the prioritized matching strategy without writing.
	Match(ctx context.Context, store Store, fields mapper.Fields) (model.MatchResult, error)

	// Apply creates or updates the target entity. owner carries the
	// customer resolved earlier in the same row, for attaching contacts
	// and contracts on full imports.
	Apply(ctx context.Context, store Store, fields mapper.Fields, owner *uuid.UUID) (ApplyResult, error)
}

// ApplyResult reports what Apply did to the target entity.
type ApplyResult struct {
	ID      uuid.UUID
	Created bool
}

func optional(fields mapper.Fields, field mapper.LogicalField) *string {
	if v := fields.Get(field); v != "" {
		return &v
	}
	return nil
}

func setIfPresent(dst **string, fields mapper.Fields, field mapper.LogicalField) {
	if v := fields.Get(field); v != "" {
		*dst = &v
	}
}

var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"01/2006",
}

func parseDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

// ---------------------------------------------------------------------------
// Customer
// ---------------------------------------------------------------------------

type customerImporter struct{}

func (customerImporter) Kind() model.EntityKind { return model.KindCustomer }

func (customerImporter) Present(fields mapper.Fields) bool {
	return fields.Has(mapper.FieldCompanyName) || fields.Has(mapper.FieldSiret)
}

func (customerImporter) Validate(fields mapper.Fields) error {
	if !fields.Has(mapper.FieldCompanyName) {
		return model.NewRowValidationError(model.KindCustomer, "missing required field %q", mapper.FieldCompanyName)
	}
	return nil
}

func (customerImporter) Match(ctx context.Context, store Store, fields mapper.Fields) (model.MatchResult, error) {
	existing, err := findCustomer(ctx, store, fields)
	if err != nil {
		return model.MatchResult{}, err
	}
	if existing != nil {
		return matchResult(&existing.ID), nil
	}
	return matchResult(nil), nil
}

func (customerImporter) Apply(ctx context.Context, store Store, fields mapper.Fields, _ *uuid.UUID) (ApplyResult, error) {
	existing, err := findCustomer(ctx, store, fields)
	if err != nil {
		return ApplyResult{}, err
	}

	now := time.Now()

	if existing != nil {
		applyCustomerFields(existing, fields)
		existing.TouchSync(now)
		if err := store.Customers().Update(ctx, existing); err != nil {
			return ApplyResult{}, err
		}
		return ApplyResult{ID: existing.ID}, nil
	}

	created := &customerModel.Customer{
		ID:   uuid.New(),
		Name: fields.Get(mapper.FieldCompanyName),
	}
	applyCustomerFields(created, fields)
	created.InitSync(now)
	if err := store.Customers().Create(ctx, created); err != nil {
		return ApplyResult{}, err
	}
	return ApplyResult{ID: created.ID, Created: true}, nil
}

func applyCustomerFields(c *customerModel.Customer, fields mapper.Fields) {
	if name := fields.Get(mapper.FieldCompanyName); name != "" {
		c.Name = name
	}
	setIfPresent(&c.Siret, fields, mapper.FieldSiret)
	setIfPresent(&c.Address, fields, mapper.FieldAddress)
	setIfPresent(&c.PostalCode, fields, mapper.FieldPostalCode)
	setIfPresent(&c.City, fields, mapper.FieldCity)
	setIfPresent(&c.Phone, fields, mapper.FieldPhone)
	setIfPresent(&c.Email, fields, mapper.FieldEmail)
	setIfPresent(&c.CommercialEmail, fields, mapper.FieldCommercialEmail)
}

// ---------------------------------------------------------------------------
// Contact
// ---------------------------------------------------------------------------

type contactImporter struct{}

func (contactImporter) Kind() model.EntityKind { return model.KindContact }

func (contactImporter) Present(fields mapper.Fields) bool {
	return fields.Has(mapper.FieldLastName) || fields.Has(mapper.FieldFirstName)
}

func (contactImporter) Validate(fields mapper.Fields) error {
	if !fields.Has(mapper.FieldLastName) {
		return model.NewRowValidationError(model.KindContact, "missing required field %q", mapper.FieldLastName)
	}
	return nil
}

func (contactImporter) Match(ctx context.Context, store Store, fields mapper.Fields) (model.MatchResult, error) {
	existing, err := findContact(ctx, store, fields)
	if err != nil {
		return model.MatchResult{}, err
	}
	if existing != nil {
		return matchResult(&existing.ID), nil
	}
	return matchResult(nil), nil
}

func (contactImporter) Apply(ctx context.Context, store Store, fields mapper.Fields, owner *uuid.UUID) (ApplyResult, error) {
	existing, err := findContact(ctx, store, fields)
	if err != nil {
		return ApplyResult{}, err
	}

	now := time.Now()

	if existing != nil {
		applyContactFields(existing, fields)
		if existing.CustomerID == nil {
			existing.CustomerID = owner
		}
		existing.TouchSync(now)
		if err := store.Contacts().Update(ctx, existing); err != nil {
			return ApplyResult{}, err
		}
		return ApplyResult{ID: existing.ID}, nil
	}

	created := &contactModel.Contact{
		ID:         uuid.New(),
		CustomerID: owner,
		LastName:   fields.Get(mapper.FieldLastName),
	}
	applyContactFields(created, fields)
	created.InitSync(now)
	if err := store.Contacts().Create(ctx, created); err != nil {
		return ApplyResult{}, err
	}
	return ApplyResult{ID: created.ID, Created: true}, nil
}

func applyContactFields(c *contactModel.Contact, fields mapper.Fields) {
	if lastName := fields.Get(mapper.FieldLastName); lastName != "" {
		c.LastName = lastName
	}
	setIfPresent(&c.FirstName, fields, mapper.FieldFirstName)
	setIfPresent(&c.Email, fields, mapper.FieldEmail)
	setIfPresent(&c.Phone, fields, mapper.FieldPhone)
	setIfPresent(&c.Mobile, fields, mapper.FieldMobile)
	setIfPresent(&c.Role, fields, mapper.FieldRole)
}

// ---------------------------------------------------------------------------
// Energy contract
// ---------------------------------------------------------------------------

type energyImporter struct{}

func (energyImporter) Kind() model.EntityKind { return model.KindEnergy }

func (energyImporter) Present(fields mapper.Fields) bool {
	return fields.Has(mapper.FieldEnergyCode)
}

func (energyImporter) Validate(fields mapper.Fields) error {
	if !fields.Has(mapper.FieldEnergyCode) {
		return model.NewRowValidationError(model.KindEnergy, "missing required field %q", mapper.FieldEnergyCode)
	}

	rawType := fields.Get(mapper.FieldEnergyType)
	if rawType == "" {
		return model.NewRowValidationError(model.KindEnergy, "missing required field %q", mapper.FieldEnergyType)
	}
	if _, ok := energyModel.NormalizeType(strings.ToLower(rawType)); !ok {
		return model.NewRowValidationError(model.KindEnergy, "unknown energy type %q", rawType)
	}

	if raw := fields.Get(mapper.FieldContractEnd); raw != "" {
		if _, err := parseDate(raw); err != nil {
			return model.NewRowValidationError(model.KindEnergy, "invalid contract end date %q", raw)
		}
	}

	if raw := fields.Get(mapper.FieldMonthlyBudget); raw != "" {
		if _, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ".")); err != nil {
			return model.NewRowValidationError(model.KindEnergy, "invalid monthly budget %q", raw)
		}
	}

	return nil
}

func (energyImporter) Match(ctx context.Context, store Store, fields mapper.Fields) (model.MatchResult, error) {
	existing, err := findEnergyContract(ctx, store, fields)
	if err != nil {
		return model.MatchResult{}, err
	}
	if existing != nil {
		return matchResult(&existing.ID), nil
	}
	return matchResult(nil), nil
}

func (energyImporter) Apply(ctx context.Context, store Store, fields mapper.Fields, owner *uuid.UUID) (ApplyResult, error) {
	existing, err := findEnergyContract(ctx, store, fields)
	if err != nil {
		return ApplyResult{}, err
	}

	now := time.Now()

	if existing != nil {
		applyContractFields(existing, fields)
		if existing.CustomerID == nil {
			existing.CustomerID = owner
		}
		existing.TouchSync(now)
		if err := store.Energy().Update(ctx, existing); err != nil {
			return ApplyResult{}, err
		}
		return ApplyResult{ID: existing.ID}, nil
	}

	contractType, _ := energyModel.NormalizeType(strings.ToLower(fields.Get(mapper.FieldEnergyType)))
	created := &energyModel.Contract{
		ID:         uuid.New(),
		CustomerID: owner,
		Code:       fields.Get(mapper.FieldEnergyCode),
		Type:       contractType,
	}
	applyContractFields(created, fields)
	created.InitSync(now)
	if err := store.Energy().Create(ctx, created); err != nil {
		return ApplyResult{}, err
	}
	return ApplyResult{ID: created.ID, Created: true}, nil
}

func applyContractFields(c *energyModel.Contract, fields mapper.Fields) {
	setIfPresent(&c.Provider, fields, mapper.FieldProvider)

	if raw := fields.Get(mapper.FieldContractEnd); raw != "" {
		if parsed, err := parseDate(raw); err == nil {
			c.ContractEnd = &parsed
		}
	}

	if raw := fields.Get(mapper.FieldMonthlyBudget); raw != "" {
		if parsed, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ".")); err == nil {
			c.MonthlyBudget = &parsed
		}
	}
}
