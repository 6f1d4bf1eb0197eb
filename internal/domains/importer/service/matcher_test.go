package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contactModel "crm-backend/internal/domains/contact/model"
	customerModel "crm-backend/internal/domains/customer/model"
	energyModel "crm-backend/internal/domains/energy/model"
	"crm-backend/internal/domains/importer/mapper"
)

func strPtr(s string) *string { return &s }

func TestFindCustomerSiretHit(t *testing.T) {
	store := newFakeStore()
	existing := &customerModel.Customer{
		ID:    uuid.New(),
		Siret: strPtr("73282932000074"),
		Name:  "Acme SARL",
	}
	store.customers.customers = append(store.customers.customers, existing)

	fields := mapper.Fields{
		mapper.FieldSiret:       "73282932000074",
		mapper.FieldCompanyName: "A Completely Different Name",
	}

	found, err := findCustomer(context.Background(), store, fields)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, existing.ID, found.ID)

	// Siret decided; the name lookup must not have run.
	assert.Equal(t, 1, store.customers.siretCalls)
	assert.Equal(t, 0, store.customers.nameCalls)
}

func TestFindCustomerSiretMissIsAuthoritative(t *testing.T) {
	store := newFakeStore()
	// Same name exists, but under a different siret.
	store.customers.customers = append(store.customers.customers, &customerModel.Customer{
		ID:    uuid.New(),
		Siret: strPtr("11111111111111"),
		Name:  "Acme SARL",
	})

	fields := mapper.Fields{
		mapper.FieldSiret:       "73282932000074",
		mapper.FieldCompanyName: "Acme SARL",
	}

	found, err := findCustomer(context.Background(), store, fields)
	require.NoError(t, err)
	assert.Nil(t, found, "a present siret that misses must not fall back to the name")
	assert.Equal(t, 0, store.customers.nameCalls)
}

func TestFindCustomerNameFallback(t *testing.T) {
	store := newFakeStore()
	existing := &customerModel.Customer{ID: uuid.New(), Name: "Acme SARL"}
	store.customers.customers = append(store.customers.customers, existing)

	fields := mapper.Fields{mapper.FieldCompanyName: "acme sarl"}

	found, err := findCustomer(context.Background(), store, fields)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, existing.ID, found.ID)
	assert.Equal(t, 0, store.customers.siretCalls)
}

func TestFindCustomerNothingToMatchOn(t *testing.T) {
	store := newFakeStore()
	found, err := findCustomer(context.Background(), store, mapper.Fields{})
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFindContactEmailBeatsName(t *testing.T) {
	store := newFakeStore()
	byEmail := uuid.New()
	byName := uuid.New()
	store.contacts.contacts = append(store.contacts.contacts,
		&contactModel.Contact{ID: byEmail, LastName: "Martin", Email: strPtr("paul.martin@acme.fr")},
		&contactModel.Contact{ID: byName, LastName: "Durand", Email: strPtr("other@acme.fr")},
	)

	fields := mapper.Fields{
		mapper.FieldEmail:    "paul.martin@acme.fr",
		mapper.FieldLastName: "Durand",
	}

	found, err := findContact(context.Background(), store, fields)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, byEmail, found.ID)
}

func TestFindEnergyContractTriple(t *testing.T) {
	store := newFakeStore()
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	existing := &energyModel.Contract{
		ID:          uuid.New(),
		Code:        "14862390571634",
		Type:        energyModel.TypeGas,
		ContractEnd: &end,
	}
	store.energy.contracts = append(store.energy.contracts, existing)

	tests := []struct {
		name   string
		fields mapper.Fields
		wantID *uuid.UUID
	}{
		{
			name: "full triple match",
			fields: mapper.Fields{
				mapper.FieldEnergyCode:  "14862390571634",
				mapper.FieldEnergyType:  "gaz",
				mapper.FieldContractEnd: "31/12/2026",
			},
			wantID: &existing.ID,
		},
		{
			name: "same code different type",
			fields: mapper.Fields{
				mapper.FieldEnergyCode: "14862390571634",
				mapper.FieldEnergyType: "elec",
			},
			wantID: nil,
		},
		{
			name: "same code and type different renewal",
			fields: mapper.Fields{
				mapper.FieldEnergyCode:  "14862390571634",
				mapper.FieldEnergyType:  "gaz",
				mapper.FieldContractEnd: "31/12/2027",
			},
			wantID: nil,
		},
		{
			name:   "no code",
			fields: mapper.Fields{mapper.FieldEnergyType: "gaz"},
			wantID: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := findEnergyContract(context.Background(), store, tt.fields)
			require.NoError(t, err)
			if tt.wantID == nil {
				assert.Nil(t, found)
			} else {
				require.NotNil(t, found)
				assert.Equal(t, *tt.wantID, found.ID)
			}
		})
	}
}
