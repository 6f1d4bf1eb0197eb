package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerModel "crm-backend/internal/domains/customer/model"
	"crm-backend/internal/domains/importer/model"
)

func newTestImport(importType model.ImportType, status model.Status) *model.Import {
	return &model.Import{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		StoredPath: "imports/test.xlsx",
		Type:       importType,
		Status:     status,
	}
}

func TestAnalyzeCustomerImport(t *testing.T) {
	uow := newFakeUnitOfWork()
	uow.store.customers.customers = append(uow.store.customers.customers, &customerModel.Customer{
		ID:    uuid.New(),
		Siret: strPtr("73282932000074"),
		Name:  "Acme SARL",
	})

	decoder := &fakeDecoder{rows: []Row{
		{"Raison Sociale": "Acme SARL", "SIRET": "73282932000074"}, // update by siret
		{"Raison Sociale": "Nouvelle Societe"},                     // creation
		{"Raison Sociale": "", "SIRET": ""},                        // blank, skipped
		{"SIRET": "99999999999999"},                                // missing name, error row
	}}

	analyzer := NewAnalyzer(decoder, uow, 2, 1000)
	impact, err := analyzer.Analyze(context.Background(), newTestImport(model.TypeCustomer, model.StatusAnalyzing))
	require.NoError(t, err)

	assert.Equal(t, 4, impact.FileRows)
	assert.Equal(t, 3, impact.TotalRows, "blank row does not count")
	assert.Equal(t, 1, impact.ErrorRows)
	assert.Equal(t, 1, impact.Updates[model.KindCustomer])
	assert.Equal(t, 1, impact.Creations[model.KindCustomer])
}

func TestAnalyzeDoesNotWrite(t *testing.T) {
	uow := newFakeUnitOfWork()
	decoder := &fakeDecoder{rows: []Row{
		{"Raison Sociale": "Nouvelle Societe"},
	}}

	analyzer := NewAnalyzer(decoder, uow, 100, 1000)
	impact, err := analyzer.Analyze(context.Background(), newTestImport(model.TypeCustomer, model.StatusAnalyzing))
	require.NoError(t, err)

	assert.Equal(t, 1, impact.Creations[model.KindCustomer])
	assert.Empty(t, uow.store.customers.customers, "analysis must not create records")
}

func TestAnalyzeRejectsOversizedFile(t *testing.T) {
	rows := make([]Row, 11)
	for i := range rows {
		rows[i] = Row{"Raison Sociale": "X"}
	}
	decoder := &fakeDecoder{rows: rows}

	analyzer := NewAnalyzer(decoder, newFakeUnitOfWork(), 100, 10)
	_, err := analyzer.Analyze(context.Background(), newTestImport(model.TypeCustomer, model.StatusAnalyzing))
	assert.ErrorIs(t, err, model.ErrFileTooLarge)
}

func TestAnalyzeFullImport(t *testing.T) {
	uow := newFakeUnitOfWork()
	decoder := &fakeDecoder{rows: []Row{
		// Customer + contact + energy on one row.
		{
			"Raison Sociale": "Acme SARL",
			"Nom":            "Martin",
			"Prénom":         "Paul",
			"PDL/PCE":        "14862390571634",
			"Type":           "elec",
		},
		// Customer only; secondaries absent so they do not participate.
		{"Raison Sociale": "Autre SAS"},
		// Energy data present but with a bogus type: the whole row is one
		// error and contributes no creations at all.
		{
			"Raison Sociale": "Troisieme SARL",
			"PDL/PCE":        "20000000000000",
			"Type":           "nuclear",
		},
	}}

	analyzer := NewAnalyzer(decoder, uow, 100, 1000)
	impact, err := analyzer.Analyze(context.Background(), newTestImport(model.TypeFull, model.StatusAnalyzing))
	require.NoError(t, err)

	assert.Equal(t, 3, impact.TotalRows)
	assert.Equal(t, 1, impact.ErrorRows)
	assert.Equal(t, 2, impact.Creations[model.KindCustomer])
	assert.Equal(t, 1, impact.Creations[model.KindContact])
	assert.Equal(t, 1, impact.Creations[model.KindEnergy])
	assert.Equal(t, 3, impact.TotalCreations())
}

func TestAnalyzeUnknownType(t *testing.T) {
	analyzer := NewAnalyzer(&fakeDecoder{}, newFakeUnitOfWork(), 100, 1000)
	_, err := analyzer.Analyze(context.Background(), newTestImport("bogus", model.StatusAnalyzing))
	assert.ErrorIs(t, err, model.ErrUnknownImportType)
}
