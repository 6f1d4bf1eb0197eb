package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerModel "crm-backend/internal/domains/customer/model"
	"crm-backend/internal/domains/importer/model"
)

func seedProcessingImport(uow *fakeUnitOfWork, importType model.ImportType, fileRows, totalRows int) *model.Import {
	imp := newTestImport(importType, model.StatusProcessing)
	imp.FileRows = &fileRows
	imp.TotalRows = &totalRows
	uow.store.imports.imports[imp.ID] = imp
	return imp
}

func TestProcessBatchAppliesRows(t *testing.T) {
	uow := newFakeUnitOfWork()
	existing := &customerModel.Customer{
		ID:    uuid.New(),
		Siret: strPtr("73282932000074"),
		Name:  "Old Name",
	}
	existing.InitSync(time.Now())
	uow.store.customers.customers = append(uow.store.customers.customers, existing)

	decoder := &fakeDecoder{rows: []Row{
		{"Raison Sociale": "Acme SARL", "SIRET": "73282932000074", "Ville": "Lyon"},
		{"Raison Sociale": "Nouvelle Societe"},
		{"Raison Sociale": ""},              // blank
		{"SIRET": "55555555555555"},         // missing name -> error row
	}}

	imp := seedProcessingImport(uow, model.TypeCustomer, 4, 3)
	processor := NewProcessor(decoder, uow)

	completed, err := processor.ProcessBatch(context.Background(), imp, 1, 4)
	require.NoError(t, err)
	assert.True(t, completed, "all countable rows processed in one batch")

	stored, err := uow.store.imports.GetByID(context.Background(), imp.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.ProcessedRows)
	assert.Equal(t, 2, stored.SuccessRows)
	assert.Equal(t, 1, stored.ErrorRows)

	// The existing customer was updated in place, the new one created.
	require.Len(t, uow.store.customers.customers, 2)
	updated, err := uow.store.customers.FindBySiret(context.Background(), "73282932000074")
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "Acme SARL", updated.Name)
	require.NotNil(t, updated.City)
	assert.Equal(t, "Lyon", *updated.City)
	assert.Equal(t, 2, updated.Version, "update bumps the sync version")

	// The rejected row is recorded with its position.
	rowErrors, _, err := uow.store.imports.ListRowErrors(context.Background(), imp.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, rowErrors, 1)
	assert.Equal(t, 4, rowErrors[0].RowIndex)
	assert.Equal(t, model.KindCustomer, rowErrors[0].Kind)
}

func TestProcessBatchPartialFileRange(t *testing.T) {
	uow := newFakeUnitOfWork()
	decoder := &fakeDecoder{rows: []Row{
		{"Raison Sociale": "A"},
		{"Raison Sociale": "B"},
		{"Raison Sociale": "C"},
		{"Raison Sociale": "D"},
	}}

	imp := seedProcessingImport(uow, model.TypeCustomer, 4, 4)
	processor := NewProcessor(decoder, uow)

	completed, err := processor.ProcessBatch(context.Background(), imp, 1, 2)
	require.NoError(t, err)
	assert.False(t, completed, "half the rows remain")

	completed, err = processor.ProcessBatch(context.Background(), imp, 3, 4)
	require.NoError(t, err)
	assert.True(t, completed)

	stored, err := uow.store.imports.GetByID(context.Background(), imp.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.ProcessedRows)
	assert.Equal(t, 4, stored.SuccessRows)
	assert.Len(t, uow.store.customers.customers, 4)
}

func TestProcessBatchRollsBackOnSystemicError(t *testing.T) {
	uow := newFakeUnitOfWork()
	decoder := &fakeDecoder{rows: []Row{
		{"Raison Sociale": "A"},
		{"Raison Sociale": "B"},
	}}

	imp := seedProcessingImport(uow, model.TypeCustomer, 2, 2)

	// Wrap the unit of work so the batch fails after fn ran, simulating a
	// commit-time failure.
	failing := &failingUnitOfWork{inner: uow, failures: 1}
	processor := NewProcessor(decoder, failing)

	_, err := processor.ProcessBatch(context.Background(), imp, 1, 2)
	require.Error(t, err)

	stored, getErr := uow.store.imports.GetByID(context.Background(), imp.ID)
	require.NoError(t, getErr)
	assert.Equal(t, 0, stored.ProcessedRows, "failed batch leaves no progress")
	assert.Empty(t, uow.store.customers.customers, "failed batch leaves no rows")

	// The retry starts from clean state and succeeds with exact counters.
	completed, err := processor.ProcessBatch(context.Background(), imp, 1, 2)
	require.NoError(t, err)
	assert.True(t, completed)

	stored, getErr = uow.store.imports.GetByID(context.Background(), imp.ID)
	require.NoError(t, getErr)
	assert.Equal(t, 2, stored.ProcessedRows)
	assert.Equal(t, 2, stored.SuccessRows)
	assert.Len(t, uow.store.customers.customers, 2)
}

// failingUnitOfWork fails the first n batches after running them, restoring
// state like a rolled back transaction.
type failingUnitOfWork struct {
	inner    *fakeUnitOfWork
	failures int
}

func (u *failingUnitOfWork) View() Store { return u.inner.View() }

func (u *failingUnitOfWork) WithinBatch(ctx context.Context, fn func(Store) error) error {
	return u.inner.WithinBatch(ctx, func(s Store) error {
		if err := fn(s); err != nil {
			return err
		}
		if u.failures > 0 {
			u.failures--
			return errors.New("commit failed")
		}
		return nil
	})
}

func TestProcessBatchFullImportLinksOwner(t *testing.T) {
	uow := newFakeUnitOfWork()
	decoder := &fakeDecoder{rows: []Row{
		{
			"Raison Sociale": "Acme SARL",
			"Nom":            "Martin",
			"Prénom":         "Paul",
			"PDL/PCE":        "14862390571634",
			"Type":           "elec",
			"Fournisseur":    "EDF",
		},
	}}

	imp := seedProcessingImport(uow, model.TypeFull, 1, 1)
	processor := NewProcessor(decoder, uow)

	completed, err := processor.ProcessBatch(context.Background(), imp, 1, 1)
	require.NoError(t, err)
	assert.True(t, completed)

	require.Len(t, uow.store.customers.customers, 1)
	require.Len(t, uow.store.contacts.contacts, 1)
	require.Len(t, uow.store.energy.contracts, 1)

	customerID := uow.store.customers.customers[0].ID
	require.NotNil(t, uow.store.contacts.contacts[0].CustomerID)
	assert.Equal(t, customerID, *uow.store.contacts.contacts[0].CustomerID)
	require.NotNil(t, uow.store.energy.contracts[0].CustomerID)
	assert.Equal(t, customerID, *uow.store.energy.contracts[0].CustomerID)
}

func TestProcessBatchRetryAfterSuccessIsNotIdempotent(t *testing.T) {
	// A batch that committed and is then retried counts twice; dedup is the
	// queue's job, the pipeline only guarantees all-or-nothing per attempt.
	// This test pins down the committed-batch counters instead.
	uow := newFakeUnitOfWork()
	decoder := &fakeDecoder{rows: []Row{{"Raison Sociale": "A"}}}

	imp := seedProcessingImport(uow, model.TypeCustomer, 1, 1)
	processor := NewProcessor(decoder, uow)

	completed, err := processor.ProcessBatch(context.Background(), imp, 1, 1)
	require.NoError(t, err)
	assert.True(t, completed)

	stored, err := uow.store.imports.GetByID(context.Background(), imp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.ProcessedRows)
	assert.Equal(t, 1, stored.SuccessRows)
	assert.Equal(t, 0, stored.ErrorRows)
}

func TestBatchRanges(t *testing.T) {
	tests := []struct {
		name     string
		fileRows int
		pageSize int
		want     []BatchRange
	}{
		{"empty file", 0, 100, nil},
		{"single partial batch", 5, 100, []BatchRange{{1, 5}}},
		{"exact multiple", 200, 100, []BatchRange{{1, 100}, {101, 200}}},
		{"remainder batch", 250, 100, []BatchRange{{1, 100}, {101, 200}, {201, 250}}},
		{"page size one", 3, 1, []BatchRange{{1, 1}, {2, 2}, {3, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BatchRanges(tt.fileRows, tt.pageSize)
			assert.Equal(t, tt.want, got)

			// No gaps, no overlaps.
			next := 1
			for _, r := range got {
				assert.Equal(t, next, r.StartRow)
				assert.GreaterOrEqual(t, r.EndRow, r.StartRow)
				next = r.EndRow + 1
			}
			if tt.fileRows > 0 {
				assert.Equal(t, tt.fileRows+1, next)
			}
		})
	}
}
