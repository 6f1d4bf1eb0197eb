package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"crm-backend/internal/domains/importer/mapper"
	"crm-backend/internal/domains/importer/model"
)

// Processor applies one batch of rows inside a single transaction. A batch
// either commits whole or leaves no trace, so a retried batch task starts
// from the same database state as the first attempt.
type Processor struct {
	decoder RowDecoder
	uow     UnitOfWork
}

func NewProcessor(decoder RowDecoder, uow UnitOfWork) *Processor {
	return &Processor{decoder: decoder, uow: uow}
}

// ProcessBatch applies data rows [startRow, endRow] of an import. It returns
// whether this batch observed the import reach its total row count, which is
// how exactly one concurrent batch handler learns it should finalize.
func (p *Processor) ProcessBatch(ctx context.Context, imp *model.Import, startRow, endRow int) (bool, error) {
	set, err := importersFor(imp.Type)
	if err != nil {
		return false, err
	}

	// Reading the file happens outside the transaction: the decoder is
	// restartable and holding a tx open across object storage reads would
	// pin a connection for no benefit.
	rows, err := p.decoder.ReadRows(ctx, imp.StoredPath, startRow, endRow)
	if err != nil {
		return false, fmt.Errorf("read rows %d-%d: %w", startRow, endRow, err)
	}

	completed := false
	err = p.uow.WithinBatch(ctx, func(store Store) error {
		var (
			processed int
			success   int
			rowErrors []model.RowError
		)

		for i, row := range rows {
			rowIndex := startRow + i
			fields := mapper.MapRow(row)
			if fields.AllBlank() {
				continue
			}

			if rowErr, err := p.processRow(ctx, store, set, fields); err != nil {
				return fmt.Errorf("row %d: %w", rowIndex, err)
			} else if rowErr != nil {
				rowErrors = append(rowErrors, model.RowError{
					ID:        uuid.New(),
					ImportID:  imp.ID,
					RowIndex:  rowIndex,
					Kind:      rowErr.Kind,
					Message:   rowErr.Message,
					CreatedAt: time.Now(),
				})
				processed++
				continue
			} else {
				processed++
				success++
			}
		}

		if len(rowErrors) > 0 {
			if err := store.Imports().AppendRowErrors(ctx, imp.ID, rowErrors); err != nil {
				return fmt.Errorf("record row errors: %w", err)
			}
		}

		processedTotal, totalRows, err := store.Imports().AddProgress(ctx, imp.ID, processed, success, processed-success)
		if err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
		completed = totalRows != nil && processedTotal >= *totalRows
		return nil
	})
	if err != nil {
		return false, err
	}

	log.Debug().
		Str("import_id", imp.ID.String()).
		Int("start_row", startRow).
		Int("end_row", endRow).
		Bool("completed", completed).
		Msg("Import batch processed")

	return completed, nil
}

// processRow validates every participating kind before applying any of them,
// then applies the primary first so secondaries can attach to its customer.
// A *model.RowValidationError is returned as a recorded row error; any other
// error aborts the batch.
func (p *Processor) processRow(ctx context.Context, store Store, set importerSet, fields mapper.Fields) (*model.RowValidationError, error) {
	participating := participants(set, fields)

	for _, imp := range participating {
		if err := imp.Validate(fields); err != nil {
			if rowErr, ok := model.AsRowValidationError(err); ok {
				return rowErr, nil
			}
			return nil, err
		}
	}

	var owner *uuid.UUID
	for _, imp := range participating {
		result, err := imp.Apply(ctx, store, fields, owner)
		if err != nil {
			if rowErr, ok := model.AsRowValidationError(err); ok {
				return rowErr, nil
			}
			return nil, err
		}
		if imp.Kind() == model.KindCustomer {
			id := result.ID
			owner = &id
		}
	}

	return nil, nil
}
