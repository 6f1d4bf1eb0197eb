package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"crm-backend/internal/domains/importer/mapper"
	"crm-backend/internal/domains/importer/model"
)

// Analyzer runs the read-only analysis phase: it walks every data row,
// replays the matching decisions without writing, and produces the impact
// preview shown to the user before confirmation.
type Analyzer struct {
	decoder  RowDecoder
	uow      UnitOfWork
	pageSize int
	maxRows  int
}

func NewAnalyzer(decoder RowDecoder, uow UnitOfWork, pageSize, maxRows int) *Analyzer {
	return &Analyzer{
		decoder:  decoder,
		uow:      uow,
		pageSize: pageSize,
		maxRows:  maxRows,
	}
}

// Analyze computes the impact preview for an import. Errors returned here
// are structural and fail the whole import; per-row problems only bump the
// impact's error counter.
//
// Analysis is a pure read: nothing it does survives except the returned
// impact, and re-running it replaces the previous result wholesale.
func (a *Analyzer) Analyze(ctx context.Context, imp *model.Import) (*model.AnalysisImpact, error) {
	fileRows, err := a.decoder.TotalRows(ctx, imp.StoredPath)
	if err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}
	if fileRows > a.maxRows {
		return nil, fmt.Errorf("%w: %d rows, limit %d", model.ErrFileTooLarge, fileRows, a.maxRows)
	}

	set, err := importersFor(imp.Type)
	if err != nil {
		return nil, err
	}

	store := a.uow.View()
	impact := model.NewAnalysisImpact()
	impact.FileRows = fileRows

	for start := 1; start <= fileRows; start += a.pageSize {
		end := start + a.pageSize - 1
		if end > fileRows {
			end = fileRows
		}

		rows, err := a.decoder.ReadRows(ctx, imp.StoredPath, start, end)
		if err != nil {
			return nil, fmt.Errorf("read rows %d-%d: %w", start, end, err)
		}

		for _, row := range rows {
			fields := mapper.MapRow(row)
			if fields.AllBlank() {
				continue
			}
			impact.TotalRows++

			if err := a.analyzeRow(ctx, store, set, fields, impact); err != nil {
				return nil, err
			}
		}
	}

	log.Info().
		Str("import_id", imp.ID.String()).
		Int("file_rows", impact.FileRows).
		Int("total_rows", impact.TotalRows).
		Int("error_rows", impact.ErrorRows).
		Msg("Import analysis computed")

	return impact, nil
}

// analyzeRow replays one row's decisions. Validation for every participating
// kind runs before any matching, so a row that would be rejected during
// processing contributes exactly one error and no creation or update counts.
func (a *Analyzer) analyzeRow(ctx context.Context, store Store, set importerSet, fields mapper.Fields, impact *model.AnalysisImpact) error {
	participating := participants(set, fields)

	for _, imp := range participating {
		if err := imp.Validate(fields); err != nil {
			if _, ok := model.AsRowValidationError(err); ok {
				impact.ErrorRows++
				return nil
			}
			return err
		}
	}

	for _, imp := range participating {
		result, err := imp.Match(ctx, store, fields)
		if err != nil {
			return err
		}
		if result.IsNew {
			impact.AddCreation(imp.Kind())
		} else {
			impact.AddUpdate(imp.Kind())
		}
	}

	return nil
}

// participants selects the importers a row drives: always the primary,
// secondaries only when their data is present on the row.
func participants(set importerSet, fields mapper.Fields) []EntityImporter {
	out := []EntityImporter{set.primary}
	for _, secondary := range set.secondaries {
		if secondary.Present(fields) {
			out = append(out, secondary)
		}
	}
	return out
}
