package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"crm-backend/internal/domains/importer/model"
	"crm-backend/internal/domains/importer/service"
	"crm-backend/pkg/database"
)

type postgresRepository struct {
	db database.Querier
}

// NewRepository builds an import repository over a pool or a transaction.
func NewRepository(db database.Querier) service.ImportRepository {
	return &postgresRepository{db: db}
}

const importColumns = `id, user_id, original_filename, stored_path, type, status,
       file_rows, total_rows, processed_rows, success_rows, error_rows,
       analysis, created_at, started_at, completed_at`

func scanImport(row pgx.Row) (*model.Import, error) {
	var imp model.Import
	err := row.Scan(
		&imp.ID,
		&imp.UserID,
		&imp.OriginalFilename,
		&imp.StoredPath,
		&imp.Type,
		&imp.Status,
		&imp.FileRows,
		&imp.TotalRows,
		&imp.ProcessedRows,
		&imp.SuccessRows,
		&imp.ErrorRows,
		&imp.Analysis,
		&imp.CreatedAt,
		&imp.StartedAt,
		&imp.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrImportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan import: %w", err)
	}
	return &imp, nil
}

func (r *postgresRepository) Create(ctx context.Context, imp *model.Import) error {
	query := `
        INSERT INTO imports (
            id, user_id, original_filename, stored_path, type, status,
            processed_rows, success_rows, error_rows, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `

	_, err := r.db.Exec(ctx, query,
		imp.ID,
		imp.UserID,
		imp.OriginalFilename,
		imp.StoredPath,
		imp.Type,
		imp.Status,
		imp.ProcessedRows,
		imp.SuccessRows,
		imp.ErrorRows,
		imp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create import: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Import, error) {
	query := `SELECT ` + importColumns + ` FROM imports WHERE id = $1`
	return scanImport(r.db.QueryRow(ctx, query, id))
}

func (r *postgresRepository) list(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*model.Import, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM imports` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count imports: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM imports%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		importColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list imports: %w", err)
	}
	defer rows.Close()

	var imports []*model.Import
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, 0, err
		}
		imports = append(imports, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list imports: %w", err)
	}

	return imports, total, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.Import, int, error) {
	return r.list(ctx, ` WHERE user_id = $1`, []interface{}{userID}, limit, offset)
}

func (r *postgresRepository) ListAll(ctx context.Context, limit, offset int) ([]*model.Import, int, error) {
	return r.list(ctx, ``, nil, limit, offset)
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM import_row_errors WHERE import_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete import row errors: %w", err)
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM imports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete import: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrImportNotFound
	}
	return nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.Status) (bool, error) {
	if !model.CanTransition(from, to) {
		return false, model.TransitionError(from, to)
	}

	// started_at marks when work on the file began, i.e. the claim into
	// analyzing; the IS NULL guard keeps the first stamp across later phases.
	query := `
        UPDATE imports
        SET status = $3,
            started_at = CASE WHEN $3 IN ('analyzing', 'processing') AND started_at IS NULL THEN NOW() ELSE started_at END,
            completed_at = CASE WHEN $3 IN ('completed', 'failed', 'cancelled') THEN NOW() ELSE completed_at END
        WHERE id = $1 AND status = $2
    `

	tag, err := r.db.Exec(ctx, query, id, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to update import status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *postgresRepository) SetAnalysisResult(ctx context.Context, id uuid.UUID, impact *model.AnalysisImpact) (bool, error) {
	analysis, err := json.Marshal(impact)
	if err != nil {
		return false, fmt.Errorf("failed to encode analysis: %w", err)
	}

	// Counters reset alongside the summary: a re-analysis after a retried
	// task replaces everything from the previous attempt.
	query := `
        UPDATE imports
        SET status = $2,
            analysis = $3,
            file_rows = $4,
            total_rows = $5,
            processed_rows = 0,
            success_rows = 0,
            error_rows = 0
        WHERE id = $1 AND status = $6
    `

	tag, err := r.db.Exec(ctx, query, id,
		model.StatusAwaitingConfirmation, analysis, impact.FileRows, impact.TotalRows, model.StatusAnalyzing)
	if err != nil {
		return false, fmt.Errorf("failed to record analysis result: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *postgresRepository) AddProgress(ctx context.Context, id uuid.UUID, processed, success, errorCount int) (int, *int, error) {
	query := `
        UPDATE imports
        SET processed_rows = processed_rows + $2,
            success_rows = success_rows + $3,
            error_rows = error_rows + $4
        WHERE id = $1
        RETURNING processed_rows, total_rows
    `

	var processedRows int
	var totalRows *int
	err := r.db.QueryRow(ctx, query, id, processed, success, errorCount).Scan(&processedRows, &totalRows)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, model.ErrImportNotFound
	}
	if err != nil {
		return 0, nil, fmt.Errorf("failed to update import progress: %w", err)
	}
	return processedRows, totalRows, nil
}

func (r *postgresRepository) AppendRowErrors(ctx context.Context, importID uuid.UUID, rowErrors []model.RowError) error {
	query := `
        INSERT INTO import_row_errors (id, import_id, row_index, kind, message, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `

	for _, re := range rowErrors {
		_, err := r.db.Exec(ctx, query, re.ID, importID, re.RowIndex, re.Kind, re.Message, re.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to record row error: %w", err)
		}
	}
	return nil
}

func (r *postgresRepository) ListRowErrors(ctx context.Context, importID uuid.UUID, limit, offset int) ([]model.RowError, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM import_row_errors WHERE import_id = $1`, importID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count row errors: %w", err)
	}

	query := `
        SELECT id, import_id, row_index, kind, message, created_at
        FROM import_row_errors
        WHERE import_id = $1
        ORDER BY row_index
        LIMIT $2 OFFSET $3
    `
	rows, err := r.db.Query(ctx, query, importID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list row errors: %w", err)
	}
	defer rows.Close()

	var rowErrors []model.RowError
	for rows.Next() {
		var re model.RowError
		if err := rows.Scan(&re.ID, &re.ImportID, &re.RowIndex, &re.Kind, &re.Message, &re.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan row error: %w", err)
		}
		rowErrors = append(rowErrors, re)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list row errors: %w", err)
	}

	return rowErrors, total, nil
}

func (r *postgresRepository) ListStaleTerminal(ctx context.Context, cutoff time.Time) ([]*model.Import, error) {
	query := `
        SELECT ` + importColumns + `
        FROM imports
        WHERE status IN ('completed', 'failed', 'cancelled')
          AND completed_at < $1
          AND stored_path <> ''
    `
	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale imports: %w", err)
	}
	defer rows.Close()

	var imports []*model.Import
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		imports = append(imports, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list stale imports: %w", err)
	}

	return imports, nil
}

func (r *postgresRepository) ClearStoredPath(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE imports SET stored_path = '' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to clear stored path: %w", err)
	}
	return nil
}
