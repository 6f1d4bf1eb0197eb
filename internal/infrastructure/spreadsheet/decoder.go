// Package spreadsheet decodes uploaded .xlsx and .csv files into rows keyed
// by raw header. Every read re-downloads and re-opens the file, so decoding
// is stateless and any worker can serve any batch.
package spreadsheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"crm-backend/internal/domains/importer/service"
)

// ErrUnsupportedFormat is returned for files that are neither .xlsx nor .csv.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// Decoder reads spreadsheet files out of object storage.
type Decoder struct {
	storage service.FileStorage
}

func NewDecoder(storage service.FileStorage) *Decoder {
	return &Decoder{storage: storage}
}

// TotalRows counts the data rows in the file, header excluded. Blank rows
// count here; they are skipped later without affecting progress.
func (d *Decoder) TotalRows(ctx context.Context, path string) (int, error) {
	grid, err := d.grid(ctx, path)
	if err != nil {
		return 0, err
	}
	if len(grid) <= 1 {
		return 0, nil
	}
	return len(grid) - 1, nil
}

// ReadRows returns rows [startRow, endRow], 1-based inclusive over data rows
// (row 1 is the first row after the header). Ranges past the end of the file
// are clipped.
func (d *Decoder) ReadRows(ctx context.Context, path string, startRow, endRow int) ([]service.Row, error) {
	if startRow < 1 || endRow < startRow {
		return nil, fmt.Errorf("invalid row range %d-%d", startRow, endRow)
	}

	grid, err := d.grid(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, nil
	}

	headers := grid[0]
	data := grid[1:]
	if startRow > len(data) {
		return nil, nil
	}
	if endRow > len(data) {
		endRow = len(data)
	}

	rows := make([]service.Row, 0, endRow-startRow+1)
	for _, cells := range data[startRow-1 : endRow] {
		row := make(service.Row, len(headers))
		for i, header := range headers {
			key := strings.TrimSpace(header)
			if key == "" {
				continue
			}
			if i < len(cells) {
				row[key] = cells[i]
			} else {
				row[key] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (d *Decoder) grid(ctx context.Context, path string) ([][]string, error) {
	content, err := d.storage.Download(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("download spreadsheet: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return decodeExcel(content)
	case ".csv":
		return decodeCSV(content)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func decodeExcel(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx file has no sheets")
	}

	// Only the first sheet is imported.
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	return rows, nil
}

func decodeCSV(content []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv rows: %w", err)
	}
	return rows, nil
}
