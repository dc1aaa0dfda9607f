package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"payout-invoice-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

var (
	ErrNoData            = errors.New("no data found in source")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrSourceUnavailable = errors.New("table source unavailable")
)

// TableSource fetches a sheet range as a table whose first row is the header.
//
//go:generate mockgen -destination=mocks/mock_table_source.go -source=table_source.go TableSource
type TableSource interface {
	FetchTable(ctx context.Context, spreadsheetID, rangeName string) (models.Table, error)
}

// DecodeTable reads an uploaded CSV or XLSX file, picking the format by extension.
func DecodeTable(filename string, r io.Reader) (models.Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return models.Table{}, fmt.Errorf("%w: %q (expected .csv or .xlsx)", ErrUnsupportedFormat, filename)
	}
}

// ReadTableFile opens a local CSV or XLSX file.
func ReadTableFile(path string) (models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Table{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeTable(path, f)
}

func ReadCSV(r io.Reader) (models.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return models.Table{}, ErrNoData
	}
	if err != nil {
		return models.Table{}, fmt.Errorf("failed to read CSV header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.Table{}, fmt.Errorf("failed to read CSV row %d: %w", len(rows)+1, err)
		}
		if strings.Join(record, "") == "" {
			continue
		}
		rows = append(rows, record)
	}
	return newTable(header, rows), nil
}

// ReadXLSX reads the first worksheet of a workbook.
func ReadXLSX(r io.Reader) (models.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return models.Table{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return models.Table{}, ErrNoData
	}
	values, err := f.GetRows(sheets[0])
	if err != nil {
		return models.Table{}, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(values) == 0 {
		return models.Table{}, ErrNoData
	}

	var rows [][]string
	for _, v := range values[1:] {
		if strings.Join(v, "") == "" {
			continue
		}
		rows = append(rows, v)
	}
	return newTable(values[0], rows), nil
}

// newTable is NewTable with blank cells turned into nil, so every source reports
// empty cells the same way.
func newTable(header []string, rows [][]string) models.Table {
	t := models.NewTable(header, rows)
	for _, rec := range t.Rows {
		for k, v := range rec {
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				rec[k] = nil
			}
		}
	}
	return t
}

// fillBlankAmounts sets blank cells of the payout amount columns to "0".
func fillBlankAmounts(t models.Table) {
	for _, col := range models.SheetAmountColumns {
		if !t.HasColumn(col) {
			continue
		}
		for _, rec := range t.Rows {
			if rec[col] == nil {
				rec[col] = "0"
			}
		}
	}
}
