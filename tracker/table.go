package tracker

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a loaded tabular file: one header row plus string cells. Short
// rows are padded on access, never rejected.
type Table struct {
	Header []string
	Rows   [][]string
}

// ColumnIndex returns the position of a named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if normalizeField(h) == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at (row, col), "" when the row is short.
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// ParseTable parses raw file content by extension.
func ParseTable(data []byte, ext string) (*Table, error) {
	switch strings.ToLower(ext) {
	case ".csv":
		return parseCSV(data)
	case ".xlsx":
		return parseXLSX(data)
	default:
		return nil, fmt.Errorf("unsupported file format %q (expected .csv or .xlsx)", ext)
	}
}

func parseCSV(data []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		rows = append(rows, rec)
	}
	return &Table{Header: header, Rows: rows}, nil
}

func parseXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}
	return &Table{Header: rows[0], Rows: rows[1:]}, nil
}

// FindLatestFeedFile picks the most recently modified CSV/XLSX in folder.
func FindLatestFeedFile(folder string) (string, error) {
	var candidates []string
	for _, glob := range []string{"*.csv", "*.xlsx"} {
		matches, err := filepath.Glob(filepath.Join(folder, glob))
		if err != nil {
			return "", err
		}
		candidates = append(candidates, matches...)
	}
	latest, err := latestByModTime(candidates)
	if err != nil {
		return "", err
	}
	if latest == "" {
		return "", fmt.Errorf("no CSV or XLSX files found in %s", folder)
	}
	return latest, nil
}

// FindLatestWorkbook picks the most recently modified timestamped tracking
// workbook (<basename>_*.xlsx) in folder. Returns "" when none exists yet.
func FindLatestWorkbook(folder, basename string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(folder, basename+"_*.xlsx"))
	if err != nil {
		return "", err
	}
	return latestByModTime(matches)
}

func latestByModTime(paths []string) (string, error) {
	var latest string
	var latestMod int64
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		if mod := info.ModTime().UnixNano(); latest == "" || mod > latestMod {
			latest = p
			latestMod = mod
		}
	}
	return latest, nil
}
