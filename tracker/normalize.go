package tracker

import (
	"fmt"
	"strings"
	"time"
)

// SchemaError means the input feed is missing required columns. It is the
// only hard failure in the pipeline: everything downstream degrades instead.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("input is missing required columns: %s", strings.Join(e.Missing, ", "))
}

// NormalizeBatch converts a loaded feed table into canonical records.
// Rows with neither a security ID nor a security name are dropped. Unparsable
// dates degrade to absent. The optional Comments column is carried verbatim.
func NormalizeBatch(t *Table) ([]Record, error) {
	var missing []string
	idx := make(map[string]int, len(requiredColumns))
	for _, col := range requiredColumns {
		i := t.ColumnIndex(col)
		if i < 0 {
			missing = append(missing, col)
			continue
		}
		idx[col] = i
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}
	commentIdx := t.ColumnIndex(colComments)

	records := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		cell := func(col string) string { return t.Cell(row, idx[col]) }

		rec := Record{
			ReferenceID:    normalizeField(cell(colReferenceID)),
			SecurityID:     cell(colSecurityID),
			SecurityName:   cell(colSecurityName),
			EventType:      cell(colEventType),
			ResponseStatus: cell(colResponseStatus),
			Client:         cell(colClient),
			ActionClass:    cell(colActionClass),
			ISIN:           cell(colISIN),
			ClientDeadline: parseDeadline(cell(colClientDeadline)),
			EarlyDeadline:  parseDeadline(cell(colEarlyDeadline)),
		}
		if normalizeField(rec.SecurityID) == "" && normalizeField(rec.SecurityName) == "" {
			continue
		}
		if commentIdx >= 0 {
			rec.Comment = t.Cell(row, commentIdx)
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseDeadline parses feed deadline text like "29 Dec 2050 03:30:00 PM EST".
// Only the first 11 characters are significant (day month-abbrev year); the
// time-of-day/timezone suffix is discarded. Unparsable values are absent.
func parseDeadline(raw string) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}
	}
	if len(s) > 11 {
		s = s[:11]
	}
	s = strings.TrimSpace(s)
	d, err := time.ParseInLocation("2 Jan 2006", s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return dateOnly(d)
}
