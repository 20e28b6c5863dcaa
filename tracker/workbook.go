package tracker

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetNext15  = "Next 15 Days"
	SheetLast7   = "Last 7 Days"
	SheetArchive = "Archive"
)

// WriteWorkbook persists the three sheets with the fixed column order, header
// styling, frozen header row and deadline highlighting on the Next 15 Days
// sheet. The Archive sheet carries the two raw deadline columns after the
// fixed eleven so later runs can re-resolve every record.
func WriteWorkbook(path string, next15, last7 []Record, archive Archive) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetNext15); err != nil {
		return err
	}
	for _, sheet := range []string{SheetLast7, SheetArchive} {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}

	if err := writeSheet(f, SheetNext15, outputColumns, next15, viewRow); err != nil {
		return err
	}
	if err := writeSheet(f, SheetLast7, outputColumns, last7, viewRow); err != nil {
		return err
	}
	if err := writeSheet(f, SheetArchive, archiveColumns, archive.All(), archiveRow); err != nil {
		return err
	}

	if err := highlightDeadlines(f, len(next15)); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func viewRow(rec Record) []interface{} {
	return []interface{}{
		rec.SecurityID,
		rec.SecurityName,
		rec.EventType,
		rec.ResponseStatus,
		rec.Client,
		rec.ReferenceID,
		rec.ActionClass,
		rec.ISIN,
		formatDate(rec.Deadline),
		rec.DeadlineSource,
		rec.Comment,
	}
}

func archiveRow(rec Record) []interface{} {
	return append(viewRow(rec), formatDate(rec.ClientDeadline), formatDate(rec.EarlyDeadline))
}

func writeSheet(f *excelize.File, sheet string, columns []string, records []Record, row func(Record) []interface{}) error {
	header := make([]interface{}, len(columns))
	widths := make([]int, len(columns))
	for i, col := range columns {
		header[i] = col
		widths[i] = len(col)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, rec := range records {
		cells := row(rec)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
		for j, v := range cells {
			if j < len(widths) {
				if n := len(fmt.Sprint(v)); n > widths[j] {
					widths[j] = n
				}
			}
		}
	}
	return styleSheet(f, sheet, widths)
}

func styleSheet(f *excelize.File, sheet string, widths []int) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
	})
	if err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(widths))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := float64(w + 2)
		if width > 50 {
			width = 50
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

// highlightDeadlines applies the urgency highlighting to the Next 15 Days
// deadline column: red under 3 days, yellow 3 to 7, green beyond.
func highlightDeadlines(f *excelize.File, rows int) error {
	if rows == 0 {
		return nil
	}
	deadlineCol, err := excelize.ColumnNumberToName(columnNumber(outputColumns, colDeadlineDate))
	if err != nil {
		return err
	}
	area := fmt.Sprintf("%s2:%s%d", deadlineCol, deadlineCol, rows+1)

	fill := func(color string) (int, error) {
		return f.NewConditionalStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
	}
	red, err := fill("FF6B6B")
	if err != nil {
		return err
	}
	yellow, err := fill("FFE66D")
	if err != nil {
		return err
	}
	green, err := fill("95E1D3")
	if err != nil {
		return err
	}
	return f.SetConditionalFormat(SheetNext15, area, []excelize.ConditionalFormatOptions{
		{Type: "cell", Criteria: "less than", Format: red, Value: "TODAY()+3"},
		{Type: "cell", Criteria: "between", Format: yellow, MinValue: "TODAY()+3", MaxValue: "TODAY()+7"},
		{Type: "cell", Criteria: "greater than", Format: green, Value: "TODAY()+7"},
	})
}

func columnNumber(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i + 1
		}
	}
	return 0
}

// ReadArchiveSheet reloads the persisted archive from a tracking workbook.
// Workbooks written before the raw deadline columns existed load with those
// dates absent.
func ReadArchiveSheet(path string) (Archive, error) {
	records, err := readSheetRecords(path, SheetArchive)
	if err != nil {
		return Archive{}, err
	}
	archive := NewArchive()
	for _, rec := range records {
		if rec.ReferenceID == "" {
			continue
		}
		archive.Put(rec)
	}
	return archive, nil
}

// ReadViewSheet reloads one view sheet, used to carry comments forward from
// the previous run's Next 15 Days tab.
func ReadViewSheet(path, sheet string) ([]Record, error) {
	return readSheetRecords(path, sheet)
}

func readSheetRecords(path, sheet string) ([]Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	t := &Table{Header: rows[0], Rows: rows[1:]}
	col := make(map[string]int, len(archiveColumns))
	for _, name := range archiveColumns {
		col[name] = t.ColumnIndex(name)
	}

	records := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		cell := func(name string) string { return t.Cell(row, col[name]) }
		records = append(records, Record{
			ReferenceID:    normalizeField(cell(colReferenceID)),
			SecurityID:     cell(colSecurityID),
			SecurityName:   cell(colSecurityName),
			EventType:      cell(colEventType),
			ResponseStatus: cell(colResponseStatus),
			Client:         cell(colClient),
			ActionClass:    cell(colActionClass),
			ISIN:           cell(colISIN),
			ClientDeadline: parseISODate(cell(colClientDeadline)),
			EarlyDeadline:  parseISODate(cell(colEarlyDeadline)),
			Deadline:       parseISODate(cell(colDeadlineDate)),
			DeadlineSource: normalizeField(cell(colDeadlineType)),
			Comment:        cell(colComments),
		})
	}
	return records, nil
}

// parseISODate parses the YYYY-MM-DD serialization; anything else is absent.
func parseISODate(s string) time.Time {
	s = normalizeField(s)
	if s == "" {
		return time.Time{}
	}
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return d
}
