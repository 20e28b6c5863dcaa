package tracker

import (
	"errors"
	"testing"
	"time"
)

func feedHeader() []string {
	return []string{
		colSecurityID, colSecurityName, colEventType, colResponseStatus,
		colClient, colReferenceID, colActionClass, colISIN,
		colClientDeadline, colEarlyDeadline,
	}
}

func feedRow(ref, secID, secName, clientDeadline, earlyDeadline string) []string {
	return []string{
		secID, secName, "TENDER OFFER", "RESPONSE REQUIRED",
		"CIF", ref, "Voluntary", "US0000000001",
		clientDeadline, earlyDeadline,
	}
}

func TestNormalizeBatch_MissingColumns(t *testing.T) {
	table := &Table{
		Header: []string{colSecurityID, colSecurityName, colEventType},
		Rows:   [][]string{{"SEC1", "ACME CORP", "TENDER OFFER"}},
	}

	_, err := NormalizeBatch(table)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("err = %v, want *SchemaError", err)
	}
	if len(schemaErr.Missing) != 7 {
		t.Fatalf("missing = %v", schemaErr.Missing)
	}
}

func TestNormalizeBatch_ParsesRows(t *testing.T) {
	table := &Table{
		Header: feedHeader(),
		Rows: [][]string{
			feedRow(" REF001 ", "SEC1", "ACME CORP", "15 Jan 2024 05:00:00 PM EST", ""),
		},
	}

	records, err := NormalizeBatch(table)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d", len(records))
	}
	rec := records[0]
	if rec.ReferenceID != "REF001" {
		t.Fatalf("reference id = %q, want trimmed", rec.ReferenceID)
	}
	if !rec.ClientDeadline.Equal(day("2024-01-15")) {
		t.Fatalf("client deadline = %v", rec.ClientDeadline)
	}
	if !rec.EarlyDeadline.IsZero() {
		t.Fatalf("early deadline = %v, want absent", rec.EarlyDeadline)
	}
	if rec.Comment != "" {
		t.Fatalf("comment = %q", rec.Comment)
	}
}

func TestNormalizeBatch_DropsIdentityBlankRows(t *testing.T) {
	table := &Table{
		Header: feedHeader(),
		Rows: [][]string{
			feedRow("REF001", "", "   ", "15 Jan 2024", ""),
			feedRow("REF002", "SEC2", "", "15 Jan 2024", ""),
			feedRow("REF003", "", "BETA LTD", "15 Jan 2024", ""),
		},
	}

	records, err := NormalizeBatch(table)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].ReferenceID != "REF002" || records[1].ReferenceID != "REF003" {
		t.Fatalf("kept = %q, %q", records[0].ReferenceID, records[1].ReferenceID)
	}
}

func TestNormalizeBatch_OptionalComments(t *testing.T) {
	table := &Table{
		Header: append(feedHeader(), colComments),
		Rows: [][]string{
			append(feedRow("REF001", "SEC1", "ACME CORP", "", ""), "  call custodian  "),
			feedRow("REF002", "SEC2", "BETA LTD", "", ""), // short row, no comment cell
		},
	}

	records, err := NormalizeBatch(table)
	if err != nil {
		t.Fatal(err)
	}
	if records[0].Comment != "  call custodian  " {
		t.Fatalf("comment = %q, want verbatim", records[0].Comment)
	}
	if records[1].Comment != "" {
		t.Fatalf("comment = %q", records[1].Comment)
	}
}

func TestParseDeadline(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"", time.Time{}},
		{"   ", time.Time{}},
		{"15 Jan 2024", day("2024-01-15")},
		{"5 Jan 2024", day("2024-01-05")},
		{"29 Dec 2050 03:30:00 PM EST", day("2050-12-29")},
		{"not a date", time.Time{}},
		{"2024-01-15", time.Time{}},
	}
	for _, tc := range cases {
		if got := parseDeadline(tc.in); !got.Equal(tc.want) {
			t.Errorf("parseDeadline(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
