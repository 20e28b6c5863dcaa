package tracker

import (
	"strings"
	"time"
)

// Feed/workbook column names. These match the upstream Nexen export verbatim,
// including the "(ELIG)" suffix on the response status column.
const (
	colSecurityID     = "Security ID"
	colSecurityName   = "Security Name"
	colEventType      = "Event Type"
	colResponseStatus = "Response Status(ELIG)"
	colClient         = "Client"
	colReferenceID    = "Reference ID"
	colActionClass    = "Action Class"
	colISIN           = "ISIN"
	colClientDeadline = "Client Deadline Date"
	colEarlyDeadline  = "Early Deadline Date"
	colDeadlineDate   = "Deadline Date"
	colDeadlineType   = "Deadline Type"
	colComments       = "Comments"
)

// requiredColumns must all be present in an input feed.
var requiredColumns = []string{
	colSecurityID,
	colSecurityName,
	colEventType,
	colResponseStatus,
	colClient,
	colReferenceID,
	colActionClass,
	colISIN,
	colClientDeadline,
	colEarlyDeadline,
}

// outputColumns is the fixed column order of every workbook sheet.
var outputColumns = []string{
	colSecurityID,
	colSecurityName,
	colEventType,
	colResponseStatus,
	colClient,
	colReferenceID,
	colActionClass,
	colISIN,
	colDeadlineDate,
	colDeadlineType,
	colComments,
}

// archiveColumns extends outputColumns with the raw deadline dates. The
// Archive sheet persists them so the resolver can be re-evaluated for every
// archived record on later runs, orphans included.
var archiveColumns = append(append([]string{}, outputColumns...), colClientDeadline, colEarlyDeadline)

// Record is one corporate action instance. Deadline/DeadlineSource are
// derived by the resolver each run; Comment is the only operator-editable
// field and survives merges.
type Record struct {
	ReferenceID    string
	SecurityID     string
	SecurityName   string
	EventType      string
	ResponseStatus string
	Client         string
	ActionClass    string
	ISIN           string

	ClientDeadline time.Time
	EarlyDeadline  time.Time

	Deadline       time.Time
	DeadlineSource string
	Comment        string
}

// normalizeField is the string-equality normalization used everywhere: values
// are compared trimmed, and absent values compare as "".
func normalizeField(s string) string {
	return strings.TrimSpace(s)
}

// FieldChange records one changed column on a merged record.
type FieldChange struct {
	Field string
	Old   string
	New   string
}

// sameDate compares two deadline values by calendar date. Two absent dates
// are equal; absent never equals present.
func sameDate(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() && b.IsZero()
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// formatDate serializes a deadline as YYYY-MM-DD, with "" for absent.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// compareRecords diffs every field except Comment and the two derived
// deadline fields, split into core fields and status fields (Client and
// response status are expected to drift daily and are reported separately).
// Text is compared trimmed and case-sensitive; raw deadlines by calendar date.
func compareRecords(old, new Record) (core, status []FieldChange) {
	stringField := func(field, oldVal, newVal string, isStatus bool) {
		o := normalizeField(oldVal)
		n := normalizeField(newVal)
		if o == n {
			return
		}
		ch := FieldChange{Field: field, Old: o, New: n}
		if isStatus {
			status = append(status, ch)
		} else {
			core = append(core, ch)
		}
	}
	dateField := func(field string, oldVal, newVal time.Time) {
		if sameDate(oldVal, newVal) {
			return
		}
		core = append(core, FieldChange{Field: field, Old: formatDate(oldVal), New: formatDate(newVal)})
	}

	stringField(colSecurityID, old.SecurityID, new.SecurityID, false)
	stringField(colSecurityName, old.SecurityName, new.SecurityName, false)
	stringField(colEventType, old.EventType, new.EventType, false)
	stringField(colActionClass, old.ActionClass, new.ActionClass, false)
	stringField(colISIN, old.ISIN, new.ISIN, false)
	dateField(colClientDeadline, old.ClientDeadline, new.ClientDeadline)
	dateField(colEarlyDeadline, old.EarlyDeadline, new.EarlyDeadline)

	stringField(colClient, old.Client, new.Client, true)
	stringField(colResponseStatus, old.ResponseStatus, new.ResponseStatus, true)
	return core, status
}
