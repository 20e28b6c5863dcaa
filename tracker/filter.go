package tracker

import "strings"

// excludedEventTypes are never shown in either view. The last entry carries
// trailing spaces exactly as baked into the upstream reference data; matching
// is done on trimmed values so padded and clean variants both hit.
var excludedEventTypes = []string{
	"OPTIONAL DIVIDEND",
	"CASH DISTRIBUTIONS",
	"DIVIDEND REINVESTMENT               ",
}

// IsActive reports whether a record is eligible for the time-window views.
// It is applied identically to fresh batch records and to archive rows; the
// archive itself stores every record regardless.
func IsActive(r Record) bool {
	if strings.Contains(r.ResponseStatus, "NOT APPLICABLE") {
		return false
	}
	client := normalizeField(r.Client)
	if client == "" || client == "nil" {
		return false
	}
	event := normalizeField(r.EventType)
	for _, ex := range excludedEventTypes {
		if event == normalizeField(ex) {
			return false
		}
	}
	if normalizeField(r.ActionClass) == "Mandatory" {
		return false
	}
	return true
}
