package tracker

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// RunReport is the rendered-per-run change report. It is assembled after the
// merge and view generation and consumed only by WriteRunLog.
type RunReport struct {
	Timestamp    time.Time
	InputPath    string
	OutputPath   string
	PreviousPath string

	Summary ChangeSummary
	Window  Window

	// Next 15 Days membership deltas against the previous run's view.
	Next15Added   []string
	Next15Updated []string
	Next15Removed []string

	// Changed records bucketed by deadline proximity, with archive rows for
	// per-record detail.
	UrgentChanged []Record
	Last7Changed  []Record

	// UpdatedRows carries the archive row for every materially updated ID in
	// summary order, for the full-detail section.
	UpdatedRows []Record
}

// BuildRunReport derives the report from the merge and view outputs. The
// urgent bucket is changed records with a deadline within 3 days of today.
func BuildRunReport(sum ChangeSummary, archive Archive, prevView, next15 []Record, w Window) RunReport {
	rep := RunReport{Summary: sum, Window: w}

	prevIDs := viewIDSet(prevView)
	newIDs := viewIDSet(next15)
	rep.Next15Added = sortedDiff(newIDs, prevIDs)
	rep.Next15Removed = sortedDiff(prevIDs, newIDs)

	changedForView := make(map[string]bool, len(sum.Updated)+len(sum.StatusOnly))
	for _, id := range sum.Updated {
		changedForView[id] = true
	}
	for _, id := range sum.StatusOnly {
		changedForView[id] = true
	}
	for id := range newIDs {
		if prevIDs[id] && changedForView[id] {
			rep.Next15Updated = append(rep.Next15Updated, id)
		}
	}
	sort.Strings(rep.Next15Updated)

	urgentEnd := w.Today.AddDate(0, 0, 3)
	changed := make([]string, 0, len(sum.Added)+len(sum.Updated)+len(sum.StatusOnly))
	changed = append(changed, sum.Added...)
	changed = append(changed, sum.Updated...)
	changed = append(changed, sum.StatusOnly...)
	sort.Strings(changed)
	for _, id := range changed {
		rec, ok := archive.Get(id)
		if !ok || rec.Deadline.IsZero() {
			continue
		}
		switch {
		case !rec.Deadline.Before(w.Today) && !rec.Deadline.After(urgentEnd):
			rep.UrgentChanged = append(rep.UrgentChanged, rec)
		case w.InLast7(rec.Deadline):
			rep.Last7Changed = append(rep.Last7Changed, rec)
		}
	}

	for _, id := range sum.Updated {
		if rec, ok := archive.Get(id); ok {
			rep.UpdatedRows = append(rep.UpdatedRows, rec)
		}
	}
	return rep
}

func viewIDSet(view []Record) map[string]bool {
	out := make(map[string]bool, len(view))
	for _, rec := range view {
		if rec.ReferenceID != "" {
			out[rec.ReferenceID] = true
		}
	}
	return out
}

func sortedDiff(a, b map[string]bool) []string {
	var out []string
	for id := range a {
		if !b[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// WriteRunLog renders the report as the plain-text per-run log. Cosmetic
// (status-only) IDs are counted but intentionally not listed, to keep the log
// focused on material changes.
func WriteRunLog(w io.Writer, rep RunReport) error {
	sum := rep.Summary
	var err error
	p := func(format string, args ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, format, args...)
	}

	p("CA Tracking Run Log - %s\n", rep.Timestamp.Format("2006-01-02 15:04:05"))
	p("Input file: %s\n", rep.InputPath)
	p("Tracking workbook created: %s\n", rep.OutputPath)
	if rep.PreviousPath != "" {
		p("Previous tracking workbook: %s\n", rep.PreviousPath)
	} else {
		p("Previous tracking workbook: None (first run)\n")
	}

	p("\nSummary of changes:\n")
	p("  Added: %d\n", len(sum.Added))
	p("  Updated (core fields): %d\n", len(sum.Updated))
	p("  Status-only changes (Client / Response): %d\n", len(sum.StatusOnly))
	p("  Unchanged: %d\n", len(sum.Unchanged))
	p("  In archive but missing from latest input: %d\n", len(sum.MissingFromInput))
	p("  Urgent (<= 3 days) added/updated: %d\n", len(rep.UrgentChanged))
	p("  Last 7 days added/updated: %d\n", len(rep.Last7Changed))
	p("  Next 15 Days - Added: %d, Updated: %d, Removed: %d\n",
		len(rep.Next15Added), len(rep.Next15Updated), len(rep.Next15Removed))

	writeIDList := func(title string, ids []string) {
		if len(ids) == 0 {
			return
		}
		p("\n%s (%d IDs):\n", title, len(ids))
		for _, id := range ids {
			p("  - %s\n", id)
		}
	}
	writeIDList("Added Reference IDs", sum.Added)
	writeIDList("Updated Reference IDs", sum.Updated)
	writeIDList("Reference IDs in archive but missing from latest input", sum.MissingFromInput)
	writeIDList("Next 15 Days - Added Reference IDs", rep.Next15Added)
	writeIDList("Next 15 Days - Updated Reference IDs", rep.Next15Updated)
	writeIDList("Next 15 Days - Removed Reference IDs", rep.Next15Removed)

	added := make(map[string]bool, len(sum.Added))
	for _, id := range sum.Added {
		added[id] = true
	}
	writeDetailList := func(title string, records []Record) {
		if len(records) == 0 {
			return
		}
		p("\n%s (%d):\n", title, len(records))
		for _, rec := range records {
			status := "Updated"
			if added[rec.ReferenceID] {
				status = "Added"
			}
			p("  - RefID: %s\n", rec.ReferenceID)
			p("    Status   : %s\n", status)
			p("    Security : %s\n", rec.SecurityName)
			p("    Event    : %s\n", rec.EventType)
			p("    Deadline : %s\n", formatDate(rec.Deadline))
			if status == "Updated" {
				writeFieldChanges(p, sum.UpdatedDetails[rec.ReferenceID])
			}
			p("\n")
		}
	}
	writeDetailList("Urgent CAs (<= 3 days) added/updated", rep.UrgentChanged)
	writeDetailList("Last 7 days CAs added/updated", rep.Last7Changed)

	if len(rep.UpdatedRows) > 0 {
		p("\nUpdated CAs (core fields only, full details):\n")
		for _, rec := range rep.UpdatedRows {
			p("\n  RefID: %s\n", rec.ReferenceID)
			p("    Security : %s\n", rec.SecurityName)
			p("    Event    : %s\n", rec.EventType)
			p("    Deadline : %s\n", formatDate(rec.Deadline))
			writeFieldChanges(p, sum.UpdatedDetails[rec.ReferenceID])
		}
	}
	return err
}

func writeFieldChanges(p func(string, ...any), changes []FieldChange) {
	if len(changes) == 0 {
		return
	}
	p("    Changed fields:\n")
	for _, ch := range changes {
		p("      - %s: %q -> %q\n", ch.Field, ch.Old, ch.New)
	}
}
