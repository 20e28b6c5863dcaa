package tracker

import "sort"

// Archive is the full set of records ever merged in, keyed by Reference ID
// and kept in first-seen order so output stays stable across runs.
type Archive struct {
	records []Record
	index   map[string]int
}

func NewArchive() Archive {
	return Archive{index: make(map[string]int)}
}

func (a *Archive) Len() int { return len(a.records) }

func (a *Archive) Get(ref string) (Record, bool) {
	i, ok := a.index[ref]
	if !ok {
		return Record{}, false
	}
	return a.records[i], true
}

// Put inserts or replaces the record under its Reference ID.
func (a *Archive) Put(rec Record) {
	if a.index == nil {
		a.index = make(map[string]int)
	}
	if i, ok := a.index[rec.ReferenceID]; ok {
		a.records[i] = rec
		return
	}
	a.index[rec.ReferenceID] = len(a.records)
	a.records = append(a.records, rec)
}

// All returns the records in first-seen order. The slice is a copy; the
// records are values, so callers cannot mutate the archive through it.
func (a *Archive) All() []Record {
	out := make([]Record, len(a.records))
	copy(out, a.records)
	return out
}

func (a *Archive) clone() Archive {
	next := Archive{
		records: make([]Record, len(a.records)),
		index:   make(map[string]int, len(a.index)),
	}
	copy(next.records, a.records)
	for k, v := range a.index {
		next.index[k] = v
	}
	return next
}

// ChangeSummary is the per-run reconciliation report. ID lists preserve batch
// order except MissingFromInput, which is sorted.
type ChangeSummary struct {
	Added            []string
	Updated          []string
	StatusOnly       []string
	Unchanged        []string
	MissingFromInput []string

	// UpdatedDetails holds old/new values for the core fields of materially
	// updated records; status-field drift on those records is not detailed.
	// StatusDetails is kept for the cosmetic bucket but is intentionally not
	// rendered in the run log's detail sections.
	UpdatedDetails map[string][]FieldChange
	StatusDetails  map[string][]FieldChange
}

func newChangeSummary() ChangeSummary {
	return ChangeSummary{
		UpdatedDetails: make(map[string][]FieldChange),
		StatusDetails:  make(map[string][]FieldChange),
	}
}

// Merge reconciles a normalized batch into the previous archive. Pure: it
// returns a new archive and never mutates prev. Records with a blank
// Reference ID cannot be keyed and are skipped. Batch records are stored
// whether or not the business filter would show them; filtering is a
// view-time concern.
//
// Derived deadline fields are recomputed for every record in the result,
// orphans included: the resolver is date-relative, so yesterday's answer is
// stale even when nothing else changed.
func Merge(prev Archive, batch []Record, w Window) (Archive, ChangeSummary) {
	sum := newChangeSummary()
	next := prev.clone()
	seen := make(map[string]bool, len(batch))

	for _, rec := range batch {
		ref := rec.ReferenceID
		if ref == "" {
			continue
		}
		seen[ref] = true
		rec.Deadline, rec.DeadlineSource = Resolve(rec.ClientDeadline, rec.EarlyDeadline, w)
		incomingComment := normalizeField(rec.Comment)

		cur, ok := next.Get(ref)
		if !ok {
			rec.Comment = incomingComment
			next.Put(rec)
			sum.Added = append(sum.Added, ref)
			continue
		}

		core, status := compareRecords(cur, rec)
		switch {
		case len(core) > 0:
			merged := rec
			merged.Comment = cur.Comment
			if incomingComment != "" {
				merged.Comment = incomingComment
			}
			next.Put(merged)
			sum.Updated = append(sum.Updated, ref)
			sum.UpdatedDetails[ref] = core
		case len(status) > 0:
			merged := cur
			merged.Client = rec.Client
			merged.ResponseStatus = rec.ResponseStatus
			merged.Deadline, merged.DeadlineSource = rec.Deadline, rec.DeadlineSource
			if incomingComment != "" {
				merged.Comment = incomingComment
			}
			next.Put(merged)
			sum.StatusOnly = append(sum.StatusOnly, ref)
			sum.StatusDetails[ref] = status
		default:
			merged := cur
			merged.Deadline, merged.DeadlineSource = rec.Deadline, rec.DeadlineSource
			if incomingComment != "" {
				merged.Comment = incomingComment
			}
			next.Put(merged)
			sum.Unchanged = append(sum.Unchanged, ref)
		}
	}

	// Identifiers absent from the batch stay in the archive, flagged only.
	for _, rec := range next.All() {
		if seen[rec.ReferenceID] {
			continue
		}
		rec.Deadline, rec.DeadlineSource = Resolve(rec.ClientDeadline, rec.EarlyDeadline, w)
		next.Put(rec)
		sum.MissingFromInput = append(sum.MissingFromInput, rec.ReferenceID)
	}
	sort.Strings(sum.MissingFromInput)

	return next, sum
}
