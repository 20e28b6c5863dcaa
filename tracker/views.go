package tracker

import "sort"

// CommentStrategy selects where a Next 15 Days comment comes from when the
// previous run's view also had one. Two behaviors exist in the field; pick
// explicitly via config instead of silently choosing.
type CommentStrategy string

const (
	// CommentFromArchive: the archive's stored comment wins when non-blank,
	// falling back to the previous view. Default.
	CommentFromArchive CommentStrategy = "archive"
	// CommentFromView: only today's feed comment or the previous view carry;
	// older archive-level comments are ignored.
	CommentFromView CommentStrategy = "view"
)

// ViewInput is everything the view generator needs for one run.
type ViewInput struct {
	Archive Archive
	// PrevComments maps Reference ID to the comment carried on the previous
	// run's Next 15 Days sheet (see CollectCarryComments).
	PrevComments map[string]string
	// BatchComments maps Reference ID to the non-blank comment present in
	// today's feed (see BatchComments). Only consulted by CommentFromView.
	BatchComments map[string]string
	Strategy      CommentStrategy
	Window        Window
}

// GenerateViews projects the archive into the two time-window views.
// Records must pass the business filter and resolve to an in-window deadline;
// both views are sorted ascending by deadline. Last 7 Days rows keep the
// archive comment untouched.
func GenerateViews(in ViewInput) (next15, last7 []Record) {
	strategy := in.Strategy
	if strategy == "" {
		strategy = CommentFromArchive
	}

	for _, rec := range in.Archive.All() {
		if !IsActive(rec) {
			continue
		}
		deadline, source := Resolve(rec.ClientDeadline, rec.EarlyDeadline, in.Window)
		if deadline.IsZero() {
			continue
		}
		rec.Deadline, rec.DeadlineSource = deadline, source

		switch {
		case in.Window.InNext15(deadline):
			rec.Comment = resolveViewComment(rec, in, strategy)
			next15 = append(next15, rec)
		case in.Window.InLast7(deadline):
			last7 = append(last7, rec)
		}
	}

	sortByDeadline(next15)
	sortByDeadline(last7)
	return next15, last7
}

func resolveViewComment(rec Record, in ViewInput, strategy CommentStrategy) string {
	switch strategy {
	case CommentFromView:
		if c := normalizeField(in.BatchComments[rec.ReferenceID]); c != "" {
			return c
		}
	default:
		if c := normalizeField(rec.Comment); c != "" {
			return c
		}
	}
	if c := normalizeField(in.PrevComments[rec.ReferenceID]); c != "" {
		return c
	}
	return ""
}

func sortByDeadline(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Deadline.Equal(records[j].Deadline) {
			return records[i].Deadline.Before(records[j].Deadline)
		}
		return records[i].ReferenceID < records[j].ReferenceID
	})
}

// CollectCarryComments extracts the comment map from the previous run's
// Next 15 Days view. Only entries whose deadline is still inside the current
// next-15 window and whose comment is non-blank carry forward.
func CollectCarryComments(prevView []Record, w Window) map[string]string {
	out := make(map[string]string)
	for _, rec := range prevView {
		ref := normalizeField(rec.ReferenceID)
		comment := normalizeField(rec.Comment)
		if ref == "" || comment == "" {
			continue
		}
		if !w.InNext15(rec.Deadline) {
			continue
		}
		out[ref] = comment
	}
	return out
}

// BatchComments maps Reference ID to the non-blank comment in today's feed.
func BatchComments(batch []Record) map[string]string {
	out := make(map[string]string)
	for _, rec := range batch {
		if rec.ReferenceID == "" {
			continue
		}
		if c := normalizeField(rec.Comment); c != "" {
			out[rec.ReferenceID] = c
		}
	}
	return out
}
