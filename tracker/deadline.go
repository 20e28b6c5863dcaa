package tracker

import "time"

// Deadline source tags.
const (
	DeadlineSourceClient = "Client"
	DeadlineSourceEarly  = "Early"
)

// Window is the date window for one run. It is built once from an explicit
// "today" and threaded through the resolver, merge engine and view generator
// so the window logic is testable without touching the wall clock.
type Window struct {
	Today  time.Time
	Next15 time.Time
	Last7  time.Time
}

func NewWindow(today time.Time) Window {
	t := dateOnly(today)
	return Window{
		Today:  t,
		Next15: t.AddDate(0, 0, 15),
		Last7:  t.AddDate(0, 0, -7),
	}
}

// dateOnly truncates to a calendar date in UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// InNext15 reports whether d falls in [Today, Today+15].
func (w Window) InNext15(d time.Time) bool {
	return !d.IsZero() && !d.Before(w.Today) && !d.After(w.Next15)
}

// InLast7 reports whether d falls in [Today-7, Today).
func (w Window) InLast7(d time.Time) bool {
	return !d.IsZero() && !d.Before(w.Last7) && d.Before(w.Today)
}

// Resolve picks the effective deadline from the two raw deadline dates.
// Priority, first match wins:
//  1. both in the next-15 window: the earlier (tie goes to Early)
//  2. early in the next-15 window
//  3. client in the next-15 window
//  4. early in the last-7 window
//  5. client in the last-7 window
//  6. early already past while client is beyond the next-15 window: client
//
// Anything else has no effective deadline and belongs to neither view.
func Resolve(client, early time.Time, w Window) (time.Time, string) {
	clientIn15 := w.InNext15(client)
	earlyIn15 := w.InNext15(early)

	switch {
	case clientIn15 && earlyIn15:
		if !early.After(client) {
			return early, DeadlineSourceEarly
		}
		return client, DeadlineSourceClient
	case earlyIn15:
		return early, DeadlineSourceEarly
	case clientIn15:
		return client, DeadlineSourceClient
	case w.InLast7(early):
		return early, DeadlineSourceEarly
	case w.InLast7(client):
		return client, DeadlineSourceClient
	case !early.IsZero() && early.Before(w.Today) && !client.IsZero() && client.After(w.Next15):
		// Stale early deadline superseded by a still-future client deadline.
		return client, DeadlineSourceClient
	}
	return time.Time{}, ""
}
