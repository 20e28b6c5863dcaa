package tracker

import "time"

// Urgency buckets for Next 15 Days deadlines:
// - urgent: fewer than 3 days away
// - approaching: 3 to 7 days
// - upcoming: more than 7 days
const (
	UrgencyUrgent      = "urgent"
	UrgencyApproaching = "approaching"
	UrgencyUpcoming    = "upcoming"
	UrgencyNone        = "none"
)

func DeadlineUrgency(deadline, today time.Time) string {
	if deadline.IsZero() {
		return UrgencyNone
	}
	days := daysBetween(dateOnly(today), dateOnly(deadline))
	switch {
	case days < 3:
		return UrgencyUrgent
	case days <= 7:
		return UrgencyApproaching
	default:
		return UrgencyUpcoming
	}
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
