package lifecycle

import (
	"math"
	"time"

	"resaletracker/backend/internal/domain"
)

const day = 24 * time.Hour

// StartOfDay is local midnight of t's calendar date in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from one date to another, ignoring
// time of day and DST shifts.
func DaysBetween(from time.Time, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / day)
}

// DurationDays is the listing duration for a date range, never below one.
func DurationDays(dateAdded time.Time, endDate time.Time) int {
	days := DaysBetween(dateAdded, endDate)
	if days < 1 {
		return 1
	}
	return days
}

// DaysLeft is ceil((dateAdded + duration - now) / 1 day).
func DaysLeft(l domain.Listing, now time.Time) int {
	end := StartOfDay(l.DateAdded).AddDate(0, 0, l.Duration)
	return int(math.Ceil(float64(end.Sub(now)) / float64(day)))
}

// DeriveState computes the lifecycle state from the stored flags and the
// current time. It is never persisted.
func DeriveState(l domain.Listing, now time.Time) domain.ListingState {
	switch {
	case l.SoldDate != nil:
		return domain.ListingStateSold
	case l.ManuallyEnded:
		return domain.ListingStateEndedManual
	case DaysLeft(l, now) <= 0:
		return domain.ListingStateEndedExpired
	default:
		return domain.ListingStateActive
	}
}

func IsEnded(l domain.Listing, now time.Time) bool {
	return l.ManuallyEnded || DaysLeft(l, now) <= 0 || l.SoldDate != nil
}

func View(l domain.Listing, now time.Time) domain.ListingView {
	return domain.ListingView{
		Listing:  l,
		State:    DeriveState(l, now),
		DaysLeft: DaysLeft(l, now),
		Ended:    IsEnded(l, now),
	}
}
