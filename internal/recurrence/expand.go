package recurrence

import (
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/icloudbridge/bridge/internal/store"
)

// Exception modifies one occurrence of a series. A cancelled exception
// removes the occurrence; otherwise Override replaces it.
type Exception struct {
	OccurrenceStart time.Time
	Cancelled       bool
	Override        store.Event
}

// Expand returns the occurrences of series overlapping [from, to), ordered by
// start. A non-recurring event yields itself when it overlaps.
func Expand(series store.Event, exceptions []Exception, from, to time.Time) ([]store.Event, error) {
	if !series.IsRecurring() {
		if overlaps(series.Start, series.End, from, to) {
			return []store.Event{series}, nil
		}
		return nil, nil
	}

	r, err := newRule(series.RecurrenceRule, series.Start)
	if err != nil {
		return nil, err
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range exceptions {
		set.ExDate(ex.OccurrenceStart.In(series.Start.Location()))
	}

	dur := series.End.Sub(series.Start)
	var out []store.Event

	for _, start := range set.Between(from.Add(-dur), to, true) {
		end := start.Add(dur)
		if !overlaps(start, end, from, to) {
			continue
		}
		out = append(out, occurrence(series, start, end))
	}

	for _, ex := range exceptions {
		if ex.Cancelled {
			continue
		}
		ov := ex.Override
		if !overlaps(ov.Start, ov.End, from, to) {
			continue
		}
		ov.ID = series.ID
		ov.CalendarID = series.CalendarID
		ov.RecurrenceRule = series.RecurrenceRule
		ov.OccurrenceStart = ex.OccurrenceStart
		ov.Detached = true
		out = append(out, ov)
	}

	slices.SortStableFunc(out, func(a, b store.Event) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return a.OccurrenceStart.Compare(b.OccurrenceStart)
	})
	return out, nil
}

// Occurrence returns the occurrence of series originally starting at start,
// applying any exception.
func Occurrence(series store.Event, exceptions []Exception, start time.Time) (store.Event, error) {
	if !series.IsRecurring() {
		if start.Equal(series.Start) {
			return series, nil
		}
		return store.Event{}, ErrNoSuchOccurrence
	}

	ok, err := IsOccurrence(series.RecurrenceRule, series.Start, start)
	if err != nil {
		return store.Event{}, err
	}
	if !ok {
		return store.Event{}, ErrNoSuchOccurrence
	}

	for _, ex := range exceptions {
		if !ex.OccurrenceStart.Equal(start) {
			continue
		}
		if ex.Cancelled {
			return store.Event{}, ErrNoSuchOccurrence
		}
		ov := ex.Override
		ov.ID = series.ID
		ov.CalendarID = series.CalendarID
		ov.RecurrenceRule = series.RecurrenceRule
		ov.OccurrenceStart = start
		ov.Detached = true
		return ov, nil
	}

	return occurrence(series, start, start.Add(series.End.Sub(series.Start))), nil
}

func occurrence(series store.Event, start, end time.Time) store.Event {
	e := series
	e.Start = start
	e.End = end
	e.OccurrenceStart = start
	e.Detached = false
	return e
}

// overlaps reports whether [start, end) intersects [from, to). Zero-length
// events at from count as overlapping.
func overlaps(start, end, from, to time.Time) bool {
	if !start.Before(to) {
		return false
	}
	return end.After(from) || (end.Equal(start) && !start.Before(from))
}
