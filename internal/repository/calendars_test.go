package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/icloudbridge/bridge/internal/store"
)

func day(d, h, m int) time.Time {
	return time.Date(2024, 6, d, h, m, 0, 0, time.UTC)
}

func starts(events []store.Event) []time.Time {
	out := make([]time.Time, len(events))
	for i, e := range events {
		out[i] = e.Start
	}
	return out
}

func assertStarts(t *testing.T, events []store.Event, want ...time.Time) {
	t.Helper()
	got := starts(events)
	if len(got) != len(want) {
		t.Fatalf("got %d events %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("event %d starts %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCalendarsWithCounts(t *testing.T) {
	lib := newTestLibrary(t, nil)

	cals, err := lib.Calendars(context.Background())
	if err != nil {
		t.Fatalf("Calendars() unexpected error: %v", err)
	}
	if len(cals) != 2 || cals[0].ID != "cal-1" || cals[0].EventCount != 2 || cals[1].EventCount != 0 {
		t.Errorf("Calendars() = %+v", cals)
	}
	if _, err := lib.Calendar(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Calendar(missing) error = %v, want ErrNotFound", err)
	}
}

func TestEventsExpandsSeries(t *testing.T) {
	lib := newTestLibrary(t, nil)

	events, err := lib.Events(context.Background(), "cal-1", day(1, 0, 0), day(8, 0, 0))
	if err != nil {
		t.Fatalf("Events() unexpected error: %v", err)
	}
	assertStarts(t, events,
		day(1, 9, 0), day(2, 9, 0), day(3, 9, 0), day(3, 14, 0), day(4, 9, 0), day(5, 9, 0))

	if events[0].ID != "evt-daily" || !events[0].OccurrenceStart.Equal(day(1, 9, 0)) {
		t.Errorf("first occurrence = %+v", events[0])
	}

	narrow, err := lib.Events(context.Background(), "cal-1", day(3, 12, 0), day(4, 0, 0))
	if err != nil {
		t.Fatalf("Events() unexpected error: %v", err)
	}
	assertStarts(t, narrow, day(3, 14, 0))

	if _, err := lib.Events(context.Background(), "missing", day(1, 0, 0), day(2, 0, 0)); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Events(missing) error = %v, want ErrNotFound", err)
	}
}

func TestOccurrenceExceptions(t *testing.T) {
	lib := newTestLibrary(t, nil)
	ctx := context.Background()

	occ, err := lib.Occurrence(ctx, "evt-daily", day(2, 9, 0))
	if err != nil {
		t.Fatalf("Occurrence() unexpected error: %v", err)
	}
	occ.Title = "Moved standup"
	occ.Start = day(2, 10, 0)
	occ.End = day(2, 10, 15)
	if _, err := lib.SaveOccurrence(ctx, occ); err != nil {
		t.Fatalf("SaveOccurrence() unexpected error: %v", err)
	}

	moved, err := lib.Occurrence(ctx, "evt-daily", day(2, 9, 0))
	if err != nil {
		t.Fatalf("Occurrence() unexpected error: %v", err)
	}
	if !moved.Detached || moved.Title != "Moved standup" || !moved.Start.Equal(day(2, 10, 0)) {
		t.Errorf("detached occurrence = %+v", moved)
	}

	if err := lib.CancelOccurrence(ctx, "evt-daily", day(3, 9, 0)); err != nil {
		t.Fatalf("CancelOccurrence() unexpected error: %v", err)
	}
	if _, err := lib.Occurrence(ctx, "evt-daily", day(3, 9, 0)); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Occurrence(cancelled) error = %v, want ErrNotFound", err)
	}

	events, err := lib.Events(ctx, "cal-1", day(1, 0, 0), day(8, 0, 0))
	if err != nil {
		t.Fatalf("Events() unexpected error: %v", err)
	}
	assertStarts(t, events, day(1, 9, 0), day(2, 10, 0), day(3, 14, 0), day(4, 9, 0), day(5, 9, 0))

	if _, err := lib.Occurrence(ctx, "evt-daily", day(2, 9, 30)); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Occurrence(off rule) error = %v, want ErrNotFound", err)
	}
	if err := lib.CancelOccurrence(ctx, "missing", day(2, 9, 0)); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("CancelOccurrence(missing) error = %v, want ErrNotFound", err)
	}
}

func TestTerminateSeries(t *testing.T) {
	lib := newTestLibrary(t, nil)
	ctx := context.Background()

	if err := lib.CancelOccurrence(ctx, "evt-daily", day(5, 9, 0)); err != nil {
		t.Fatalf("CancelOccurrence() unexpected error: %v", err)
	}
	if err := lib.TerminateSeries(ctx, "evt-daily", day(4, 9, 0)); err != nil {
		t.Fatalf("TerminateSeries() unexpected error: %v", err)
	}

	events, err := lib.Events(ctx, "cal-1", day(1, 0, 0), day(8, 0, 0))
	if err != nil {
		t.Fatalf("Events() unexpected error: %v", err)
	}
	assertStarts(t, events, day(1, 9, 0), day(2, 9, 0), day(3, 9, 0), day(3, 14, 0))

	var n int
	if err := lib.CalendarRepository.db.Get(&n, "SELECT COUNT(*) FROM event_exceptions WHERE series_id = ?", "evt-daily"); err != nil {
		t.Fatalf("counting exceptions: %v", err)
	}
	if n != 0 {
		t.Errorf("exceptions after terminate = %d, want 0", n)
	}
}

func TestEventLifecycle(t *testing.T) {
	lib := newTestLibrary(t, nil)
	ctx := context.Background()

	created, err := lib.CreateEvent(ctx, store.Event{
		CalendarID: "cal-2",
		Title:      "Review",
		Start:      day(10, 13, 0),
		End:        day(10, 14, 0),
	})
	if err != nil {
		t.Fatalf("CreateEvent() unexpected error: %v", err)
	}

	got, err := lib.Event(ctx, created.ID)
	if err != nil {
		t.Fatalf("Event() unexpected error: %v", err)
	}
	if got.Title != "Review" || !got.Start.Equal(day(10, 13, 0)) || got.CalendarID != "cal-2" {
		t.Errorf("Event() = %+v", got)
	}

	got.Title = "Design review"
	got.CalendarID = "cal-1"
	updated, err := lib.UpdateEvent(ctx, got)
	if err != nil {
		t.Fatalf("UpdateEvent() unexpected error: %v", err)
	}
	if updated.CalendarID != "cal-2" || updated.Title != "Design review" {
		t.Errorf("UpdateEvent() = %+v", updated)
	}

	if err := lib.DeleteEvent(ctx, created.ID); err != nil {
		t.Fatalf("DeleteEvent() unexpected error: %v", err)
	}
	if _, err := lib.Event(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Event(deleted) error = %v, want ErrNotFound", err)
	}
	if err := lib.DeleteEvent(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second DeleteEvent() error = %v, want ErrNotFound", err)
	}

	_, err = lib.CreateEvent(ctx, store.Event{CalendarID: "missing", Title: "x", Start: day(1, 0, 0), End: day(1, 1, 0)})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("CreateEvent(missing calendar) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteSeriesWithExceptions(t *testing.T) {
	lib := newTestLibrary(t, nil)
	ctx := context.Background()

	if err := lib.CancelOccurrence(ctx, "evt-daily", day(2, 9, 0)); err != nil {
		t.Fatalf("CancelOccurrence() unexpected error: %v", err)
	}
	if err := lib.DeleteEvent(ctx, "evt-daily"); err != nil {
		t.Fatalf("DeleteEvent() unexpected error: %v", err)
	}

	events, err := lib.Events(ctx, "cal-1", day(1, 0, 0), day(8, 0, 0))
	if err != nil {
		t.Fatalf("Events() unexpected error: %v", err)
	}
	assertStarts(t, events, day(3, 14, 0))
}

func TestSplitSeries(t *testing.T) {
	lib := newTestLibrary(t, nil)
	ctx := context.Background()

	next := store.Event{Title: "Sync", Start: day(4, 9, 0), End: day(4, 9, 30), RecurrenceRule: "FREQ=DAILY;COUNT=2"}
	created, err := lib.SplitSeries(ctx, "evt-daily", day(4, 9, 0), next)
	if err != nil {
		t.Fatalf("SplitSeries() unexpected error: %v", err)
	}
	if created.ID == "" || created.ID == "evt-daily" || created.CalendarID != "cal-1" {
		t.Errorf("SplitSeries() = %+v", created)
	}

	events, err := lib.Events(ctx, "cal-1", day(1, 0, 0), day(8, 0, 0))
	if err != nil {
		t.Fatalf("Events() unexpected error: %v", err)
	}
	assertStarts(t, events, day(1, 9, 0), day(2, 9, 0), day(3, 9, 0), day(3, 14, 0), day(4, 9, 0), day(5, 9, 0))
	if events[4].ID != created.ID || events[4].Title != "Sync" {
		t.Errorf("continuation occurrence = %+v", events[4])
	}
}

func TestSplitSeriesRollsBack(t *testing.T) {
	lib := newTestLibrary(t, nil)
	ctx := context.Background()

	_, err := lib.CalendarRepository.db.Exec(
		`CREATE TRIGGER reject_events BEFORE INSERT ON events BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	if err != nil {
		t.Fatalf("creating trigger: %v", err)
	}

	next := store.Event{Title: "Sync", Start: day(4, 9, 0), End: day(4, 9, 30), RecurrenceRule: "FREQ=DAILY;COUNT=2"}
	if _, err := lib.SplitSeries(ctx, "evt-daily", day(4, 9, 0), next); err == nil {
		t.Fatal("SplitSeries() expected error")
	}

	events, err := lib.Events(ctx, "cal-1", day(1, 0, 0), day(8, 0, 0))
	if err != nil {
		t.Fatalf("Events() unexpected error: %v", err)
	}
	assertStarts(t, events,
		day(1, 9, 0), day(2, 9, 0), day(3, 9, 0), day(3, 14, 0), day(4, 9, 0), day(5, 9, 0))
	if events[4].ID != "evt-daily" {
		t.Errorf("occurrence after the cut belongs to %q, want evt-daily", events[4].ID)
	}
}
