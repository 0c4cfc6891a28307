package recurrence

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/icloudbridge/bridge/internal/store"
)

var jan1 = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func TestTerminateRuleReplacesCount(t *testing.T) {
	before := jan1.AddDate(0, 0, 4)

	rule, err := TerminateRule("FREQ=DAILY;COUNT=10", jan1, before)
	if err != nil {
		t.Fatalf("TerminateRule() unexpected error: %v", err)
	}
	if strings.Contains(rule, "COUNT") {
		t.Errorf("expected COUNT to be removed, got %q", rule)
	}
	if !strings.Contains(rule, "UNTIL=20240105T085959Z") {
		t.Errorf("expected UNTIL one second before the cut, got %q", rule)
	}

	r, err := newRule(rule, jan1)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(r.All()); got != 4 {
		t.Errorf("expected 4 remaining occurrences, got %d", got)
	}
}

func TestTerminateRuleKeepsEarlierUntil(t *testing.T) {
	rule, err := TerminateRule("FREQ=DAILY;UNTIL=20240103T090000Z", jan1, jan1.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("TerminateRule() unexpected error: %v", err)
	}
	if !strings.Contains(rule, "UNTIL=20240103T090000Z") {
		t.Errorf("expected original UNTIL to be kept, got %q", rule)
	}
}

func TestContinueRuleCarriesRemainingCount(t *testing.T) {
	rule, err := ContinueRule("RRULE:FREQ=DAILY;COUNT=10", jan1, jan1.AddDate(0, 0, 4))
	if err != nil {
		t.Fatalf("ContinueRule() unexpected error: %v", err)
	}
	if !strings.Contains(rule, "COUNT=6") {
		t.Errorf("expected COUNT=6, got %q", rule)
	}
}

func TestFirstOccurrenceSkipsUnmatchedStart(t *testing.T) {
	first, err := FirstOccurrence("FREQ=WEEKLY;BYDAY=WE", jan1)
	if err != nil {
		t.Fatalf("FirstOccurrence() unexpected error: %v", err)
	}
	if want := jan1.AddDate(0, 0, 2); !first.Equal(want) {
		t.Errorf("FirstOccurrence() = %v, want %v", first, want)
	}

	first, err = FirstOccurrence("FREQ=DAILY", jan1)
	if err != nil || !first.Equal(jan1) {
		t.Errorf("FirstOccurrence(daily) = (%v, %v), want %v", first, err, jan1)
	}
}

func TestInvalidRule(t *testing.T) {
	if err := ValidateRule("FREQ=SOMETIMES"); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("expected ErrInvalidRule, got %v", err)
	}
	if err := ValidateRule("FREQ=WEEKLY;BYDAY=MO,WE"); err != nil {
		t.Errorf("unexpected error for a valid rule: %v", err)
	}
}

func TestOccurrenceIDRoundTrip(t *testing.T) {
	start := time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)
	id := OccurrenceID("evt-1", start)
	if id != "evt-1::20240310T143000Z" {
		t.Errorf("unexpected id %q", id)
	}

	series, got, err := SplitOccurrenceID(id)
	if err != nil {
		t.Fatalf("SplitOccurrenceID() unexpected error: %v", err)
	}
	if series != "evt-1" || !got.Equal(start) {
		t.Errorf("got (%q, %v), want (evt-1, %v)", series, got, start)
	}

	series, got, err = SplitOccurrenceID("plain")
	if err != nil || series != "plain" || !got.IsZero() {
		t.Errorf("plain id: got (%q, %v, %v)", series, got, err)
	}

	for _, bad := range []string{"evt::yesterday", "::20240310T143000Z"} {
		if _, _, err := SplitOccurrenceID(bad); !errors.Is(err, ErrInvalidOccurrenceID) {
			t.Errorf("SplitOccurrenceID(%q) error = %v, want ErrInvalidOccurrenceID", bad, err)
		}
	}
}

func TestExpandAppliesExceptions(t *testing.T) {
	s := store.Event{
		ID:             "s",
		CalendarID:     "c",
		Title:          "standup",
		Start:          jan1,
		End:            jan1.Add(30 * time.Minute),
		RecurrenceRule: "FREQ=DAILY;COUNT=5",
	}
	moved := jan1.AddDate(0, 0, 3).Add(6 * time.Hour)
	exceptions := []Exception{
		{OccurrenceStart: jan1.AddDate(0, 0, 2), Cancelled: true},
		{OccurrenceStart: jan1.AddDate(0, 0, 3), Override: store.Event{Title: "late standup", Start: moved, End: moved.Add(time.Hour)}},
	}

	got, err := Expand(s, exceptions, jan1, jan1.AddDate(0, 0, 10))
	if err != nil {
		t.Fatalf("Expand() unexpected error: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 occurrences, got %d", len(got))
	}
	if got[2].Title != "late standup" || !got[2].Start.Equal(moved) || !got[2].Detached {
		t.Errorf("expected detached override third, got %+v", got[2])
	}
	if !got[2].OccurrenceStart.Equal(jan1.AddDate(0, 0, 3)) {
		t.Errorf("override must keep its original start, got %v", got[2].OccurrenceStart)
	}
	for _, e := range got {
		if e.OccurrenceStart.Equal(jan1.AddDate(0, 0, 2)) {
			t.Error("cancelled occurrence must not be expanded")
		}
	}
}

func TestExpandIncludesOccurrenceRunningIntoWindow(t *testing.T) {
	s := store.Event{
		ID:             "s",
		Start:          jan1,
		End:            jan1.Add(3 * time.Hour),
		RecurrenceRule: "FREQ=DAILY",
	}
	from := jan1.Add(time.Hour)
	got, err := Expand(s, nil, from, from.Add(time.Hour))
	if err != nil {
		t.Fatalf("Expand() unexpected error: %v", err)
	}
	if len(got) != 1 || !got[0].Start.Equal(jan1) {
		t.Errorf("expected the in-progress occurrence, got %+v", got)
	}
}

func TestExpandSingleEvent(t *testing.T) {
	e := store.Event{ID: "one", Start: jan1, End: jan1.Add(time.Hour)}

	got, _ := Expand(e, nil, jan1.Add(-time.Hour), jan1.Add(time.Minute))
	if len(got) != 1 {
		t.Errorf("expected overlapping event, got %d", len(got))
	}
	got, _ = Expand(e, nil, jan1.Add(time.Hour), jan1.Add(2*time.Hour))
	if len(got) != 0 {
		t.Errorf("event ending at from must not overlap, got %d", len(got))
	}
}

func TestOccurrenceLookup(t *testing.T) {
	s := store.Event{ID: "s", Start: jan1, End: jan1.Add(time.Hour), RecurrenceRule: "FREQ=WEEKLY"}

	e, err := Occurrence(s, nil, jan1.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("Occurrence() unexpected error: %v", err)
	}
	if !e.Start.Equal(jan1.AddDate(0, 0, 7)) {
		t.Errorf("unexpected start %v", e.Start)
	}

	if _, err := Occurrence(s, nil, jan1.AddDate(0, 0, 1)); !errors.Is(err, ErrNoSuchOccurrence) {
		t.Errorf("expected ErrNoSuchOccurrence, got %v", err)
	}
}
