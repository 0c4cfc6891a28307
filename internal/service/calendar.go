package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/icloudbridge/bridge/internal/model"
	"github.com/icloudbridge/bridge/internal/recurrence"
	"github.com/icloudbridge/bridge/internal/store"
	"github.com/icloudbridge/bridge/internal/validation"
	"github.com/icloudbridge/bridge/internal/visibility"
)

const (
	// DefaultRangeDays is the span of an event query without an end.
	DefaultRangeDays = 30
	// MaxRangeYears bounds a single event query.
	MaxRangeYears = 4
)

var (
	ErrInvalidDate  = errors.New("dates must be RFC 3339 or YYYY-MM-DD")
	ErrInvalidRange = errors.New("end must be after start")
	ErrRangeTooLong = fmt.Errorf("range must not exceed %d years", MaxRangeYears)
)

// Range is a half-open [From, To) query window.
type Range struct {
	From time.Time
	To   time.Time
}

// ParseRange reads the start and end query values. A missing start is today
// at 00:00 UTC, a missing end is DefaultRangeDays after the start. A date-only
// end includes the whole of that day.
func ParseRange(start, end string, now time.Time) (Range, error) {
	var rng Range

	if start == "" {
		y, m, d := now.UTC().Date()
		rng.From = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	} else {
		t, _, err := parseDate(start)
		if err != nil {
			return Range{}, err
		}
		rng.From = t
	}

	if end == "" {
		rng.To = rng.From.AddDate(0, 0, DefaultRangeDays)
	} else {
		t, dateOnly, err := parseDate(end)
		if err != nil {
			return Range{}, err
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1)
		}
		rng.To = t
	}

	if !rng.To.After(rng.From) {
		return Range{}, ErrInvalidRange
	}
	if rng.To.After(rng.From.AddDate(MaxRangeYears, 0, 0)) {
		return Range{}, ErrRangeTooLong
	}
	return rng, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// CalendarService exposes the selected calendars and resolves recurring edits.
type CalendarService struct {
	calendars store.Calendars
	settings  SnapshotSource
	now       func() time.Time
}

// NewCalendarService creates a new CalendarService.
func NewCalendarService(calendars store.Calendars, settings SnapshotSource) *CalendarService {
	return &CalendarService{calendars: calendars, settings: settings, now: time.Now}
}

// Calendars returns the exposed calendars in store order.
func (s *CalendarService) Calendars(ctx context.Context) ([]model.Calendar, error) {
	live, err := s.calendars.Calendars(ctx)
	if err != nil {
		return nil, storeError(err)
	}

	exposed := visibility.ListExposed(filterOf(s.settings), store.KindCalendar, live)
	out := make([]model.Calendar, len(exposed))
	for i, c := range exposed {
		out[i] = calendarToModel(c)
	}
	return out, nil
}

// Calendar returns one exposed calendar.
func (s *CalendarService) Calendar(ctx context.Context, id string) (model.Calendar, error) {
	if !filterOf(s.settings).IsExposed(store.KindCalendar, id) {
		return model.Calendar{}, ErrNotFound
	}
	c, err := s.calendars.Calendar(ctx, id)
	if err != nil {
		return model.Calendar{}, storeError(err)
	}
	return calendarToModel(c), nil
}

// Events returns the occurrences of an exposed calendar within the window
// described by the start and end query values.
func (s *CalendarService) Events(ctx context.Context, calendarID, start, end string) ([]model.Event, error) {
	rng, err := ParseRange(start, end, s.now())
	if err != nil {
		return nil, invalid(err)
	}
	if !filterOf(s.settings).IsExposed(store.KindCalendar, calendarID) {
		return nil, ErrNotFound
	}

	events, err := s.calendars.Events(ctx, calendarID, rng.From, rng.To)
	if err != nil {
		return nil, storeError(err)
	}

	out := make([]model.Event, len(events))
	for i, e := range events {
		out[i] = eventToModel(e)
	}
	return out, nil
}

// Event returns a single event, a series or one occurrence of a series.
func (s *CalendarService) Event(ctx context.Context, id string) (model.Event, error) {
	target, err := s.target(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	return eventToModel(target.Occurrence), nil
}

// target loads the series and the addressed occurrence behind id.
func (s *CalendarService) target(ctx context.Context, id string) (recurrence.Target, error) {
	seriesID, occStart, err := recurrence.SplitOccurrenceID(id)
	if err != nil {
		return recurrence.Target{}, ErrNotFound
	}

	series, err := s.calendars.Event(ctx, seriesID)
	if err != nil {
		return recurrence.Target{}, storeError(err)
	}
	if !filterOf(s.settings).IsExposed(store.KindCalendar, series.CalendarID) {
		return recurrence.Target{}, ErrNotFound
	}

	target := recurrence.Target{Series: series, Occurrence: series}
	if !occStart.IsZero() {
		occ, err := s.calendars.Occurrence(ctx, seriesID, occStart)
		if err != nil {
			return recurrence.Target{}, storeError(err)
		}
		target.Occurrence = occ
	}
	return target, nil
}

// CreateEvent adds an event or series to an exposed calendar.
func (s *CalendarService) CreateEvent(ctx context.Context, calendarID string, req model.CreateEventRequest) (model.Event, error) {
	if err := validation.Struct(req); err != nil {
		return model.Event{}, invalid(err)
	}
	rule := req.RecurrenceRule
	if rule != "" {
		normalized, err := recurrence.NormalizeRule(rule)
		if err != nil {
			return model.Event{}, invalid(err)
		}
		rule = normalized
	}

	if !filterOf(s.settings).IsExposed(store.KindCalendar, calendarID) {
		return model.Event{}, ErrNotFound
	}

	created, err := s.calendars.CreateEvent(ctx, store.Event{
		CalendarID:     calendarID,
		Title:          req.Title,
		Notes:          req.Notes,
		Location:       req.Location,
		Start:          req.StartDate.UTC(),
		End:            req.EndDate.UTC(),
		AllDay:         req.IsAllDay,
		RecurrenceRule: rule,
	})
	if err != nil {
		return model.Event{}, storeError(err)
	}
	return eventToModel(created), nil
}

// UpdateEvent applies the fields present in req to the event, the single
// occurrence or the occurrence and its successors, depending on span.
func (s *CalendarService) UpdateEvent(ctx context.Context, id, span string, req model.UpdateEventRequest) (model.Event, error) {
	if err := validation.Struct(req); err != nil {
		return model.Event{}, invalid(err)
	}

	m := recurrence.Mutation{
		Title:    req.Title,
		Notes:    req.Notes,
		Location: req.Location,
		Start:    utcPtr(req.StartDate),
		End:      utcPtr(req.EndDate),
		AllDay:   req.IsAllDay,
	}
	if req.RecurrenceRule != nil {
		rule := *req.RecurrenceRule
		if rule != "" {
			normalized, err := recurrence.NormalizeRule(rule)
			if err != nil {
				return model.Event{}, invalid(err)
			}
			rule = normalized
		}
		m.RecurrenceRule = &rule
	}

	result, err := s.mutate(ctx, id, span, m)
	if err != nil {
		return model.Event{}, err
	}
	return eventToModel(result), nil
}

// DeleteEvent removes the event, the single occurrence or the occurrence and
// its successors, depending on span.
func (s *CalendarService) DeleteEvent(ctx context.Context, id, span string) error {
	_, err := s.mutate(ctx, id, span, recurrence.Mutation{Delete: true})
	return err
}

func (s *CalendarService) mutate(ctx context.Context, id, rawSpan string, m recurrence.Mutation) (store.Event, error) {
	span, err := recurrence.ParseSpan(rawSpan)
	if err != nil {
		return store.Event{}, invalid(err)
	}
	if err := recurrence.CheckSupported(span, s.calendars.SupportedSpans()); err != nil {
		return store.Event{}, invalid(err)
	}

	target, err := s.target(ctx, id)
	if err != nil {
		return store.Event{}, err
	}

	if !m.Delete {
		edited := m.Apply(target.Occurrence)
		if edited.End.Before(edited.Start) {
			return store.Event{}, invalid(errors.New("endDate must not be before startDate"))
		}
	}

	plan, err := recurrence.Resolve(target, span, m)
	if err != nil {
		switch {
		case errors.Is(err, recurrence.ErrSpanNotRecurring),
			errors.Is(err, recurrence.ErrRuleChangeOnOccurrence),
			errors.Is(err, recurrence.ErrInvalidSpan),
			errors.Is(err, recurrence.ErrInvalidRule):
			return store.Event{}, invalid(err)
		}
		return store.Event{}, storeError(err)
	}

	result, err := plan.Apply(ctx, s.calendars)
	if err != nil {
		return store.Event{}, storeError(err)
	}
	return result, nil
}

func calendarToModel(c store.Calendar) model.Calendar {
	return model.Calendar{
		ID:         c.ID,
		Title:      c.Title,
		Color:      c.Color,
		EventCount: c.EventCount,
	}
}

// eventToModel addresses occurrences of a series by their occurrence
// identifier, so they can be passed back to Event, UpdateEvent and
// DeleteEvent.
func eventToModel(e store.Event) model.Event {
	out := model.Event{
		ID:             e.ID,
		CalendarID:     e.CalendarID,
		Title:          e.Title,
		Notes:          e.Notes,
		Location:       e.Location,
		StartDate:      e.Start,
		EndDate:        e.End,
		IsAllDay:       e.AllDay,
		RecurrenceRule: e.RecurrenceRule,
		IsDetached:     e.Detached,
	}
	if !e.IsRecurring() {
		return out
	}

	out.SeriesID = e.ID
	if !e.OccurrenceStart.IsZero() {
		occ := e.OccurrenceStart.UTC()
		out.ID = recurrence.OccurrenceID(e.ID, occ)
		out.OccurrenceDate = &occ
	}
	return out
}
