package recurrence

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/icloudbridge/bridge/internal/store"
)

type Span = store.Span

const (
	SpanThisEvent    = store.SpanThisEvent
	SpanFutureEvents = store.SpanFutureEvents
)

var (
	ErrInvalidSpan            = errors.New("span must be thisEvent or futureEvents")
	ErrSpanNotRecurring       = errors.New("futureEvents requires a recurring event")
	ErrUnsupportedSpan        = errors.New("span not supported by the calendar store")
	ErrRuleChangeOnOccurrence = errors.New("recurrence rule can only change with span futureEvents")
)

// ParseSpan validates s. Empty means thisEvent.
func ParseSpan(s string) (Span, error) {
	switch Span(s) {
	case "":
		return SpanThisEvent, nil
	case SpanThisEvent, SpanFutureEvents:
		return Span(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSpan, s)
}

// CheckSupported fails with ErrUnsupportedSpan when span is not listed.
func CheckSupported(span Span, supported []Span) error {
	if slices.Contains(supported, span) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedSpan, span)
}

// Mutation is a partial update, or a deletion when Delete is set. Nil fields
// are left unchanged.
type Mutation struct {
	Delete         bool
	Title          *string
	Notes          *string
	Location       *string
	Start          *time.Time
	End            *time.Time
	AllDay         *bool
	RecurrenceRule *string
}

// Apply returns e with the mutation's fields set.
func (m Mutation) Apply(e store.Event) store.Event {
	if m.Title != nil {
		e.Title = *m.Title
	}
	if m.Notes != nil {
		e.Notes = *m.Notes
	}
	if m.Location != nil {
		e.Location = *m.Location
	}
	if m.Start != nil {
		e.Start = *m.Start
	}
	if m.End != nil {
		e.End = *m.End
	}
	if m.AllDay != nil {
		e.AllDay = *m.AllDay
	}
	if m.RecurrenceRule != nil {
		e.RecurrenceRule = *m.RecurrenceRule
	}
	return e
}

func (m Mutation) changesRule(current string) bool {
	return m.RecurrenceRule != nil && *m.RecurrenceRule != current
}

// OpKind is an abstract calendar store operation.
type OpKind int

const (
	OpUpdateEvent OpKind = iota
	OpDeleteEvent
	OpSaveOccurrence
	OpCancelOccurrence
	OpTerminateSeries
	OpCreateSeries
)

func (k OpKind) String() string {
	switch k {
	case OpUpdateEvent:
		return "update-event"
	case OpDeleteEvent:
		return "delete-event"
	case OpSaveOccurrence:
		return "save-occurrence"
	case OpCancelOccurrence:
		return "cancel-occurrence"
	case OpTerminateSeries:
		return "terminate-series"
	case OpCreateSeries:
		return "create-series"
	}
	return "unknown"
}

// Op is one step of a Plan. Event carries the new state for update, save and
// create; SeriesID and At identify the occurrence or cut-off otherwise.
type Op struct {
	Kind     OpKind
	Event    store.Event
	SeriesID string
	At       time.Time
}

// Plan is the ordered list of operations implementing one edit.
type Plan struct {
	Ops []Op
}

// Kinds lists the plan's operation kinds in order.
func (p Plan) Kinds() []OpKind {
	out := make([]OpKind, len(p.Ops))
	for i, op := range p.Ops {
		out[i] = op.Kind
	}
	return out
}

// Target is the event an edit addresses. Series is the stored definition;
// Occurrence is the addressed occurrence and equals Series for single events.
type Target struct {
	Series     store.Event
	Occurrence store.Event
}

// atFirstOccurrence compares against the first generated start, which is
// later than the series start when DTSTART does not match the rule.
func (t Target) atFirstOccurrence() (bool, error) {
	if t.Occurrence.OccurrenceStart.IsZero() {
		return true, nil
	}
	first, err := FirstOccurrence(t.Series.RecurrenceRule, t.Series.Start)
	if errors.Is(err, ErrNoSuchOccurrence) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return !t.Occurrence.OccurrenceStart.After(first), nil
}

// Resolve turns an edit of target with span into store operations.
func Resolve(target Target, span Span, m Mutation) (Plan, error) {
	series := target.Series

	if !series.IsRecurring() {
		if span == SpanFutureEvents {
			return Plan{}, ErrSpanNotRecurring
		}
		if m.Delete {
			return Plan{Ops: []Op{{Kind: OpDeleteEvent, SeriesID: series.ID}}}, nil
		}
		return Plan{Ops: []Op{{Kind: OpUpdateEvent, Event: m.Apply(series), SeriesID: series.ID}}}, nil
	}

	occ := target.Occurrence
	occStart := occ.OccurrenceStart
	if occStart.IsZero() {
		occStart = series.Start
		occ = series
		occ.OccurrenceStart = occStart
	}

	switch span {
	case SpanThisEvent:
		if m.changesRule(series.RecurrenceRule) {
			return Plan{}, ErrRuleChangeOnOccurrence
		}
		if m.Delete {
			return Plan{Ops: []Op{{Kind: OpCancelOccurrence, SeriesID: series.ID, At: occStart}}}, nil
		}
		e := m.Apply(occ)
		e.ID = series.ID
		e.CalendarID = series.CalendarID
		e.RecurrenceRule = series.RecurrenceRule
		e.OccurrenceStart = occStart
		e.Detached = true
		return Plan{Ops: []Op{{Kind: OpSaveOccurrence, Event: e, SeriesID: series.ID, At: occStart}}}, nil

	case SpanFutureEvents:
		first, err := target.atFirstOccurrence()
		if err != nil {
			return Plan{}, err
		}
		if first {
			if m.Delete {
				return Plan{Ops: []Op{{Kind: OpDeleteEvent, SeriesID: series.ID}}}, nil
			}
			return Plan{Ops: []Op{{Kind: OpUpdateEvent, Event: m.Apply(series), SeriesID: series.ID}}}, nil
		}

		terminate := Op{Kind: OpTerminateSeries, SeriesID: series.ID, At: occStart}
		if m.Delete {
			return Plan{Ops: []Op{terminate}}, nil
		}

		next := occ
		next.ID = ""
		next.CalendarID = series.CalendarID
		next.Detached = false
		next.OccurrenceStart = time.Time{}
		if !occ.Detached {
			next.Start = occStart
			next.End = occStart.Add(series.End.Sub(series.Start))
		}
		rule, err := ContinueRule(series.RecurrenceRule, series.Start, occStart)
		if err != nil {
			return Plan{}, err
		}
		next.RecurrenceRule = rule
		next = m.Apply(next)

		return Plan{Ops: []Op{terminate, {Kind: OpCreateSeries, Event: next}}}, nil
	}

	return Plan{}, fmt.Errorf("%w: %q", ErrInvalidSpan, span)
}

// split reports whether the plan terminates a series and starts its
// continuation.
func (p Plan) split() (terminate, create Op, ok bool) {
	if len(p.Ops) != 2 || p.Ops[0].Kind != OpTerminateSeries || p.Ops[1].Kind != OpCreateSeries {
		return Op{}, Op{}, false
	}
	return p.Ops[0], p.Ops[1], true
}

// Apply executes the plan against cal in order and returns the resulting
// event. Deletions return the zero Event. A terminate followed by a create
// runs as one SplitSeries call.
func (p Plan) Apply(ctx context.Context, cal store.Calendars) (store.Event, error) {
	if terminate, create, ok := p.split(); ok {
		result, err := cal.SplitSeries(ctx, terminate.SeriesID, terminate.At, create.Event)
		if err != nil {
			return store.Event{}, fmt.Errorf("split-series: %w", err)
		}
		return result, nil
	}

	var result store.Event
	for _, op := range p.Ops {
		var err error
		switch op.Kind {
		case OpUpdateEvent:
			result, err = cal.UpdateEvent(ctx, op.Event)
		case OpDeleteEvent:
			err = cal.DeleteEvent(ctx, op.SeriesID)
		case OpSaveOccurrence:
			result, err = cal.SaveOccurrence(ctx, op.Event)
		case OpCancelOccurrence:
			err = cal.CancelOccurrence(ctx, op.SeriesID, op.At)
		case OpTerminateSeries:
			err = cal.TerminateSeries(ctx, op.SeriesID, op.At)
		case OpCreateSeries:
			result, err = cal.CreateEvent(ctx, op.Event)
		default:
			err = fmt.Errorf("unknown operation %d", op.Kind)
		}
		if err != nil {
			return store.Event{}, fmt.Errorf("%s: %w", op.Kind, err)
		}
	}
	return result, nil
}
