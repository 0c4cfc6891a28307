package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/icloudbridge/bridge/internal/recurrence"
	"github.com/icloudbridge/bridge/internal/store"
)

// CalendarRepository stores events as series rows plus per-occurrence
// exceptions, and expands them on read.
type CalendarRepository struct {
	db *sqlx.DB
}

func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

type calendarRow struct {
	ID         string `db:"id"`
	Title      string `db:"title"`
	Color      string `db:"color"`
	EventCount int    `db:"event_count"`
}

type eventRow struct {
	ID         string `db:"id"`
	CalendarID string `db:"calendar_id"`
	Title      string `db:"title"`
	Notes      string `db:"notes"`
	Location   string `db:"location"`
	StartAt    int64  `db:"start_at"`
	EndAt      int64  `db:"end_at"`
	AllDay     bool   `db:"all_day"`
	RRule      string `db:"rrule"`
}

func (r eventRow) toStore() store.Event {
	return store.Event{
		ID:             r.ID,
		CalendarID:     r.CalendarID,
		Title:          r.Title,
		Notes:          r.Notes,
		Location:       r.Location,
		Start:          fromMillis(r.StartAt),
		End:            fromMillis(r.EndAt),
		AllDay:         r.AllDay,
		RecurrenceRule: r.RRule,
	}
}

type exceptionRow struct {
	SeriesID        string `db:"series_id"`
	OccurrenceStart int64  `db:"occurrence_start"`
	Cancelled       bool   `db:"cancelled"`
	Title           string `db:"title"`
	Notes           string `db:"notes"`
	Location        string `db:"location"`
	StartAt         int64  `db:"start_at"`
	EndAt           int64  `db:"end_at"`
	AllDay          bool   `db:"all_day"`
}

func (r exceptionRow) toException() recurrence.Exception {
	return recurrence.Exception{
		OccurrenceStart: fromMillis(r.OccurrenceStart),
		Cancelled:       r.Cancelled,
		Override: store.Event{
			Title:    r.Title,
			Notes:    r.Notes,
			Location: r.Location,
			Start:    fromMillis(r.StartAt),
			End:      fromMillis(r.EndAt),
			AllDay:   r.AllDay,
		},
	}
}

const calendarColumns = `c.id, c.title, c.color,
	(SELECT COUNT(*) FROM events e WHERE e.calendar_id = c.id) AS event_count`

const eventColumns = `id, calendar_id, title, notes, location, start_at, end_at, all_day, rrule`

const exceptionColumns = `series_id, occurrence_start, cancelled, title, notes, location, start_at, end_at, all_day`

func (r *CalendarRepository) Calendars(ctx context.Context) ([]store.Calendar, error) {
	var rows []calendarRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT "+calendarColumns+" FROM calendars c ORDER BY c.sort_index, c.id")
	if err != nil {
		return nil, fmt.Errorf("listing calendars: %w", err)
	}
	calendars := make([]store.Calendar, len(rows))
	for i, row := range rows {
		calendars[i] = store.Calendar(row)
	}
	return calendars, nil
}

func (r *CalendarRepository) Calendar(ctx context.Context, id string) (store.Calendar, error) {
	var row calendarRow
	err := r.db.GetContext(ctx, &row, "SELECT "+calendarColumns+" FROM calendars c WHERE c.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Calendar{}, store.ErrNotFound
	}
	if err != nil {
		return store.Calendar{}, fmt.Errorf("getting calendar: %w", err)
	}
	return store.Calendar(row), nil
}

func (r *CalendarRepository) calendarExists(ctx context.Context, id string) error {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM calendars WHERE id = ?", id); err != nil {
		return fmt.Errorf("checking calendar: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Events expands every series of the calendar that can reach [from, to).
func (r *CalendarRepository) Events(ctx context.Context, calendarID string, from, to time.Time) ([]store.Event, error) {
	if err := r.calendarExists(ctx, calendarID); err != nil {
		return nil, err
	}

	var rows []eventRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+eventColumns+` FROM events
		 WHERE calendar_id = ? AND start_at < ? AND (rrule <> '' OR end_at >= ?)`,
		calendarID, toMillis(to), toMillis(from))
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	exceptions, err := r.exceptionsFor(ctx, r.db, rows)
	if err != nil {
		return nil, err
	}

	var out []store.Event
	for _, row := range rows {
		occ, err := recurrence.Expand(row.toStore(), exceptions[row.ID], from, to)
		if err != nil {
			return nil, fmt.Errorf("expanding event %s: %w", row.ID, err)
		}
		out = append(out, occ...)
	}
	slices.SortStableFunc(out, func(a, b store.Event) int { return a.Start.Compare(b.Start) })
	return out, nil
}

func (r *CalendarRepository) exceptionsFor(ctx context.Context, q sqlx.QueryerContext, rows []eventRow) (map[string][]recurrence.Exception, error) {
	var ids []string
	for _, row := range rows {
		if row.RRule != "" {
			ids = append(ids, row.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In("SELECT "+exceptionColumns+" FROM event_exceptions WHERE series_id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("building exceptions query: %w", err)
	}
	var exRows []exceptionRow
	if err := sqlx.SelectContext(ctx, q, &exRows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing event exceptions: %w", err)
	}

	out := make(map[string][]recurrence.Exception, len(ids))
	for _, ex := range exRows {
		out[ex.SeriesID] = append(out[ex.SeriesID], ex.toException())
	}
	return out, nil
}

func (r *CalendarRepository) event(ctx context.Context, q sqlx.QueryerContext, id string) (eventRow, error) {
	var row eventRow
	err := sqlx.GetContext(ctx, q, &row, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return eventRow{}, store.ErrNotFound
	}
	if err != nil {
		return eventRow{}, fmt.Errorf("getting event: %w", err)
	}
	return row, nil
}

func (r *CalendarRepository) Event(ctx context.Context, id string) (store.Event, error) {
	row, err := r.event(ctx, r.db, id)
	if err != nil {
		return store.Event{}, err
	}
	return row.toStore(), nil
}

func (r *CalendarRepository) Occurrence(ctx context.Context, seriesID string, occurrenceStart time.Time) (store.Event, error) {
	row, err := r.event(ctx, r.db, seriesID)
	if err != nil {
		return store.Event{}, err
	}
	exceptions, err := r.exceptionsFor(ctx, r.db, []eventRow{row})
	if err != nil {
		return store.Event{}, err
	}
	e, err := recurrence.Occurrence(row.toStore(), exceptions[row.ID], occurrenceStart)
	if errors.Is(err, recurrence.ErrNoSuchOccurrence) {
		return store.Event{}, store.ErrNotFound
	}
	if err != nil {
		return store.Event{}, fmt.Errorf("resolving occurrence: %w", err)
	}
	return e, nil
}

func (r *CalendarRepository) CreateEvent(ctx context.Context, e store.Event) (store.Event, error) {
	if err := r.calendarExists(ctx, e.CalendarID); err != nil {
		return store.Event{}, err
	}
	e.ID = uuid.New().String()
	e.OccurrenceStart = time.Time{}
	e.Detached = false
	if err := insertEvent(ctx, r.db, e); err != nil {
		return store.Event{}, err
	}
	return e, nil
}

func insertEvent(ctx context.Context, db sqlx.ExecerContext, e store.Event) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO events (id, calendar_id, title, notes, location, start_at, end_at, all_day, rrule)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CalendarID, e.Title, e.Notes, e.Location,
		toMillis(e.Start), toMillis(e.End), e.AllDay, e.RecurrenceRule,
	)
	if err != nil {
		return fmt.Errorf("creating event: %w", err)
	}
	return nil
}

// UpdateEvent rewrites a whole event or series. The calendar is kept.
func (r *CalendarRepository) UpdateEvent(ctx context.Context, e store.Event) (store.Event, error) {
	current, err := r.event(ctx, r.db, e.ID)
	if err != nil {
		return store.Event{}, err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE events SET title = ?, notes = ?, location = ?, start_at = ?, end_at = ?, all_day = ?, rrule = ?
		 WHERE id = ?`,
		e.Title, e.Notes, e.Location, toMillis(e.Start), toMillis(e.End), e.AllDay, e.RecurrenceRule, e.ID,
	)
	if err != nil {
		return store.Event{}, fmt.Errorf("updating event: %w", err)
	}
	e.CalendarID = current.CalendarID
	e.OccurrenceStart = time.Time{}
	e.Detached = false
	return e, nil
}

func (r *CalendarRepository) DeleteEvent(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM event_exceptions WHERE series_id = ?", id); err != nil {
			return fmt.Errorf("deleting event exceptions: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting event: %w", err)
		}
		return affectedOne(res, store.ErrNotFound)
	})
}

func (r *CalendarRepository) SaveOccurrence(ctx context.Context, e store.Event) (store.Event, error) {
	err := r.putException(ctx, e.ID, exceptionRow{
		SeriesID:        e.ID,
		OccurrenceStart: toMillis(e.OccurrenceStart),
		Title:           e.Title,
		Notes:           e.Notes,
		Location:        e.Location,
		StartAt:         toMillis(e.Start),
		EndAt:           toMillis(e.End),
		AllDay:          e.AllDay,
	})
	if err != nil {
		return store.Event{}, err
	}
	e.Detached = true
	return e, nil
}

func (r *CalendarRepository) CancelOccurrence(ctx context.Context, seriesID string, occurrenceStart time.Time) error {
	start := toMillis(occurrenceStart)
	return r.putException(ctx, seriesID, exceptionRow{
		SeriesID:        seriesID,
		OccurrenceStart: start,
		Cancelled:       true,
		StartAt:         start,
		EndAt:           start,
	})
}

// putException replaces the exception for one occurrence of a series.
func (r *CalendarRepository) putException(ctx context.Context, seriesID string, ex exceptionRow) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := r.event(ctx, tx, seriesID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"DELETE FROM event_exceptions WHERE series_id = ? AND occurrence_start = ?",
			ex.SeriesID, ex.OccurrenceStart)
		if err != nil {
			return fmt.Errorf("clearing event exception: %w", err)
		}
		_, err = tx.NamedExecContext(ctx,
			`INSERT INTO event_exceptions (`+exceptionColumns+`)
			 VALUES (:series_id, :occurrence_start, :cancelled, :title, :notes, :location, :start_at, :end_at, :all_day)`,
			ex)
		if err != nil {
			return fmt.Errorf("saving event exception: %w", err)
		}
		return nil
	})
}

func (r *CalendarRepository) TerminateSeries(ctx context.Context, seriesID string, before time.Time) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := r.terminate(ctx, tx, seriesID, before)
		return err
	})
}

// SplitSeries ends the series before the cut and inserts its continuation in
// one transaction.
func (r *CalendarRepository) SplitSeries(ctx context.Context, seriesID string, before time.Time, next store.Event) (store.Event, error) {
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		row, err := r.terminate(ctx, tx, seriesID, before)
		if err != nil {
			return err
		}
		next.ID = uuid.New().String()
		next.CalendarID = row.CalendarID
		next.OccurrenceStart = time.Time{}
		next.Detached = false
		return insertEvent(ctx, tx, next)
	})
	if err != nil {
		return store.Event{}, err
	}
	return next, nil
}

// terminate rewrites the series rule so nothing starts at or after before and
// drops the exceptions past the cut.
func (r *CalendarRepository) terminate(ctx context.Context, tx *sqlx.Tx, seriesID string, before time.Time) (eventRow, error) {
	row, err := r.event(ctx, tx, seriesID)
	if err != nil {
		return eventRow{}, err
	}
	rule, err := recurrence.TerminateRule(row.RRule, fromMillis(row.StartAt), before)
	if err != nil {
		return eventRow{}, fmt.Errorf("terminating series: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE events SET rrule = ? WHERE id = ?", rule, seriesID); err != nil {
		return eventRow{}, fmt.Errorf("updating series rule: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		"DELETE FROM event_exceptions WHERE series_id = ? AND occurrence_start >= ?",
		seriesID, toMillis(before))
	if err != nil {
		return eventRow{}, fmt.Errorf("dropping series exceptions: %w", err)
	}
	return row, nil
}

// SupportedSpans reports that the library applies both spans natively.
func (r *CalendarRepository) SupportedSpans() []store.Span {
	return []store.Span{store.SpanThisEvent, store.SpanFutureEvents}
}

func (r *CalendarRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
