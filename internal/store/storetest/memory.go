// Package storetest provides an in-memory store for tests.
package storetest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/icloudbridge/bridge/internal/recurrence"
	"github.com/icloudbridge/bridge/internal/store"
)

type series struct {
	event      store.Event
	exceptions []recurrence.Exception
}

// Memory is a store.Store held in memory. Assets start remote: Asset reports
// ErrNotResident until Download has moved them in.
type Memory struct {
	mu sync.Mutex

	lists     []store.ReminderList
	reminders []store.Reminder

	calendars []store.Calendar
	events    []*series

	albums      []store.Album
	albumPhotos map[string][]string
	photos      map[string]store.Photo

	remote    map[string][]byte
	resident  map[string][]byte
	failures  map[string]error
	downloads map[string]int

	// Gate, when set, holds every Download until it receives or is closed.
	Gate chan struct{}
	// Spans overrides the supported spans. Nil means both.
	Spans []store.Span
	// FailCreate, when set, is returned by every event creation, including
	// the second half of SplitSeries.
	FailCreate error

	nextID int
}

var _ store.Store = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		albumPhotos: make(map[string][]string),
		photos:      make(map[string]store.Photo),
		remote:      make(map[string][]byte),
		resident:    make(map[string][]byte),
		failures:    make(map[string]error),
		downloads:   make(map[string]int),
	}
}

func (m *Memory) newID(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

// AddList seeds a reminder list.
func (m *Memory) AddList(l store.ReminderList) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists = append(m.lists, l)
}

// AddReminder seeds a reminder. An empty ID is assigned.
func (m *Memory) AddReminder(r store.Reminder) store.Reminder {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = m.newID("rem")
	}
	m.reminders = append(m.reminders, r)
	return r
}

// AddCalendar seeds a calendar.
func (m *Memory) AddCalendar(c store.Calendar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calendars = append(m.calendars, c)
}

// AddEvent seeds an event or series. An empty ID is assigned.
func (m *Memory) AddEvent(e store.Event) store.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = m.newID("evt")
	}
	m.events = append(m.events, &series{event: e})
	return e
}

// AddAlbum seeds an album.
func (m *Memory) AddAlbum(a store.Album) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.albums = append(m.albums, a)
}

// AddPhoto seeds a photo at the end of its album.
func (m *Memory) AddPhoto(p store.Photo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos[p.ID] = p
	m.albumPhotos[p.AlbumID] = append(m.albumPhotos[p.AlbumID], p.ID)
}

// SetRemote makes key downloadable with data.
func (m *Memory) SetRemote(key store.AssetKey, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remote[key.String()] = data
}

// SetResident makes key immediately available.
func (m *Memory) SetResident(key store.AssetKey, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resident[key.String()] = data
}

// FailDownload makes downloads of key fail with err.
func (m *Memory) FailDownload(key store.AssetKey, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, key.String())
		return
	}
	m.failures[key.String()] = err
}

// Downloads returns how many times Download ran for key.
func (m *Memory) Downloads(key store.AssetKey) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.downloads[key.String()]
}

func (m *Memory) ReminderLists(_ context.Context) ([]store.ReminderList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.ReminderList, len(m.lists))
	for i, l := range m.lists {
		out[i] = m.countReminders(l)
	}
	return out, nil
}

func (m *Memory) countReminders(l store.ReminderList) store.ReminderList {
	l.ReminderCount = 0
	for _, r := range m.reminders {
		if r.ListID == l.ID {
			l.ReminderCount++
		}
	}
	return l
}

func (m *Memory) ReminderList(_ context.Context, id string) (store.ReminderList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.lists {
		if l.ID == id {
			return m.countReminders(l), nil
		}
	}
	return store.ReminderList{}, store.ErrNotFound
}

func (m *Memory) hasList(id string) bool {
	return slices.ContainsFunc(m.lists, func(l store.ReminderList) bool { return l.ID == id })
}

func (m *Memory) Reminders(_ context.Context, listID string) ([]store.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasList(listID) {
		return nil, store.ErrNotFound
	}
	var out []store.Reminder
	for _, r := range m.reminders {
		if r.ListID == listID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) Reminder(_ context.Context, id string) (store.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reminders {
		if r.ID == id {
			return r, nil
		}
	}
	return store.Reminder{}, store.ErrNotFound
}

func (m *Memory) CreateReminder(_ context.Context, r store.Reminder) (store.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasList(r.ListID) {
		return store.Reminder{}, store.ErrNotFound
	}
	r.ID = m.newID("rem")
	m.reminders = append(m.reminders, r)
	return r, nil
}

func (m *Memory) UpdateReminder(_ context.Context, r store.Reminder) (store.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.reminders {
		if m.reminders[i].ID == r.ID {
			m.reminders[i] = r
			return r, nil
		}
	}
	return store.Reminder{}, store.ErrNotFound
}

func (m *Memory) DeleteReminder(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.reminders)
	m.reminders = slices.DeleteFunc(m.reminders, func(r store.Reminder) bool { return r.ID == id })
	if len(m.reminders) == n {
		return store.ErrNotFound
	}
	return nil
}

func (m *Memory) Calendars(_ context.Context) ([]store.Calendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Calendar, len(m.calendars))
	for i, c := range m.calendars {
		out[i] = m.countEvents(c)
	}
	return out, nil
}

func (m *Memory) countEvents(c store.Calendar) store.Calendar {
	c.EventCount = 0
	for _, s := range m.events {
		if s.event.CalendarID == c.ID {
			c.EventCount++
		}
	}
	return c
}

func (m *Memory) Calendar(_ context.Context, id string) (store.Calendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calendars {
		if c.ID == id {
			return m.countEvents(c), nil
		}
	}
	return store.Calendar{}, store.ErrNotFound
}

func (m *Memory) hasCalendar(id string) bool {
	return slices.ContainsFunc(m.calendars, func(c store.Calendar) bool { return c.ID == id })
}

func (m *Memory) findSeries(id string) (*series, bool) {
	for _, s := range m.events {
		if s.event.ID == id {
			return s, true
		}
	}
	return nil, false
}

func (m *Memory) Events(_ context.Context, calendarID string, from, to time.Time) ([]store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasCalendar(calendarID) {
		return nil, store.ErrNotFound
	}
	var out []store.Event
	for _, s := range m.events {
		if s.event.CalendarID != calendarID {
			continue
		}
		occ, err := recurrence.Expand(s.event, s.exceptions, from, to)
		if err != nil {
			return nil, err
		}
		out = append(out, occ...)
	}
	slices.SortStableFunc(out, func(a, b store.Event) int { return a.Start.Compare(b.Start) })
	return out, nil
}

func (m *Memory) Event(_ context.Context, id string) (store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.findSeries(id)
	if !ok {
		return store.Event{}, store.ErrNotFound
	}
	return s.event, nil
}

func (m *Memory) Occurrence(_ context.Context, seriesID string, occurrenceStart time.Time) (store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.findSeries(seriesID)
	if !ok {
		return store.Event{}, store.ErrNotFound
	}
	e, err := recurrence.Occurrence(s.event, s.exceptions, occurrenceStart)
	if err != nil {
		return store.Event{}, store.ErrNotFound
	}
	return e, nil
}

func (m *Memory) CreateEvent(_ context.Context, e store.Event) (store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasCalendar(e.CalendarID) {
		return store.Event{}, store.ErrNotFound
	}
	if m.FailCreate != nil {
		return store.Event{}, m.FailCreate
	}
	e.ID = m.newID("evt")
	e.OccurrenceStart = time.Time{}
	e.Detached = false
	m.events = append(m.events, &series{event: e})
	return e, nil
}

func (m *Memory) UpdateEvent(_ context.Context, e store.Event) (store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.findSeries(e.ID)
	if !ok {
		return store.Event{}, store.ErrNotFound
	}
	e.OccurrenceStart = time.Time{}
	e.Detached = false
	s.event = e
	return e, nil
}

func (m *Memory) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.events)
	m.events = slices.DeleteFunc(m.events, func(s *series) bool { return s.event.ID == id })
	if len(m.events) == n {
		return store.ErrNotFound
	}
	return nil
}

func (m *Memory) setException(s *series, ex recurrence.Exception) {
	s.exceptions = slices.DeleteFunc(s.exceptions, func(old recurrence.Exception) bool {
		return old.OccurrenceStart.Equal(ex.OccurrenceStart)
	})
	s.exceptions = append(s.exceptions, ex)
}

func (m *Memory) SaveOccurrence(_ context.Context, e store.Event) (store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.findSeries(e.ID)
	if !ok {
		return store.Event{}, store.ErrNotFound
	}
	e.Detached = true
	m.setException(s, recurrence.Exception{OccurrenceStart: e.OccurrenceStart, Override: e})
	return e, nil
}

func (m *Memory) CancelOccurrence(_ context.Context, seriesID string, occurrenceStart time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.findSeries(seriesID)
	if !ok {
		return store.ErrNotFound
	}
	m.setException(s, recurrence.Exception{OccurrenceStart: occurrenceStart, Cancelled: true})
	return nil
}

func (m *Memory) TerminateSeries(_ context.Context, seriesID string, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.findSeries(seriesID)
	if !ok {
		return store.ErrNotFound
	}
	rule, err := recurrence.TerminateRule(s.event.RecurrenceRule, s.event.Start, before)
	if err != nil {
		return err
	}
	s.event.RecurrenceRule = rule
	s.exceptions = slices.DeleteFunc(s.exceptions, func(ex recurrence.Exception) bool {
		return !ex.OccurrenceStart.Before(before)
	})
	return nil
}

func (m *Memory) SplitSeries(_ context.Context, seriesID string, before time.Time, next store.Event) (store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.findSeries(seriesID)
	if !ok {
		return store.Event{}, store.ErrNotFound
	}
	rule, err := recurrence.TerminateRule(s.event.RecurrenceRule, s.event.Start, before)
	if err != nil {
		return store.Event{}, err
	}
	if m.FailCreate != nil {
		return store.Event{}, m.FailCreate
	}

	s.event.RecurrenceRule = rule
	s.exceptions = slices.DeleteFunc(s.exceptions, func(ex recurrence.Exception) bool {
		return !ex.OccurrenceStart.Before(before)
	})
	next.ID = m.newID("evt")
	next.CalendarID = s.event.CalendarID
	next.OccurrenceStart = time.Time{}
	next.Detached = false
	m.events = append(m.events, &series{event: next})
	return next, nil
}

func (m *Memory) SupportedSpans() []store.Span {
	if m.Spans != nil {
		return m.Spans
	}
	return []store.Span{store.SpanThisEvent, store.SpanFutureEvents}
}

func (m *Memory) Albums(_ context.Context) ([]store.Album, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Album, len(m.albums))
	for i, a := range m.albums {
		out[i] = m.countPhotos(a)
	}
	return out, nil
}

func (m *Memory) countPhotos(a store.Album) store.Album {
	a.PhotoCount, a.VideoCount = 0, 0
	for _, id := range m.albumPhotos[a.ID] {
		if m.photos[id].MediaType == store.MediaVideo {
			a.VideoCount++
		} else {
			a.PhotoCount++
		}
	}
	return a
}

func (m *Memory) Album(_ context.Context, id string) (store.Album, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.albums {
		if a.ID == id {
			return m.countPhotos(a), nil
		}
	}
	return store.Album{}, store.ErrNotFound
}

func (m *Memory) Photos(_ context.Context, albumID string) ([]store.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.ContainsFunc(m.albums, func(a store.Album) bool { return a.ID == albumID }) {
		return nil, store.ErrNotFound
	}
	ids := m.albumPhotos[albumID]
	out := make([]store.Photo, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.photos[id])
	}
	return out, nil
}

func (m *Memory) Photo(_ context.Context, id string) (store.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[id]
	if !ok {
		return store.Photo{}, store.ErrNotFound
	}
	return p, nil
}

func (m *Memory) Asset(_ context.Context, key store.AssetKey) (store.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[key.PhotoID]
	if !ok {
		return store.Asset{}, store.ErrNotFound
	}
	data, ok := m.resident[key.String()]
	if !ok {
		return store.Asset{}, store.ErrNotResident
	}
	return store.Asset{Data: data, MimeType: store.MimeType(p, key.Kind)}, nil
}

func (m *Memory) Download(ctx context.Context, key store.AssetKey) error {
	m.mu.Lock()
	m.downloads[key.String()]++
	gate := m.Gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[key.String()]; err != nil {
		return err
	}
	data, ok := m.remote[key.String()]
	if !ok {
		return store.ErrGone
	}
	m.resident[key.String()] = data
	return nil
}
