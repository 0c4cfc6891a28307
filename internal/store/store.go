// Package store defines the capability the bridge calls into: the personal-data
// stores (reminders, calendars, photos) and the asynchronous asset download.
// Implementations own all state; the bridge only holds values for the duration
// of one request.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrGone             = errors.New("resource no longer exists")
	ErrPermissionDenied = errors.New("permission denied by store")
	ErrUnavailable      = errors.New("store temporarily unavailable")
	ErrNotResident      = errors.New("asset not resident")
)

// Kind names a family of exposable entities.
type Kind string

const (
	KindList     Kind = "lists"
	KindCalendar Kind = "calendars"
	KindAlbum    Kind = "albums"
)

// Kinds lists every exposable kind.
func Kinds() []Kind {
	return []Kind{KindList, KindCalendar, KindAlbum}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindList, KindCalendar, KindAlbum:
		return true
	}
	return false
}

// Entity is anything the visibility filter can select.
type Entity interface {
	EntityID() string
}

// ReminderList is a Reminders list.
type ReminderList struct {
	ID            string
	Title         string
	Color         string
	ReminderCount int
}

func (l ReminderList) EntityID() string { return l.ID }

// Reminder is a single reminder item.
type Reminder struct {
	ID             string
	ListID         string
	Title          string
	Notes          string
	IsCompleted    bool
	Priority       int
	DueDate        *time.Time
	CompletionDate *time.Time
}

// Calendar is an event calendar.
type Calendar struct {
	ID         string
	Title      string
	Color      string
	EventCount int
}

func (c Calendar) EntityID() string { return c.ID }

// Event is either a single event or one occurrence of a recurring series.
// For occurrences, ID is the series identifier and OccurrenceStart is the
// original (unmodified) start of the occurrence.
type Event struct {
	ID              string
	CalendarID      string
	Title           string
	Notes           string
	Location        string
	Start           time.Time
	End             time.Time
	AllDay          bool
	RecurrenceRule  string
	OccurrenceStart time.Time
	Detached        bool
}

// IsRecurring reports whether the event belongs to a recurring series.
func (e Event) IsRecurring() bool {
	return e.RecurrenceRule != ""
}

// Span selects which occurrences of a recurring event a mutation affects.
type Span string

const (
	SpanThisEvent    Span = "thisEvent"
	SpanFutureEvents Span = "futureEvents"
)

// Album is a photo album.
type Album struct {
	ID         string
	Title      string
	AlbumType  string
	PhotoCount int
	VideoCount int
	StartDate  *time.Time
	EndDate    *time.Time
}

func (a Album) EntityID() string { return a.ID }

// MediaType is the kind of library item.
type MediaType string

const (
	MediaPhoto     MediaType = "photo"
	MediaVideo     MediaType = "video"
	MediaLivePhoto MediaType = "livePhoto"
)

// Photo is a photo library item.
type Photo struct {
	ID               string
	AlbumID          string
	MediaType        MediaType
	CreationDate     time.Time
	ModificationDate *time.Time
	Width            int
	Height           int
	IsFavorite       bool
	IsHidden         bool
	Filename         string
	FileSize         int64
	ImageFormat      string
	VideoFormat      string
}

// Reminders is the reminders capability.
type Reminders interface {
	ReminderLists(ctx context.Context) ([]ReminderList, error)
	ReminderList(ctx context.Context, id string) (ReminderList, error)
	Reminders(ctx context.Context, listID string) ([]Reminder, error)
	Reminder(ctx context.Context, id string) (Reminder, error)
	CreateReminder(ctx context.Context, r Reminder) (Reminder, error)
	UpdateReminder(ctx context.Context, r Reminder) (Reminder, error)
	DeleteReminder(ctx context.Context, id string) error
}

// Calendars is the calendar capability. The occurrence and series operations
// are the primitives recurring edits are expressed in.
type Calendars interface {
	Calendars(ctx context.Context) ([]Calendar, error)
	Calendar(ctx context.Context, id string) (Calendar, error)
	// Events returns the occurrences overlapping [from, to) ordered by start.
	Events(ctx context.Context, calendarID string, from, to time.Time) ([]Event, error)
	// Event returns a stored event or series as created (first occurrence).
	Event(ctx context.Context, id string) (Event, error)
	// Occurrence returns one occurrence of a series by its original start.
	Occurrence(ctx context.Context, seriesID string, occurrenceStart time.Time) (Event, error)
	CreateEvent(ctx context.Context, e Event) (Event, error)
	UpdateEvent(ctx context.Context, e Event) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
	// SaveOccurrence detaches e.OccurrenceStart of series e.ID with e's fields.
	SaveOccurrence(ctx context.Context, e Event) (Event, error)
	CancelOccurrence(ctx context.Context, seriesID string, occurrenceStart time.Time) error
	// TerminateSeries ends the series so that no occurrence starts at or after before.
	TerminateSeries(ctx context.Context, seriesID string, before time.Time) error
	// SplitSeries terminates the series before the given start and creates
	// next as a new series in the same calendar. Either both happen or neither.
	SplitSeries(ctx context.Context, seriesID string, before time.Time, next Event) (Event, error)
	SupportedSpans() []Span
}

// Photos is the photo library metadata capability.
type Photos interface {
	Albums(ctx context.Context) ([]Album, error)
	Album(ctx context.Context, id string) (Album, error)
	// Photos returns the album's items in album order.
	Photos(ctx context.Context, albumID string) ([]Photo, error)
	Photo(ctx context.Context, id string) (Photo, error)
}

// Assets is the binary asset capability. Asset never blocks on the network:
// it returns ErrNotResident when Download must run first.
type Assets interface {
	Asset(ctx context.Context, key AssetKey) (Asset, error)
	Download(ctx context.Context, key AssetKey) error
}

// Store bundles every capability.
type Store interface {
	Reminders
	Calendars
	Photos
	Assets
}
