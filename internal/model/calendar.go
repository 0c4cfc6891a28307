package model

import "time"

// Calendar is an event calendar as exposed over the API.
type Calendar struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Color      string `json:"color,omitempty"`
	EventCount int    `json:"eventCount"`
}

// Event is an event or one occurrence of a recurring series. For occurrences
// ID addresses the single occurrence and SeriesID the whole series.
type Event struct {
	ID             string     `json:"id"`
	SeriesID       string     `json:"seriesId,omitempty"`
	CalendarID     string     `json:"calendarId"`
	Title          string     `json:"title"`
	Notes          string     `json:"notes,omitempty"`
	Location       string     `json:"location,omitempty"`
	StartDate      time.Time  `json:"startDate"`
	EndDate        time.Time  `json:"endDate"`
	IsAllDay       bool       `json:"isAllDay"`
	RecurrenceRule string     `json:"recurrenceRule,omitempty"`
	OccurrenceDate *time.Time `json:"occurrenceDate,omitempty"`
	IsDetached     bool       `json:"isDetached,omitempty"`
}

// CreateEventRequest is the body of POST /calendars/{id}/events.
type CreateEventRequest struct {
	Title          string    `json:"title" validate:"required,max=1024"`
	Notes          string    `json:"notes" validate:"max=65536"`
	Location       string    `json:"location" validate:"max=1024"`
	StartDate      time.Time `json:"startDate" validate:"required"`
	EndDate        time.Time `json:"endDate" validate:"required,gtefield=StartDate"`
	IsAllDay       bool      `json:"isAllDay"`
	RecurrenceRule string    `json:"recurrenceRule" validate:"omitempty,rrule"`
}

// UpdateEventRequest is the body of PUT /events/{id}. Absent fields are left
// unchanged.
type UpdateEventRequest struct {
	Title          *string    `json:"title" validate:"omitnil,min=1,max=1024"`
	Notes          *string    `json:"notes" validate:"omitnil,max=65536"`
	Location       *string    `json:"location" validate:"omitnil,max=1024"`
	StartDate      *time.Time `json:"startDate"`
	EndDate        *time.Time `json:"endDate"`
	IsAllDay       *bool      `json:"isAllDay"`
	RecurrenceRule *string    `json:"recurrenceRule" validate:"omitnil,rrule"`
}
