package model

import "time"

// ReminderList is a reminders list as exposed over the API.
type ReminderList struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Color         string `json:"color,omitempty"`
	ReminderCount int    `json:"reminderCount"`
}

// Reminder is a single reminder as exposed over the API.
type Reminder struct {
	ID             string     `json:"id"`
	ListID         string     `json:"listId"`
	Title          string     `json:"title"`
	Notes          string     `json:"notes,omitempty"`
	IsCompleted    bool       `json:"isCompleted"`
	Priority       int        `json:"priority"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	CompletionDate *time.Time `json:"completionDate,omitempty"`
}

// CreateReminderRequest is the body of POST /lists/{id}/reminders.
// Priority follows the Reminders scale: 0 none, 1 high, 5 medium, 9 low.
type CreateReminderRequest struct {
	Title    string     `json:"title" validate:"required,max=1024"`
	Notes    string     `json:"notes" validate:"max=65536"`
	Priority int        `json:"priority" validate:"oneof=0 1 5 9"`
	DueDate  *time.Time `json:"dueDate"`
}

// UpdateReminderRequest is the body of PUT /reminders/{id}. Absent fields are
// left unchanged.
type UpdateReminderRequest struct {
	Title       *string    `json:"title" validate:"omitnil,min=1,max=1024"`
	Notes       *string    `json:"notes" validate:"omitnil,max=65536"`
	IsCompleted *bool      `json:"isCompleted"`
	Priority    *int       `json:"priority" validate:"omitnil,oneof=0 1 5 9"`
	DueDate     *time.Time `json:"dueDate"`
}
