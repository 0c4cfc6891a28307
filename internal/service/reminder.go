package service

import (
	"context"
	"time"

	"github.com/icloudbridge/bridge/internal/model"
	"github.com/icloudbridge/bridge/internal/store"
	"github.com/icloudbridge/bridge/internal/validation"
	"github.com/icloudbridge/bridge/internal/visibility"
)

// ReminderService exposes the selected reminder lists and their items.
type ReminderService struct {
	reminders store.Reminders
	settings  SnapshotSource
	now       func() time.Time
}

// NewReminderService creates a new ReminderService.
func NewReminderService(reminders store.Reminders, settings SnapshotSource) *ReminderService {
	return &ReminderService{reminders: reminders, settings: settings, now: time.Now}
}

// Lists returns the exposed reminder lists in store order.
func (s *ReminderService) Lists(ctx context.Context) ([]model.ReminderList, error) {
	live, err := s.reminders.ReminderLists(ctx)
	if err != nil {
		return nil, storeError(err)
	}

	exposed := visibility.ListExposed(filterOf(s.settings), store.KindList, live)
	out := make([]model.ReminderList, len(exposed))
	for i, l := range exposed {
		out[i] = listToModel(l)
	}
	return out, nil
}

// List returns one exposed list.
func (s *ReminderService) List(ctx context.Context, id string) (model.ReminderList, error) {
	if !filterOf(s.settings).IsExposed(store.KindList, id) {
		return model.ReminderList{}, ErrNotFound
	}
	l, err := s.reminders.ReminderList(ctx, id)
	if err != nil {
		return model.ReminderList{}, storeError(err)
	}
	return listToModel(l), nil
}

// Reminders returns the items of an exposed list. Completed items are left
// out unless includeCompleted is set.
func (s *ReminderService) Reminders(ctx context.Context, listID string, includeCompleted bool) ([]model.Reminder, error) {
	if !filterOf(s.settings).IsExposed(store.KindList, listID) {
		return nil, ErrNotFound
	}
	items, err := s.reminders.Reminders(ctx, listID)
	if err != nil {
		return nil, storeError(err)
	}

	out := make([]model.Reminder, 0, len(items))
	for _, r := range items {
		if r.IsCompleted && !includeCompleted {
			continue
		}
		out = append(out, reminderToModel(r))
	}
	return out, nil
}

// Reminder returns one item whose list is exposed.
func (s *ReminderService) Reminder(ctx context.Context, id string) (model.Reminder, error) {
	r, err := s.get(ctx, id)
	if err != nil {
		return model.Reminder{}, err
	}
	return reminderToModel(r), nil
}

func (s *ReminderService) get(ctx context.Context, id string) (store.Reminder, error) {
	r, err := s.reminders.Reminder(ctx, id)
	if err != nil {
		return store.Reminder{}, storeError(err)
	}
	if !filterOf(s.settings).IsExposed(store.KindList, r.ListID) {
		return store.Reminder{}, ErrNotFound
	}
	return r, nil
}

// CreateReminder adds an item to an exposed list.
func (s *ReminderService) CreateReminder(ctx context.Context, listID string, req model.CreateReminderRequest) (model.Reminder, error) {
	if err := validation.Struct(req); err != nil {
		return model.Reminder{}, invalid(err)
	}
	if !filterOf(s.settings).IsExposed(store.KindList, listID) {
		return model.Reminder{}, ErrNotFound
	}

	created, err := s.reminders.CreateReminder(ctx, store.Reminder{
		ListID:   listID,
		Title:    req.Title,
		Notes:    req.Notes,
		Priority: req.Priority,
		DueDate:  utcPtr(req.DueDate),
	})
	if err != nil {
		return model.Reminder{}, storeError(err)
	}
	return reminderToModel(created), nil
}

// UpdateReminder applies the fields present in req.
func (s *ReminderService) UpdateReminder(ctx context.Context, id string, req model.UpdateReminderRequest) (model.Reminder, error) {
	if err := validation.Struct(req); err != nil {
		return model.Reminder{}, invalid(err)
	}
	r, err := s.get(ctx, id)
	if err != nil {
		return model.Reminder{}, err
	}

	if req.Title != nil {
		r.Title = *req.Title
	}
	if req.Notes != nil {
		r.Notes = *req.Notes
	}
	if req.Priority != nil {
		r.Priority = *req.Priority
	}
	if req.DueDate != nil {
		r.DueDate = utcPtr(req.DueDate)
	}
	if req.IsCompleted != nil && *req.IsCompleted != r.IsCompleted {
		r.IsCompleted = *req.IsCompleted
		if r.IsCompleted {
			now := s.now().UTC()
			r.CompletionDate = &now
		} else {
			r.CompletionDate = nil
		}
	}

	updated, err := s.reminders.UpdateReminder(ctx, r)
	if err != nil {
		return model.Reminder{}, storeError(err)
	}
	return reminderToModel(updated), nil
}

// DeleteReminder removes one item whose list is exposed.
func (s *ReminderService) DeleteReminder(ctx context.Context, id string) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	return storeError(s.reminders.DeleteReminder(ctx, id))
}

func listToModel(l store.ReminderList) model.ReminderList {
	return model.ReminderList{
		ID:            l.ID,
		Title:         l.Title,
		Color:         l.Color,
		ReminderCount: l.ReminderCount,
	}
}

func reminderToModel(r store.Reminder) model.Reminder {
	return model.Reminder{
		ID:             r.ID,
		ListID:         r.ListID,
		Title:          r.Title,
		Notes:          r.Notes,
		IsCompleted:    r.IsCompleted,
		Priority:       r.Priority,
		DueDate:        r.DueDate,
		CompletionDate: r.CompletionDate,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
