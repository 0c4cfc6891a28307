package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/icloudbridge/bridge/internal/model"
	"github.com/icloudbridge/bridge/internal/store"
	"github.com/icloudbridge/bridge/internal/store/storetest"
)

func newTestReminderService() (*ReminderService, *storetest.Memory) {
	mem := storetest.NewMemory()
	mem.AddList(store.ReminderList{ID: "home", Title: "Home"})
	mem.AddList(store.ReminderList{ID: "work", Title: "Work"})
	mem.AddReminder(store.Reminder{ID: "r1", ListID: "home", Title: "Buy milk"})
	mem.AddReminder(store.Reminder{ID: "r2", ListID: "home", Title: "Call mum", IsCompleted: true})
	mem.AddReminder(store.Reminder{ID: "r3", ListID: "work", Title: "Expenses"})

	svc := NewReminderService(mem, selecting(map[store.Kind][]string{store.KindList: {"home", "gone"}}))
	return svc, mem
}

func TestListsOnlyExposed(t *testing.T) {
	svc, _ := newTestReminderService()

	lists, err := svc.Lists(context.Background())
	if err != nil {
		t.Fatalf("Lists() unexpected error: %v", err)
	}
	if len(lists) != 1 || lists[0].ID != "home" {
		t.Fatalf("expected only the home list, got %+v", lists)
	}
	if lists[0].ReminderCount != 2 {
		t.Errorf("expected reminderCount 2, got %d", lists[0].ReminderCount)
	}
}

func TestUnselectedListLooksMissing(t *testing.T) {
	svc, _ := newTestReminderService()
	ctx := context.Background()

	_, errHidden := svc.List(ctx, "work")
	_, errMissing := svc.List(ctx, "nope")
	if !errors.Is(errHidden, ErrNotFound) || !errors.Is(errMissing, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for both, got %v and %v", errHidden, errMissing)
	}

	if _, err := svc.Reminder(ctx, "r3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for reminder in hidden list, got %v", err)
	}
	if _, err := svc.Reminders(ctx, "work", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for hidden list items, got %v", err)
	}
	if err := svc.DeleteReminder(ctx, "r3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting from hidden list, got %v", err)
	}
}

func TestRemindersIncludeCompleted(t *testing.T) {
	svc, _ := newTestReminderService()
	ctx := context.Background()

	open, err := svc.Reminders(ctx, "home", false)
	if err != nil {
		t.Fatalf("Reminders() unexpected error: %v", err)
	}
	if len(open) != 1 || open[0].ID != "r1" {
		t.Errorf("expected only r1, got %+v", open)
	}

	all, err := svc.Reminders(ctx, "home", true)
	if err != nil {
		t.Fatalf("Reminders() unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 reminders, got %d", len(all))
	}
}

func TestCreateReminder(t *testing.T) {
	svc, _ := newTestReminderService()
	ctx := context.Background()

	due := time.Date(2024, 6, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	r, err := svc.CreateReminder(ctx, "home", model.CreateReminderRequest{Title: "Water plants", Priority: 1, DueDate: &due})
	if err != nil {
		t.Fatalf("CreateReminder() unexpected error: %v", err)
	}
	if r.ID == "" || r.ListID != "home" {
		t.Errorf("unexpected reminder %+v", r)
	}
	if r.DueDate == nil || !r.DueDate.Equal(due) || r.DueDate.Location() != time.UTC {
		t.Errorf("expected due date in UTC, got %v", r.DueDate)
	}
}

func TestCreateReminderValidation(t *testing.T) {
	svc, _ := newTestReminderService()

	_, err := svc.CreateReminder(context.Background(), "home", model.CreateReminderRequest{Title: ""})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}

	// Malformed input is rejected before visibility is consulted.
	_, err = svc.CreateReminder(context.Background(), "work", model.CreateReminderRequest{Title: ""})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for hidden list, got %v", err)
	}
	_, err = svc.UpdateReminder(context.Background(), "r3", model.UpdateReminderRequest{Title: strPtr("")})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation updating hidden reminder, got %v", err)
	}
}

func TestUpdateReminderCompletion(t *testing.T) {
	svc, mem := newTestReminderService()
	fixed := time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	r, err := svc.UpdateReminder(ctx, "r1", model.UpdateReminderRequest{IsCompleted: boolPtr(true), Title: strPtr("Buy oat milk")})
	if err != nil {
		t.Fatalf("UpdateReminder() unexpected error: %v", err)
	}
	if !r.IsCompleted || r.CompletionDate == nil || !r.CompletionDate.Equal(fixed) {
		t.Errorf("expected completion at %v, got %+v", fixed, r)
	}

	stored, _ := mem.Reminder(ctx, "r1")
	if stored.Title != "Buy oat milk" {
		t.Errorf("expected stored title update, got %q", stored.Title)
	}

	r, err = svc.UpdateReminder(ctx, "r1", model.UpdateReminderRequest{IsCompleted: boolPtr(false)})
	if err != nil {
		t.Fatalf("UpdateReminder() unexpected error: %v", err)
	}
	if r.IsCompleted || r.CompletionDate != nil {
		t.Errorf("expected completion cleared, got %+v", r)
	}
}

func TestStoreErrorMapping(t *testing.T) {
	tests := []struct {
		in   error
		want error
	}{
		{store.ErrNotFound, ErrNotFound},
		{store.ErrGone, ErrNotFound},
		{store.ErrPermissionDenied, ErrForbidden},
		{store.ErrUnavailable, ErrUnavailable},
		{errors.New("boom"), ErrUnavailable},
	}
	for _, tt := range tests {
		got := storeError(tt.in)
		if !errors.Is(got, tt.want) {
			t.Errorf("storeError(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if !errors.Is(got, tt.in) {
			t.Errorf("storeError(%v) lost the cause", tt.in)
		}
	}
	if storeError(nil) != nil {
		t.Error("storeError(nil) must be nil")
	}
}
