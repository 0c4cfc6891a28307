package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/icloudbridge/bridge/internal/store"
)

func TestReminderListsOrderAndCounts(t *testing.T) {
	lib := newTestLibrary(t, nil)

	lists, err := lib.ReminderLists(context.Background())
	if err != nil {
		t.Fatalf("ReminderLists() unexpected error: %v", err)
	}
	if len(lists) != 2 {
		t.Fatalf("ReminderLists() returned %d lists, want 2", len(lists))
	}
	if lists[0].ID != "list-a" || lists[1].ID != "list-b" {
		t.Errorf("list order = %s, %s", lists[0].ID, lists[1].ID)
	}
	if lists[0].ReminderCount != 2 || lists[1].ReminderCount != 0 {
		t.Errorf("counts = %d, %d", lists[0].ReminderCount, lists[1].ReminderCount)
	}

	l, err := lib.ReminderList(context.Background(), "list-a")
	if err != nil {
		t.Fatalf("ReminderList() unexpected error: %v", err)
	}
	if l.Title != "Groceries" || l.Color != "#ff0000" {
		t.Errorf("ReminderList() = %+v", l)
	}

	if _, err := lib.ReminderList(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ReminderList(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRemindersInCreationOrder(t *testing.T) {
	lib := newTestLibrary(t, nil)

	reminders, err := lib.Reminders(context.Background(), "list-a")
	if err != nil {
		t.Fatalf("Reminders() unexpected error: %v", err)
	}
	if len(reminders) != 2 || reminders[0].ID != "rem-1" || reminders[1].ID != "rem-2" {
		t.Fatalf("Reminders() = %+v", reminders)
	}

	done := reminders[1]
	if !done.IsCompleted || done.Priority != 1 {
		t.Errorf("rem-2 = %+v", done)
	}
	want := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	if done.CompletionDate == nil || !done.CompletionDate.Equal(want) {
		t.Errorf("rem-2 completion = %v, want %v", done.CompletionDate, want)
	}
	if reminders[0].DueDate != nil {
		t.Errorf("rem-1 due = %v, want nil", reminders[0].DueDate)
	}

	if _, err := lib.Reminders(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Reminders(missing) error = %v, want ErrNotFound", err)
	}
}

func TestReminderLifecycle(t *testing.T) {
	lib := newTestLibrary(t, nil)
	ctx := context.Background()
	due := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

	created, err := lib.CreateReminder(ctx, store.Reminder{ListID: "list-b", Title: "Ship it", DueDate: &due})
	if err != nil {
		t.Fatalf("CreateReminder() unexpected error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("CreateReminder() returned empty id")
	}

	got, err := lib.Reminder(ctx, created.ID)
	if err != nil {
		t.Fatalf("Reminder() unexpected error: %v", err)
	}
	if got.Title != "Ship it" || got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("Reminder() = %+v", got)
	}

	got.Title = "Shipped"
	got.IsCompleted = true
	got.ListID = "list-a"
	updated, err := lib.UpdateReminder(ctx, got)
	if err != nil {
		t.Fatalf("UpdateReminder() unexpected error: %v", err)
	}
	if updated.ListID != "list-b" {
		t.Errorf("UpdateReminder() moved reminder to %s", updated.ListID)
	}
	if got, _ := lib.Reminder(ctx, created.ID); got.Title != "Shipped" || !got.IsCompleted {
		t.Errorf("after update = %+v", got)
	}

	if err := lib.DeleteReminder(ctx, created.ID); err != nil {
		t.Fatalf("DeleteReminder() unexpected error: %v", err)
	}
	if err := lib.DeleteReminder(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second DeleteReminder() error = %v, want ErrNotFound", err)
	}
	if _, err := lib.UpdateReminder(ctx, got); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UpdateReminder(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestCreateReminderUnknownList(t *testing.T) {
	lib := newTestLibrary(t, nil)

	_, err := lib.CreateReminder(context.Background(), store.Reminder{ListID: "missing", Title: "x"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("CreateReminder() error = %v, want ErrNotFound", err)
	}
}
