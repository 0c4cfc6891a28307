package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/icloudbridge/bridge/internal/store"
)

type ReminderRepository struct {
	db *sqlx.DB
}

func NewReminderRepository(db *sqlx.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

type listRow struct {
	ID            string `db:"id"`
	Title         string `db:"title"`
	Color         string `db:"color"`
	ReminderCount int    `db:"reminder_count"`
}

func (r listRow) toStore() store.ReminderList {
	return store.ReminderList{ID: r.ID, Title: r.Title, Color: r.Color, ReminderCount: r.ReminderCount}
}

type reminderRow struct {
	ID          string        `db:"id"`
	ListID      string        `db:"list_id"`
	Title       string        `db:"title"`
	Notes       string        `db:"notes"`
	IsCompleted bool          `db:"is_completed"`
	Priority    int           `db:"priority"`
	DueAt       sql.NullInt64 `db:"due_at"`
	CompletedAt sql.NullInt64 `db:"completed_at"`
}

func (r reminderRow) toStore() store.Reminder {
	return store.Reminder{
		ID:             r.ID,
		ListID:         r.ListID,
		Title:          r.Title,
		Notes:          r.Notes,
		IsCompleted:    r.IsCompleted,
		Priority:       r.Priority,
		DueDate:        fromNullMillis(r.DueAt),
		CompletionDate: fromNullMillis(r.CompletedAt),
	}
}

const listColumns = `l.id, l.title, l.color,
	(SELECT COUNT(*) FROM reminders r WHERE r.list_id = l.id) AS reminder_count`

const reminderColumns = `id, list_id, title, notes, is_completed, priority, due_at, completed_at`

func (r *ReminderRepository) ReminderLists(ctx context.Context) ([]store.ReminderList, error) {
	var rows []listRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT "+listColumns+" FROM reminder_lists l ORDER BY l.sort_index, l.id")
	if err != nil {
		return nil, fmt.Errorf("listing reminder lists: %w", err)
	}
	lists := make([]store.ReminderList, len(rows))
	for i, row := range rows {
		lists[i] = row.toStore()
	}
	return lists, nil
}

func (r *ReminderRepository) ReminderList(ctx context.Context, id string) (store.ReminderList, error) {
	var row listRow
	err := r.db.GetContext(ctx, &row, "SELECT "+listColumns+" FROM reminder_lists l WHERE l.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ReminderList{}, store.ErrNotFound
	}
	if err != nil {
		return store.ReminderList{}, fmt.Errorf("getting reminder list: %w", err)
	}
	return row.toStore(), nil
}

func (r *ReminderRepository) listExists(ctx context.Context, id string) error {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM reminder_lists WHERE id = ?", id); err != nil {
		return fmt.Errorf("checking reminder list: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Reminders returns the list's reminders in creation order.
func (r *ReminderRepository) Reminders(ctx context.Context, listID string) ([]store.Reminder, error) {
	if err := r.listExists(ctx, listID); err != nil {
		return nil, err
	}
	var rows []reminderRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT "+reminderColumns+" FROM reminders WHERE list_id = ? ORDER BY created_at, id", listID)
	if err != nil {
		return nil, fmt.Errorf("listing reminders: %w", err)
	}
	reminders := make([]store.Reminder, len(rows))
	for i, row := range rows {
		reminders[i] = row.toStore()
	}
	return reminders, nil
}

func (r *ReminderRepository) Reminder(ctx context.Context, id string) (store.Reminder, error) {
	var row reminderRow
	err := r.db.GetContext(ctx, &row, "SELECT "+reminderColumns+" FROM reminders WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Reminder{}, store.ErrNotFound
	}
	if err != nil {
		return store.Reminder{}, fmt.Errorf("getting reminder: %w", err)
	}
	return row.toStore(), nil
}

func (r *ReminderRepository) CreateReminder(ctx context.Context, rem store.Reminder) (store.Reminder, error) {
	if err := r.listExists(ctx, rem.ListID); err != nil {
		return store.Reminder{}, err
	}
	rem.ID = uuid.New().String()
	if err := insertReminder(ctx, r.db, rem, time.Now()); err != nil {
		return store.Reminder{}, err
	}
	return rem, nil
}

func insertReminder(ctx context.Context, db sqlx.ExecerContext, rem store.Reminder, createdAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO reminders (id, list_id, title, notes, is_completed, priority, due_at, completed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rem.ID, rem.ListID, rem.Title, rem.Notes, rem.IsCompleted, rem.Priority,
		nullMillis(rem.DueDate), nullMillis(rem.CompletionDate), toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("creating reminder: %w", err)
	}
	return nil
}

// UpdateReminder overwrites the mutable fields of an existing reminder. The
// list a reminder belongs to never changes.
func (r *ReminderRepository) UpdateReminder(ctx context.Context, rem store.Reminder) (store.Reminder, error) {
	current, err := r.Reminder(ctx, rem.ID)
	if err != nil {
		return store.Reminder{}, err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE reminders SET title = ?, notes = ?, is_completed = ?, priority = ?, due_at = ?, completed_at = ?
		 WHERE id = ?`,
		rem.Title, rem.Notes, rem.IsCompleted, rem.Priority,
		nullMillis(rem.DueDate), nullMillis(rem.CompletionDate), rem.ID,
	)
	if err != nil {
		return store.Reminder{}, fmt.Errorf("updating reminder: %w", err)
	}
	rem.ListID = current.ListID
	return rem, nil
}

func (r *ReminderRepository) DeleteReminder(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reminders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting reminder: %w", err)
	}
	return affectedOne(res, store.ErrNotFound)
}
