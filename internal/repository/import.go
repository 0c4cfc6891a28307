package repository

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"

	"github.com/icloudbridge/bridge/internal/recurrence"
	"github.com/icloudbridge/bridge/internal/store"
)

// Manifest is a snapshot of library metadata as exported by the cloud side.
// Importing it upserts every entity by id; nothing absent is deleted.
type Manifest struct {
	Lists     []ManifestList     `json:"lists"`
	Calendars []ManifestCalendar `json:"calendars"`
	Albums    []ManifestAlbum    `json:"albums"`
}

type ManifestList struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Color     string             `json:"color"`
	Reminders []ManifestReminder `json:"reminders"`
}

type ManifestReminder struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Notes          string     `json:"notes"`
	IsCompleted    bool       `json:"isCompleted"`
	Priority       int        `json:"priority"`
	DueDate        *time.Time `json:"dueDate"`
	CompletionDate *time.Time `json:"completionDate"`
	CreationDate   *time.Time `json:"creationDate"`
}

type ManifestCalendar struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Color  string          `json:"color"`
	Events []ManifestEvent `json:"events"`
}

type ManifestEvent struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Notes          string    `json:"notes"`
	Location       string    `json:"location"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	IsAllDay       bool      `json:"isAllDay"`
	RecurrenceRule string    `json:"recurrenceRule"`
}

type ManifestAlbum struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	AlbumType string          `json:"albumType"`
	StartDate *time.Time      `json:"startDate"`
	EndDate   *time.Time      `json:"endDate"`
	Photos    []ManifestPhoto `json:"photos"`
}

type ManifestPhoto struct {
	ID               string     `json:"id"`
	MediaType        string     `json:"mediaType"`
	CreationDate     time.Time  `json:"creationDate"`
	ModificationDate *time.Time `json:"modificationDate"`
	Width            int        `json:"width"`
	Height           int        `json:"height"`
	IsFavorite       bool       `json:"isFavorite"`
	IsHidden         bool       `json:"isHidden"`
	Filename         string     `json:"filename"`
	FileSize         int64      `json:"fileSize"`
	ImageFormat      string     `json:"imageFormat"`
	VideoFormat      string     `json:"videoFormat"`
	CloudKey         string     `json:"cloudKey"`
}

// ImportStats counts the entities written by Import.
type ImportStats struct {
	Lists     int
	Reminders int
	Calendars int
	Events    int
	Albums    int
	Photos    int
}

func (s ImportStats) String() string {
	return fmt.Sprintf("%d lists, %d reminders, %d calendars, %d events, %d albums, %d photos",
		s.Lists, s.Reminders, s.Calendars, s.Events, s.Albums, s.Photos)
}

// DecodeManifest reads and checks a manifest document.
func DecodeManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decoding manifest: %w", err)
	}
	for _, c := range m.Calendars {
		for _, e := range c.Events {
			if e.RecurrenceRule == "" {
				continue
			}
			if err := recurrence.ValidateRule(e.RecurrenceRule); err != nil {
				return Manifest{}, fmt.Errorf("event %s: %w", e.ID, err)
			}
		}
	}
	for _, a := range m.Albums {
		for _, p := range a.Photos {
			switch store.MediaType(p.MediaType) {
			case store.MediaPhoto, store.MediaVideo, store.MediaLivePhoto:
			default:
				return Manifest{}, fmt.Errorf("photo %s: unknown media type %q", p.ID, p.MediaType)
			}
		}
	}
	return m, nil
}

// Import writes the manifest into the library database in one transaction.
// Sort order follows the manifest order.
func Import(ctx context.Context, db *sqlx.DB, m Manifest) (ImportStats, error) {
	var stats ImportStats
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for i, list := range m.Lists {
		err := upsert(ctx, tx, "reminder_lists", list.ID,
			"UPDATE reminder_lists SET title = ?, color = ?, sort_index = ? WHERE id = ?",
			[]any{list.Title, list.Color, i, list.ID},
			"INSERT INTO reminder_lists (id, title, color, sort_index) VALUES (?, ?, ?, ?)",
			[]any{list.ID, list.Title, list.Color, i})
		if err != nil {
			return stats, err
		}
		stats.Lists++

		for j, rem := range list.Reminders {
			created := now.Add(time.Duration(j) * time.Millisecond)
			if rem.CreationDate != nil {
				created = *rem.CreationDate
			}
			err := upsert(ctx, tx, "reminders", rem.ID,
				`UPDATE reminders SET list_id = ?, title = ?, notes = ?, is_completed = ?, priority = ?,
				 due_at = ?, completed_at = ?, created_at = ? WHERE id = ?`,
				[]any{list.ID, rem.Title, rem.Notes, rem.IsCompleted, rem.Priority,
					nullMillis(rem.DueDate), nullMillis(rem.CompletionDate), toMillis(created), rem.ID},
				`INSERT INTO reminders (id, list_id, title, notes, is_completed, priority, due_at, completed_at, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				[]any{rem.ID, list.ID, rem.Title, rem.Notes, rem.IsCompleted, rem.Priority,
					nullMillis(rem.DueDate), nullMillis(rem.CompletionDate), toMillis(created)})
			if err != nil {
				return stats, err
			}
			stats.Reminders++
		}
	}

	for i, cal := range m.Calendars {
		err := upsert(ctx, tx, "calendars", cal.ID,
			"UPDATE calendars SET title = ?, color = ?, sort_index = ? WHERE id = ?",
			[]any{cal.Title, cal.Color, i, cal.ID},
			"INSERT INTO calendars (id, title, color, sort_index) VALUES (?, ?, ?, ?)",
			[]any{cal.ID, cal.Title, cal.Color, i})
		if err != nil {
			return stats, err
		}
		stats.Calendars++

		for _, ev := range cal.Events {
			start, end := toMillis(ev.StartDate), toMillis(ev.EndDate)
			err := upsert(ctx, tx, "events", ev.ID,
				`UPDATE events SET calendar_id = ?, title = ?, notes = ?, location = ?, start_at = ?,
				 end_at = ?, all_day = ?, rrule = ? WHERE id = ?`,
				[]any{cal.ID, ev.Title, ev.Notes, ev.Location, start, end, ev.IsAllDay, ev.RecurrenceRule, ev.ID},
				`INSERT INTO events (id, calendar_id, title, notes, location, start_at, end_at, all_day, rrule)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				[]any{ev.ID, cal.ID, ev.Title, ev.Notes, ev.Location, start, end, ev.IsAllDay, ev.RecurrenceRule})
			if err != nil {
				return stats, err
			}
			stats.Events++
		}
	}

	for i, album := range m.Albums {
		albumType := album.AlbumType
		if albumType == "" {
			albumType = "user"
		}
		err := upsert(ctx, tx, "albums", album.ID,
			"UPDATE albums SET title = ?, album_type = ?, sort_index = ?, start_at = ?, end_at = ? WHERE id = ?",
			[]any{album.Title, albumType, i, nullMillis(album.StartDate), nullMillis(album.EndDate), album.ID},
			"INSERT INTO albums (id, title, album_type, sort_index, start_at, end_at) VALUES (?, ?, ?, ?, ?, ?)",
			[]any{album.ID, album.Title, albumType, i, nullMillis(album.StartDate), nullMillis(album.EndDate)})
		if err != nil {
			return stats, err
		}
		stats.Albums++

		for j, p := range album.Photos {
			row := photoRow{
				ID:          p.ID,
				AlbumID:     album.ID,
				SortIndex:   j,
				MediaType:   p.MediaType,
				CreatedAt:   toMillis(p.CreationDate),
				ModifiedAt:  nullMillis(p.ModificationDate),
				Width:       p.Width,
				Height:      p.Height,
				IsFavorite:  p.IsFavorite,
				IsHidden:    p.IsHidden,
				Filename:    p.Filename,
				FileSize:    p.FileSize,
				ImageFormat: defaultString(p.ImageFormat, "jpeg"),
				VideoFormat: defaultString(p.VideoFormat, "mp4"),
				CloudKey:    p.CloudKey,
			}
			if err := upsertPhoto(ctx, tx, row); err != nil {
				return stats, err
			}
			stats.Photos++
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("committing import: %w", err)
	}
	return stats, nil
}

// upsert runs update when a row with id exists in table and insert otherwise.
func upsert(ctx context.Context, tx *sqlx.Tx, table, id, update string, updateArgs []any, insert string, insertArgs []any) error {
	var n int
	if err := tx.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("checking %s %s: %w", table, id, err)
	}
	if n > 0 {
		if _, err := tx.ExecContext(ctx, update, updateArgs...); err != nil {
			return fmt.Errorf("updating %s %s: %w", table, id, err)
		}
		return nil
	}
	if _, err := tx.ExecContext(ctx, insert, insertArgs...); err != nil {
		return fmt.Errorf("inserting %s %s: %w", table, id, err)
	}
	return nil
}

func upsertPhoto(ctx context.Context, tx *sqlx.Tx, row photoRow) error {
	var n int
	if err := tx.GetContext(ctx, &n, "SELECT COUNT(*) FROM photos WHERE id = ?", row.ID); err != nil {
		return fmt.Errorf("checking photo %s: %w", row.ID, err)
	}
	query := `INSERT INTO photos (` + photoColumns + `) VALUES (:id, :album_id, :sort_index, :media_type,
		:created_at, :modified_at, :width, :height, :is_favorite, :is_hidden, :filename, :file_size,
		:image_format, :video_format, :cloud_key)`
	if n > 0 {
		query = `UPDATE photos SET album_id = :album_id, sort_index = :sort_index, media_type = :media_type,
			created_at = :created_at, modified_at = :modified_at, width = :width, height = :height,
			is_favorite = :is_favorite, is_hidden = :is_hidden, filename = :filename, file_size = :file_size,
			image_format = :image_format, video_format = :video_format, cloud_key = :cloud_key
			WHERE id = :id`
	}
	if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("saving photo %s: %w", row.ID, err)
	}
	return nil
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
