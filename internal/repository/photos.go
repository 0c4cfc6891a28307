package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/icloudbridge/bridge/internal/store"
)

type PhotoRepository struct {
	db *sqlx.DB
}

func NewPhotoRepository(db *sqlx.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

type albumRow struct {
	ID         string        `db:"id"`
	Title      string        `db:"title"`
	AlbumType  string        `db:"album_type"`
	PhotoCount int           `db:"photo_count"`
	VideoCount int           `db:"video_count"`
	StartAt    sql.NullInt64 `db:"start_at"`
	EndAt      sql.NullInt64 `db:"end_at"`
}

func (r albumRow) toStore() store.Album {
	return store.Album{
		ID:         r.ID,
		Title:      r.Title,
		AlbumType:  r.AlbumType,
		PhotoCount: r.PhotoCount,
		VideoCount: r.VideoCount,
		StartDate:  fromNullMillis(r.StartAt),
		EndDate:    fromNullMillis(r.EndAt),
	}
}

type photoRow struct {
	ID          string        `db:"id"`
	AlbumID     string        `db:"album_id"`
	SortIndex   int           `db:"sort_index"`
	MediaType   string        `db:"media_type"`
	CreatedAt   int64         `db:"created_at"`
	ModifiedAt  sql.NullInt64 `db:"modified_at"`
	Width       int           `db:"width"`
	Height      int           `db:"height"`
	IsFavorite  bool          `db:"is_favorite"`
	IsHidden    bool          `db:"is_hidden"`
	Filename    string        `db:"filename"`
	FileSize    int64         `db:"file_size"`
	ImageFormat string        `db:"image_format"`
	VideoFormat string        `db:"video_format"`
	CloudKey    string        `db:"cloud_key"`
}

func (r photoRow) toStore() store.Photo {
	return store.Photo{
		ID:               r.ID,
		AlbumID:          r.AlbumID,
		MediaType:        store.MediaType(r.MediaType),
		CreationDate:     fromMillis(r.CreatedAt),
		ModificationDate: fromNullMillis(r.ModifiedAt),
		Width:            r.Width,
		Height:           r.Height,
		IsFavorite:       r.IsFavorite,
		IsHidden:         r.IsHidden,
		Filename:         r.Filename,
		FileSize:         r.FileSize,
		ImageFormat:      r.ImageFormat,
		VideoFormat:      r.VideoFormat,
	}
}

const albumColumns = `a.id, a.title, a.album_type, a.start_at, a.end_at,
	(SELECT COUNT(*) FROM photos p WHERE p.album_id = a.id AND p.media_type <> 'video') AS photo_count,
	(SELECT COUNT(*) FROM photos p WHERE p.album_id = a.id AND p.media_type = 'video') AS video_count`

const photoColumns = `id, album_id, sort_index, media_type, created_at, modified_at, width, height,
	is_favorite, is_hidden, filename, file_size, image_format, video_format, cloud_key`

func (r *PhotoRepository) Albums(ctx context.Context) ([]store.Album, error) {
	var rows []albumRow
	err := r.db.SelectContext(ctx, &rows, "SELECT "+albumColumns+" FROM albums a ORDER BY a.sort_index, a.id")
	if err != nil {
		return nil, fmt.Errorf("listing albums: %w", err)
	}
	albums := make([]store.Album, len(rows))
	for i, row := range rows {
		albums[i] = row.toStore()
	}
	return albums, nil
}

func (r *PhotoRepository) Album(ctx context.Context, id string) (store.Album, error) {
	var row albumRow
	err := r.db.GetContext(ctx, &row, "SELECT "+albumColumns+" FROM albums a WHERE a.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Album{}, store.ErrNotFound
	}
	if err != nil {
		return store.Album{}, fmt.Errorf("getting album: %w", err)
	}
	return row.toStore(), nil
}

// Photos returns the album's items in album order.
func (r *PhotoRepository) Photos(ctx context.Context, albumID string) ([]store.Photo, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM albums WHERE id = ?", albumID); err != nil {
		return nil, fmt.Errorf("checking album: %w", err)
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}

	var rows []photoRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT "+photoColumns+" FROM photos WHERE album_id = ? ORDER BY sort_index, id", albumID)
	if err != nil {
		return nil, fmt.Errorf("listing photos: %w", err)
	}
	photos := make([]store.Photo, len(rows))
	for i, row := range rows {
		photos[i] = row.toStore()
	}
	return photos, nil
}

func (r *PhotoRepository) Photo(ctx context.Context, id string) (store.Photo, error) {
	row, err := r.photo(ctx, id)
	if err != nil {
		return store.Photo{}, err
	}
	return row.toStore(), nil
}

func (r *PhotoRepository) photo(ctx context.Context, id string) (photoRow, error) {
	var row photoRow
	err := r.db.GetContext(ctx, &row, "SELECT "+photoColumns+" FROM photos WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return photoRow{}, store.ErrNotFound
	}
	if err != nil {
		return photoRow{}, fmt.Errorf("getting photo: %w", err)
	}
	return row, nil
}
