package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/icloudbridge/bridge/internal/store"
)

// Library is the local personal-data store: metadata in SQL, resident asset
// payloads in the blob store, the rest fetched from the cloud origin.
type Library struct {
	*ReminderRepository
	*CalendarRepository
	*PhotoRepository

	blobs *BlobStore
	cloud *CloudClient
}

var _ store.Store = (*Library)(nil)

func NewLibrary(db *sqlx.DB, blobs *BlobStore, cloud *CloudClient) *Library {
	return &Library{
		ReminderRepository: NewReminderRepository(db),
		CalendarRepository: NewCalendarRepository(db),
		PhotoRepository:    NewPhotoRepository(db),
		blobs:              blobs,
		cloud:              cloud,
	}
}

// Asset returns a resident payload. It never touches the network.
func (l *Library) Asset(ctx context.Context, key store.AssetKey) (store.Asset, error) {
	row, err := l.photo(ctx, key.PhotoID)
	if err != nil {
		return store.Asset{}, err
	}
	p := row.toStore()
	if !p.Supports(key.Kind) {
		return store.Asset{}, store.ErrNotFound
	}

	data, err := l.blobs.Get(key)
	if errors.Is(err, ErrBlobNotFound) {
		return store.Asset{}, store.ErrNotResident
	}
	if err != nil {
		return store.Asset{}, fmt.Errorf("%w: reading blob: %w", store.ErrUnavailable, err)
	}
	return store.Asset{Data: data, MimeType: store.MimeType(p, key.Kind)}, nil
}

// Download makes the asset resident, fetching it from the cloud origin when
// it is not already on disk.
func (l *Library) Download(ctx context.Context, key store.AssetKey) error {
	row, err := l.photo(ctx, key.PhotoID)
	if err != nil {
		return err
	}
	if !row.toStore().Supports(key.Kind) {
		return store.ErrNotFound
	}

	resident, err := l.blobs.Has(key)
	if err != nil {
		return fmt.Errorf("%w: reading blob: %w", store.ErrUnavailable, err)
	}
	if resident {
		return nil
	}

	data, err := l.cloud.Fetch(ctx, row.CloudKey, key)
	if err != nil {
		return err
	}
	if err := l.blobs.Put(key, data); err != nil {
		return fmt.Errorf("%w: writing blob: %w", store.ErrUnavailable, err)
	}
	return nil
}

