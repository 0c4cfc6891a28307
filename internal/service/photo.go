package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/icloudbridge/bridge/internal/asset"
	"github.com/icloudbridge/bridge/internal/model"
	"github.com/icloudbridge/bridge/internal/pagination"
	"github.com/icloudbridge/bridge/internal/store"
	"github.com/icloudbridge/bridge/internal/visibility"
)

var (
	ErrInvalidMediaFilter = errors.New("type must be one of photo, video, live, all")
	ErrInvalidSize        = errors.New("size must be small or medium")
)

// MediaFilter narrows an album listing by media type.
type MediaFilter string

const (
	FilterAll   MediaFilter = "all"
	FilterPhoto MediaFilter = "photo"
	FilterVideo MediaFilter = "video"
	FilterLive  MediaFilter = "live"
)

// ParseMediaFilter validates s. Empty means FilterAll.
func ParseMediaFilter(s string) (MediaFilter, error) {
	switch MediaFilter(s) {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPhoto, FilterVideo, FilterLive:
		return MediaFilter(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMediaFilter, s)
}

// Matches reports whether p passes the filter. Each filter but FilterAll
// matches exactly one media type.
func (f MediaFilter) Matches(p store.Photo) bool {
	switch f {
	case FilterPhoto:
		return p.MediaType == store.MediaPhoto
	case FilterVideo:
		return p.MediaType == store.MediaVideo
	case FilterLive:
		return p.MediaType == store.MediaLivePhoto
	}
	return true
}

// ParseThumbnailSize validates s. Empty means medium.
func ParseThumbnailSize(s string) (store.ThumbnailSize, error) {
	switch store.ThumbnailSize(s) {
	case "":
		return store.ThumbnailMedium, nil
	case store.ThumbnailSmall, store.ThumbnailMedium:
		return store.ThumbnailSize(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSize, s)
}

var photoKeys = pagination.Keys[store.Photo]{
	Date: func(p store.Photo) time.Time { return p.CreationDate },
	ID:   func(p store.Photo) string { return p.ID },
}

// PhotoService exposes the selected albums, their items and item assets.
type PhotoService struct {
	photos      store.Photos
	fetcher     *asset.Fetcher
	settings    SnapshotSource
	limits      pagination.Limits
	waitTimeout time.Duration
}

// NewPhotoService creates a new PhotoService. waitTimeout bounds how long an
// asset request asking to wait is held while its download runs.
func NewPhotoService(photos store.Photos, fetcher *asset.Fetcher, settings SnapshotSource, limits pagination.Limits, waitTimeout time.Duration) *PhotoService {
	return &PhotoService{
		photos:      photos,
		fetcher:     fetcher,
		settings:    settings,
		limits:      limits,
		waitTimeout: waitTimeout,
	}
}

// Albums returns the exposed albums in store order.
func (s *PhotoService) Albums(ctx context.Context) ([]model.Album, error) {
	live, err := s.photos.Albums(ctx)
	if err != nil {
		return nil, storeError(err)
	}

	exposed := visibility.ListExposed(filterOf(s.settings), store.KindAlbum, live)
	out := make([]model.Album, len(exposed))
	for i, a := range exposed {
		out[i] = albumToModel(a)
	}
	return out, nil
}

// Album returns one exposed album.
func (s *PhotoService) Album(ctx context.Context, id string) (model.Album, error) {
	if !filterOf(s.settings).IsExposed(store.KindAlbum, id) {
		return model.Album{}, ErrNotFound
	}
	a, err := s.photos.Album(ctx, id)
	if err != nil {
		return model.Album{}, storeError(err)
	}
	return albumToModel(a), nil
}

// Photos returns one page of an exposed album. query carries limit, offset,
// sort and type.
func (s *PhotoService) Photos(ctx context.Context, albumID string, query url.Values) (model.PhotoPage, error) {
	req, err := pagination.ParseRequest(query, s.limits)
	if err != nil {
		return model.PhotoPage{}, invalid(err)
	}
	filter, err := ParseMediaFilter(query.Get("type"))
	if err != nil {
		return model.PhotoPage{}, invalid(err)
	}
	if !filterOf(s.settings).IsExposed(store.KindAlbum, albumID) {
		return model.PhotoPage{}, ErrNotFound
	}

	items, err := s.photos.Photos(ctx, albumID)
	if err != nil {
		return model.PhotoPage{}, storeError(err)
	}
	if filter != FilterAll {
		kept := items[:0:0]
		for _, p := range items {
			if filter.Matches(p) {
				kept = append(kept, p)
			}
		}
		items = kept
	}

	page := pagination.Paginate(items, req, photoKeys)
	out := model.PhotoPage{
		Photos: make([]model.Photo, len(page.Items)),
		Total:  page.Total,
		Offset: page.Offset,
		Limit:  page.Limit,
		Sort:   string(page.Sort),
	}
	for i, p := range page.Items {
		out.Photos[i] = photoToModel(p)
	}
	return out, nil
}

// Photo returns one item of an exposed album.
func (s *PhotoService) Photo(ctx context.Context, id string) (model.Photo, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return model.Photo{}, err
	}
	return photoToModel(p), nil
}

func (s *PhotoService) get(ctx context.Context, id string) (store.Photo, error) {
	p, err := s.photos.Photo(ctx, id)
	if err != nil {
		return store.Photo{}, storeError(err)
	}
	if !filterOf(s.settings).IsExposed(store.KindAlbum, p.AlbumID) {
		return store.Photo{}, ErrNotFound
	}
	return p, nil
}

// AssetRequest addresses one rendition of an item.
type AssetRequest struct {
	PhotoID string
	Kind    store.AssetKind
	// Size applies to thumbnails only; empty means medium.
	Size string
	// Wait holds the request while a download runs, up to the wait timeout.
	Wait bool
}

// Asset returns the rendition when resident. Otherwise the result reports
// asset.Downloading with a polling hint and the download runs in the
// background. A failed download surfaces once as the mapped store error.
func (s *PhotoService) Asset(ctx context.Context, req AssetRequest) (asset.Result, error) {
	key := store.AssetKey{PhotoID: req.PhotoID, Kind: req.Kind}
	if req.Kind == store.AssetThumbnail {
		size, err := ParseThumbnailSize(req.Size)
		if err != nil {
			return asset.Result{}, invalid(err)
		}
		key.Size = size
	}

	p, err := s.get(ctx, req.PhotoID)
	if err != nil {
		return asset.Result{}, err
	}
	if !p.Supports(req.Kind) {
		return asset.Result{}, ErrNotFound
	}

	var res asset.Result
	if req.Wait {
		res, err = s.fetcher.Wait(ctx, key, s.waitTimeout)
	} else {
		res, err = s.fetcher.Fetch(ctx, key)
	}
	if err != nil {
		return asset.Result{}, storeError(err)
	}
	return res, nil
}

func albumToModel(a store.Album) model.Album {
	return model.Album{
		ID:         a.ID,
		Title:      a.Title,
		AlbumType:  a.AlbumType,
		PhotoCount: a.PhotoCount,
		VideoCount: a.VideoCount,
		StartDate:  a.StartDate,
		EndDate:    a.EndDate,
	}
}

func photoToModel(p store.Photo) model.Photo {
	return model.Photo{
		ID:               p.ID,
		AlbumID:          p.AlbumID,
		MediaType:        string(p.MediaType),
		CreationDate:     p.CreationDate,
		ModificationDate: p.ModificationDate,
		Width:            p.Width,
		Height:           p.Height,
		IsFavorite:       p.IsFavorite,
		IsHidden:         p.IsHidden,
		Filename:         p.Filename,
		FileSize:         p.FileSize,
	}
}
