package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/icloudbridge/bridge/internal/store"
)

func TestAlbumsWithCounts(t *testing.T) {
	lib := newTestLibrary(t, nil)

	albums, err := lib.Albums(context.Background())
	if err != nil {
		t.Fatalf("Albums() unexpected error: %v", err)
	}
	if len(albums) != 2 || albums[0].ID != "album-1" || albums[1].ID != "album-0" {
		t.Fatalf("Albums() = %+v", albums)
	}
	if albums[0].PhotoCount != 2 || albums[0].VideoCount != 1 {
		t.Errorf("album-1 counts = %d photos, %d videos", albums[0].PhotoCount, albums[0].VideoCount)
	}
	if albums[0].AlbumType != "user" || albums[1].AlbumType != "smart" {
		t.Errorf("album types = %s, %s", albums[0].AlbumType, albums[1].AlbumType)
	}

	if _, err := lib.Album(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Album(missing) error = %v, want ErrNotFound", err)
	}
}

func TestPhotosInAlbumOrder(t *testing.T) {
	lib := newTestLibrary(t, nil)

	photos, err := lib.Photos(context.Background(), "album-1")
	if err != nil {
		t.Fatalf("Photos() unexpected error: %v", err)
	}
	if len(photos) != 3 || photos[0].ID != "p1" || photos[1].ID != "p2" || photos[2].ID != "p3" {
		t.Fatalf("Photos() = %+v", photos)
	}
	if photos[1].MediaType != store.MediaVideo || photos[1].VideoFormat != "mov" {
		t.Errorf("p2 = %+v", photos[1])
	}
	if photos[0].ImageFormat != "jpeg" || photos[0].VideoFormat != "mp4" {
		t.Errorf("p1 formats = %s, %s", photos[0].ImageFormat, photos[0].VideoFormat)
	}

	empty, err := lib.Photos(context.Background(), "album-0")
	if err != nil {
		t.Fatalf("Photos() unexpected error: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Photos(album-0) = %d items, want 0", len(empty))
	}

	if _, err := lib.Photos(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Photos(missing) error = %v, want ErrNotFound", err)
	}
}

func TestPhoto(t *testing.T) {
	lib := newTestLibrary(t, nil)

	p, err := lib.Photo(context.Background(), "p3")
	if err != nil {
		t.Fatalf("Photo() unexpected error: %v", err)
	}
	if p.MediaType != store.MediaLivePhoto || p.ImageFormat != "heic" || p.AlbumID != "album-1" {
		t.Errorf("Photo() = %+v", p)
	}
	if _, err := lib.Photo(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Photo(missing) error = %v, want ErrNotFound", err)
	}
}
