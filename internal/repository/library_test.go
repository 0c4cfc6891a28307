package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/icloudbridge/bridge/internal/store"
)

func TestLibraryDownloadMakesAssetResident(t *testing.T) {
	origin, cloud := newOrigin(t)
	lib := newTestLibrary(t, cloud)
	ctx := context.Background()
	key := store.AssetKey{PhotoID: "p1", Kind: store.AssetImage}

	if _, err := lib.Asset(ctx, key); !errors.Is(err, store.ErrNotResident) {
		t.Fatalf("Asset() before download error = %v, want ErrNotResident", err)
	}
	if origin.hits.Load() != 0 {
		t.Fatal("Asset() reached the origin")
	}

	if err := lib.Download(ctx, key); err != nil {
		t.Fatalf("Download() unexpected error: %v", err)
	}
	a, err := lib.Asset(ctx, key)
	if err != nil {
		t.Fatalf("Asset() unexpected error: %v", err)
	}
	if string(a.Data) != "jpeg-bytes" || a.MimeType != "image/jpeg" {
		t.Errorf("Asset() = %q %s", a.Data, a.MimeType)
	}

	if err := lib.Download(ctx, key); err != nil {
		t.Fatalf("second Download() unexpected error: %v", err)
	}
	if origin.hits.Load() != 1 {
		t.Errorf("origin hits = %d, want 1", origin.hits.Load())
	}
}

func TestLibraryVideoMimeType(t *testing.T) {
	_, cloud := newOrigin(t)
	lib := newTestLibrary(t, cloud)
	ctx := context.Background()
	key := store.AssetKey{PhotoID: "p2", Kind: store.AssetVideo}

	if err := lib.Download(ctx, key); err != nil {
		t.Fatalf("Download() unexpected error: %v", err)
	}
	a, err := lib.Asset(ctx, key)
	if err != nil {
		t.Fatalf("Asset() unexpected error: %v", err)
	}
	if a.MimeType != "video/quicktime" {
		t.Errorf("MimeType = %s, want video/quicktime", a.MimeType)
	}
}

func TestLibraryAssetErrors(t *testing.T) {
	_, cloud := newOrigin(t)
	lib := newTestLibrary(t, cloud)
	ctx := context.Background()

	tests := []struct {
		name string
		key  store.AssetKey
		want error
	}{
		{"unknown photo", store.AssetKey{PhotoID: "missing", Kind: store.AssetImage}, store.ErrNotFound},
		{"unsupported kind", store.AssetKey{PhotoID: "p1", Kind: store.AssetVideo}, store.ErrNotFound},
		{"no cloud copy", store.AssetKey{PhotoID: "p3", Kind: store.AssetImage}, store.ErrGone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := lib.Download(ctx, tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Download() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := lib.Asset(ctx, store.AssetKey{PhotoID: "p2", Kind: store.AssetLiveVideo}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Asset(live-video of video) error = %v, want ErrNotFound", err)
	}
}
