package repository

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/icloudbridge/bridge/internal/store"
)

// fakeOrigin serves assets by cloud key and counts requests.
type fakeOrigin struct {
	hits atomic.Int64
}

func (o *fakeOrigin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.hits.Add(1)
	switch r.URL.Path {
	case "/assets/ck-1/image":
		w.Write([]byte("jpeg-bytes"))
	case "/assets/ck-1/thumbnail":
		w.Write([]byte("thumb-" + r.URL.Query().Get("size")))
	case "/assets/ck-2/video":
		w.Write([]byte("mov-bytes"))
	case "/assets/chunked/video":
		w.Write([]byte("mov-"))
		w.(http.Flusher).Flush()
		w.Write([]byte("bytes"))
	case "/assets/secret/image":
		w.WriteHeader(http.StatusForbidden)
	case "/assets/broken/image":
		w.WriteHeader(http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newOrigin(t *testing.T) (*fakeOrigin, *CloudClient) {
	t.Helper()
	origin := &fakeOrigin{}
	srv := httptest.NewServer(origin)
	t.Cleanup(srv.Close)
	return origin, NewCloudClient(srv.URL+"/", srv.Client())
}

func TestCloudFetch(t *testing.T) {
	_, cloud := newOrigin(t)
	ctx := context.Background()

	data, err := cloud.Fetch(ctx, "ck-1", store.AssetKey{PhotoID: "p1", Kind: store.AssetImage})
	if err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("Fetch() = %q", data)
	}

	data, err = cloud.Fetch(ctx, "ck-1", store.AssetKey{PhotoID: "p1", Kind: store.AssetThumbnail, Size: store.ThumbnailSmall})
	if err != nil {
		t.Fatalf("Fetch() thumbnail unexpected error: %v", err)
	}
	if string(data) != "thumb-small" {
		t.Errorf("Fetch() thumbnail = %q", data)
	}
}

func TestCloudFetchRejectsOversizedAssets(t *testing.T) {
	_, cloud := newOrigin(t)
	cloud.maxBytes = 4
	video := store.AssetKey{PhotoID: "p2", Kind: store.AssetVideo}

	for _, cloudKey := range []string{"ck-2", "chunked"} {
		_, err := cloud.Fetch(context.Background(), cloudKey, video)
		if !errors.Is(err, ErrAssetTooLarge) || !errors.Is(err, store.ErrUnavailable) {
			t.Errorf("Fetch(%s) error = %v, want ErrAssetTooLarge", cloudKey, err)
		}
	}

	cloud.maxBytes = int64(len("mov-bytes"))
	data, err := cloud.Fetch(context.Background(), "chunked", video)
	if err != nil {
		t.Fatalf("Fetch() at the limit unexpected error: %v", err)
	}
	if string(data) != "mov-bytes" {
		t.Errorf("Fetch() = %q", data)
	}
}

func TestCloudFetchErrors(t *testing.T) {
	_, cloud := newOrigin(t)
	image := store.AssetKey{PhotoID: "p", Kind: store.AssetImage}

	tests := []struct {
		cloudKey string
		want     error
	}{
		{"gone", store.ErrGone},
		{"secret", store.ErrPermissionDenied},
		{"broken", store.ErrUnavailable},
		{"", store.ErrGone},
	}
	for _, tt := range tests {
		t.Run(tt.cloudKey, func(t *testing.T) {
			_, err := cloud.Fetch(context.Background(), tt.cloudKey, image)
			if !errors.Is(err, tt.want) {
				t.Errorf("Fetch(%q) error = %v, want %v", tt.cloudKey, err, tt.want)
			}
		})
	}
}

func TestCloudWithoutOrigin(t *testing.T) {
	cloud := NewCloudClient("", nil)

	_, err := cloud.Fetch(context.Background(), "ck-1", store.AssetKey{PhotoID: "p1", Kind: store.AssetImage})
	if !errors.Is(err, store.ErrGone) {
		t.Errorf("Fetch() error = %v, want ErrGone", err)
	}
}

func TestCloudBreakerOpensOnOriginFailures(t *testing.T) {
	origin, cloud := newOrigin(t)
	ctx := context.Background()
	image := store.AssetKey{PhotoID: "p", Kind: store.AssetImage}

	for range breakerTripAfter {
		cloud.Fetch(ctx, "broken", image)
	}
	if cloud.State() != gobreaker.StateOpen {
		t.Fatalf("State() = %v, want open", cloud.State())
	}

	before := origin.hits.Load()
	_, err := cloud.Fetch(ctx, "ck-1", image)
	if !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("Fetch() with open breaker error = %v, want ErrUnavailable", err)
	}
	if origin.hits.Load() != before {
		t.Error("open breaker still reached the origin")
	}
}

func TestCloudBreakerIgnoresMissingAssets(t *testing.T) {
	_, cloud := newOrigin(t)
	image := store.AssetKey{PhotoID: "p", Kind: store.AssetImage}

	for range 2 * breakerTripAfter {
		cloud.Fetch(context.Background(), "gone", image)
		cloud.Fetch(context.Background(), "secret", image)
	}
	if cloud.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, want closed", cloud.State())
	}
}
