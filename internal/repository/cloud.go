package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/icloudbridge/bridge/internal/metrics"
	"github.com/icloudbridge/bridge/internal/store"
)

const (
	breakerName        = "cloud-origin"
	breakerTripAfter   = 5
	breakerOpenTimeout = 30 * time.Second
	maxAssetBytes      = 1 << 30
)

// ErrAssetTooLarge is returned for origin payloads over the size limit.
var ErrAssetTooLarge = errors.New("asset exceeds size limit")

// CloudClient fetches non-resident asset payloads from the cloud origin.
// Origin failures open a circuit breaker so that a dead origin fails fast.
type CloudClient struct {
	baseURL string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[[]byte]
	maxBytes int64
}

// NewCloudClient returns a client for the origin at baseURL. An empty baseURL
// means no origin: every fetch reports the asset as gone.
func NewCloudClient(baseURL string, client *http.Client) *CloudClient {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}

	settings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripAfter
		},
		// Missing or forbidden assets are answers, not origin failures.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, store.ErrGone) || errors.Is(err, store.ErrPermissionDenied)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CloudBreakerState.WithLabelValues(name).Set(float64(to))
			slog.Warn("cloud breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	metrics.CloudBreakerState.WithLabelValues(breakerName).Set(float64(gobreaker.StateClosed))

	return &CloudClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
		breaker:  gobreaker.NewCircuitBreaker[[]byte](settings),
		maxBytes: maxAssetBytes,
	}
}

// Fetch downloads one rendition of the item stored under cloudKey.
func (c *CloudClient) Fetch(ctx context.Context, cloudKey string, key store.AssetKey) ([]byte, error) {
	if c.baseURL == "" || cloudKey == "" {
		return nil, fmt.Errorf("%w: no cloud copy of %s", store.ErrGone, key)
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetch(ctx, cloudKey, key)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	return data, err
}

func (c *CloudClient) assetURL(cloudKey string, key store.AssetKey) string {
	u := c.baseURL + "/assets/" + url.PathEscape(cloudKey) + "/" + string(key.Kind)
	if key.Kind == store.AssetThumbnail {
		u += "?size=" + url.QueryEscape(string(key.Size))
	}
	return u
}

func (c *CloudClient) fetch(ctx context.Context, cloudKey string, key store.AssetKey) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.assetURL(cloudKey, key), nil)
	if err != nil {
		return nil, fmt.Errorf("building cloud request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: origin returned %d for %s", store.ErrGone, resp.StatusCode, key)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: origin returned %d for %s", store.ErrPermissionDenied, resp.StatusCode, key)
	default:
		return nil, fmt.Errorf("%w: origin returned %d for %s", store.ErrUnavailable, resp.StatusCode, key)
	}

	if resp.ContentLength > c.maxBytes {
		return nil, fmt.Errorf("%w: %w: %s is %d bytes", store.ErrUnavailable, ErrAssetTooLarge, key, resp.ContentLength)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading asset body: %w", store.ErrUnavailable, err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("%w: %w: %s", store.ErrUnavailable, ErrAssetTooLarge, key)
	}
	return data, nil
}

// State reports the breaker state.
func (c *CloudClient) State() gobreaker.State {
	return c.breaker.State()
}
