// Package asset serves photo library binaries that may have to be downloaded
// first. A request for a non-resident asset starts one background download
// and answers "downloading"; later requests see the result.
package asset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/icloudbridge/bridge/internal/metrics"
	"github.com/icloudbridge/bridge/internal/store"
)

// DefaultRetryAfter is the polling hint given while a download runs.
const DefaultRetryAfter = 5 * time.Second

var ErrDownloadFailed = errors.New("asset download failed")

// State is the lifecycle of one asset request key.
type State int

const (
	NotRequested State = iota
	Downloading
	Ready
	Unavailable
)

func (s State) String() string {
	switch s {
	case NotRequested:
		return "not_requested"
	case Downloading:
		return "downloading"
	case Ready:
		return "ready"
	case Unavailable:
		return "unavailable"
	}
	return "unknown"
}

// Result is the answer to one Fetch.
type Result struct {
	State      State
	Asset      store.Asset
	RetryAfter time.Duration
}

type entry struct {
	state    State
	err      error
	done     chan struct{}
	finished time.Time
}

// Fetcher owns the download registry. At most one download runs per key;
// unrelated keys never wait on each other.
type Fetcher struct {
	assets     store.Assets
	retryAfter time.Duration

	mu       sync.Mutex
	registry map[string]*entry
	inflight sync.WaitGroup
}

// NewFetcher returns a Fetcher over assets. A non-positive retryAfter means
// DefaultRetryAfter.
func NewFetcher(assets store.Assets, retryAfter time.Duration) *Fetcher {
	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}
	return &Fetcher{
		assets:     assets,
		retryAfter: retryAfter,
		registry:   make(map[string]*entry),
	}
}

// RetryAfter returns the polling hint.
func (f *Fetcher) RetryAfter() time.Duration {
	return f.retryAfter
}

// Fetch returns the asset when resident, otherwise makes sure a download is
// running and reports Downloading. A failed download is reported once, as an
// error wrapping ErrDownloadFailed and the store's cause; the request after
// that starts over.
func (f *Fetcher) Fetch(ctx context.Context, key store.AssetKey) (Result, error) {
	k := key.String()

	for attempt := 0; ; attempt++ {
		seen, err := f.consume(k)
		if err != nil {
			metrics.AssetResponses.WithLabelValues(string(key.Kind), Unavailable.String()).Inc()
			return Result{State: Unavailable}, err
		}

		a, err := f.assets.Asset(ctx, key)
		if err == nil {
			metrics.AssetResponses.WithLabelValues(string(key.Kind), Ready.String()).Inc()
			return Result{State: Ready, Asset: a}, nil
		}
		if !errors.Is(err, store.ErrNotResident) {
			return Result{}, err
		}

		f.mu.Lock()
		cur := f.registry[k]
		if cur == nil && seen != nil && attempt == 0 {
			// The download finished between the two looks; check residency again.
			f.mu.Unlock()
			continue
		}
		if cur != nil && cur.state == Unavailable {
			delete(f.registry, k)
			f.mu.Unlock()
			metrics.AssetResponses.WithLabelValues(string(key.Kind), Unavailable.String()).Inc()
			return Result{State: Unavailable}, fmt.Errorf("%w: %w", ErrDownloadFailed, cur.err)
		}
		if cur == nil {
			f.startLocked(k, key)
		}
		f.mu.Unlock()

		metrics.AssetResponses.WithLabelValues(string(key.Kind), Downloading.String()).Inc()
		return Result{State: Downloading, RetryAfter: f.retryAfter}, nil
	}
}

// consume returns the current entry. An Unavailable entry is removed and its
// cause returned.
func (f *Fetcher) consume(k string) (*entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.registry[k]
	if !ok {
		return nil, nil
	}
	if e.state == Unavailable {
		delete(f.registry, k)
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, e.err)
	}
	return e, nil
}

func (f *Fetcher) startLocked(k string, key store.AssetKey) {
	e := &entry{state: Downloading, done: make(chan struct{})}
	f.registry[k] = e
	f.inflight.Add(1)
	metrics.AssetDownloadsStarted.WithLabelValues(string(key.Kind)).Inc()

	go f.download(k, key, e)
}

func (f *Fetcher) download(k string, key store.AssetKey, e *entry) {
	defer f.inflight.Done()
	metrics.AssetDownloadsInFlight.Inc()
	defer metrics.AssetDownloadsInFlight.Dec()

	start := time.Now()
	// The download outlives the request that triggered it.
	err := f.assets.Download(context.Background(), key)
	metrics.RecordDownload(string(key.Kind), time.Since(start), err)

	f.mu.Lock()
	if err == nil {
		delete(f.registry, k)
	} else {
		e.state = Unavailable
		e.err = err
		e.finished = time.Now()
	}
	close(e.done)
	f.mu.Unlock()

	if err != nil {
		slog.Warn("asset download failed", "asset", k, "duration", time.Since(start), "error", err)
		return
	}
	slog.Debug("asset downloaded", "asset", k, "duration", time.Since(start))
}

// Wait behaves like Fetch but, while a download runs, blocks the caller until
// it finishes, timeout elapses or ctx ends. It then answers like Fetch.
func (f *Fetcher) Wait(ctx context.Context, key store.AssetKey, timeout time.Duration) (Result, error) {
	res, err := f.Fetch(ctx, key)
	if err != nil || res.State != Downloading {
		return res, err
	}

	f.mu.Lock()
	e := f.registry[key.String()]
	f.mu.Unlock()
	if e == nil {
		return f.Fetch(ctx, key)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-e.done:
		return f.Fetch(ctx, key)
	case <-timer.C:
		return res, nil
	case <-ctx.Done():
		return res, ctx.Err()
	}
}

// Status reports the registry state for key without touching the store.
func (f *Fetcher) Status(key store.AssetKey) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.registry[key.String()]; ok {
		return e.state
	}
	return NotRequested
}

// Sweep drops failed entries older than maxAge that no request consumed and
// returns how many were removed.
func (f *Fetcher) Sweep(maxAge time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for k, e := range f.registry {
		if e.state == Unavailable && e.finished.Before(cutoff) {
			delete(f.registry, k)
			removed++
		}
	}
	return removed
}

// Drain waits for running downloads to finish or ctx to end.
func (f *Fetcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		f.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
