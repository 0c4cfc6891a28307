package service

import (
	"errors"
	"fmt"

	"github.com/icloudbridge/bridge/internal/settings"
	"github.com/icloudbridge/bridge/internal/store"
	"github.com/icloudbridge/bridge/internal/visibility"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrForbidden   = errors.New("access denied by the data store")
	ErrValidation  = errors.New("invalid request")
	ErrUnavailable = errors.New("data store unavailable")
)

// SnapshotSource yields the settings in force for one request.
type SnapshotSource interface {
	Snapshot() *settings.Snapshot
}

func filterOf(src SnapshotSource) *visibility.Filter {
	snap := src.Snapshot()
	if snap == nil {
		return nil
	}
	return snap.Filter
}

// invalid wraps err as a validation failure, keeping its text as the reason.
func invalid(err error) error {
	return fmt.Errorf("%w: %s", ErrValidation, err)
}

// storeError translates a backing-store error into the service taxonomy.
// The original error stays in the chain for logging.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrGone):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, store.ErrPermissionDenied):
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
