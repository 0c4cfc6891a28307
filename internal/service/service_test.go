package service

import (
	"github.com/icloudbridge/bridge/internal/settings"
	"github.com/icloudbridge/bridge/internal/store"
	"github.com/icloudbridge/bridge/internal/visibility"
)

type staticSettings struct {
	snap *settings.Snapshot
}

func (s *staticSettings) Snapshot() *settings.Snapshot { return s.snap }

func selecting(selected map[store.Kind][]string) *staticSettings {
	return &staticSettings{snap: &settings.Snapshot{Filter: visibility.New(selected)}}
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
