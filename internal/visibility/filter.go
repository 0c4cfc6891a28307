// Package visibility decides which backing-store entities the API exposes.
package visibility

import "github.com/icloudbridge/bridge/internal/store"

// Filter is the persisted selection for each kind. The zero value exposes
// nothing.
type Filter struct {
	selected map[store.Kind]map[string]struct{}
}

// New builds a Filter from the selected identifiers per kind.
func New(selected map[store.Kind][]string) *Filter {
	f := &Filter{selected: make(map[store.Kind]map[string]struct{}, len(selected))}
	for kind, ids := range selected {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		f.selected[kind] = set
	}
	return f
}

// IsExposed reports whether id is selected for kind.
func (f *Filter) IsExposed(kind store.Kind, id string) bool {
	if f == nil {
		return false
	}
	_, ok := f.selected[kind][id]
	return ok
}

// Selected returns how many identifiers are selected for kind.
func (f *Filter) Selected(kind store.Kind) int {
	if f == nil {
		return 0
	}
	return len(f.selected[kind])
}

// ListExposed intersects the live enumeration with the selection, keeping the
// store's order. Selected identifiers the store no longer reports are dropped.
func ListExposed[E store.Entity](f *Filter, kind store.Kind, live []E) []E {
	out := make([]E, 0, len(live))
	for _, e := range live {
		if f.IsExposed(kind, e.EntityID()) {
			out = append(out, e)
		}
	}
	return out
}
