package factory

import (
	"context"
	"sync/atomic"
)

// Adapter is the persistence capability consumed by create paths.
//
// Instantiate turns a resolved attribute mapping into a model instance for
// the given tag. It is synchronous and must not perform I/O. Adapters that
// do not know the model's concrete shape may return the attribute mapping
// itself; the factory decodes it into the model type.
//
// Save persists an instance into the table addressed by tag and returns the
// instance carrying its generated identifier and any store-computed fields.
// Hooks receive the adapter and may call Save again to persist their own
// mutations.
type Adapter interface {
	Instantiate(tag string, attrs Attrs) (any, error)
	Save(ctx context.Context, tag string, instance any) (any, error)
}

// defaultAdapter is the process-wide fallback used by factories without an
// adapter of their own. It is published as an atomic snapshot: reads are
// lock-free, writes are last-write-wins. Swapping the default while creates
// are in flight is a caller responsibility; set it once before a batch of
// operations (typically in TestMain or test setup).
var defaultAdapter atomic.Pointer[adapterSnapshot]

type adapterSnapshot struct {
	adapter Adapter
}

// SetAdapter installs the process-wide default adapter.
func SetAdapter(a Adapter) {
	if a == nil {
		defaultAdapter.Store(nil)
		return
	}
	defaultAdapter.Store(&adapterSnapshot{adapter: a})
}

// ResetAdapter removes the process-wide default adapter. Subsequent create
// calls on factories without their own adapter fail with ErrNoAdapter.
func ResetAdapter() {
	defaultAdapter.Store(nil)
}

// DefaultAdapter returns the current process-wide default adapter.
func DefaultAdapter() (Adapter, bool) {
	s := defaultAdapter.Load()
	if s == nil {
		return nil, false
	}
	return s.adapter, true
}
