package factory

import (
	"context"
	"fmt"
	"sync/atomic"
)

// refHandles assigns a stable identity to every reference at Associate
// time. The resolution memo is keyed by handle rather than by pointer
// identity, so projections derived with Get share their parent's
// resolution.
var refHandles atomic.Uint64

// pipeline is the type-erased surface a reference resolves through. Every
// factory implements it regardless of its model type.
type pipeline interface {
	modelTag() string
	runBuild(ctx context.Context, rc *resolution, overrides Attrs) (any, error)
	runCreate(ctx context.Context, rc *resolution, overrides Attrs) (any, error)
	adapterOrDefault() Adapter
}

// Ref is a deferred pointer to another factory's forthcoming build/create
// result. A Ref placed in an attribute mapping resolves during Build or
// Create of the enclosing entity, at most once per top-level invocation.
type Ref struct {
	handle    uint64
	target    pipeline
	field     string
	overrides Attrs
	persist   bool
}

// Get returns a projection of the reference selecting a single field of
// the resolved target instead of the whole instance. The projection shares
// the parent reference's identity: reading the reference directly and
// through Get resolves the target once.
func (r *Ref) Get(field string) *Ref {
	projected := *r
	projected.field = field
	return &projected
}

// Persist forces create-mode resolution for this reference even when the
// enclosing entity is only built. The returned reference shares the
// original's identity.
func (r *Ref) Persist() *Ref {
	escalated := *r
	escalated.persist = true
	return &escalated
}

// resolution is the per-invocation memo table. It is created fresh for
// every top-level Build/Create and for every CreateMany element, and is
// never shared across independent calls. Resolution is strictly sequential
// within one context, so no locking is needed.
type resolution struct {
	memo map[uint64]any
}

func newResolution() *resolution {
	return &resolution{memo: make(map[uint64]any)}
}

// opMode mirrors the caller's operation into nested references: a build
// only builds its associations, a create creates them.
type opMode int

const (
	opBuild opMode = iota
	opCreate
)

// resolveRef resolves r through the memo, then applies its projection.
func (rc *resolution) resolveRef(ctx context.Context, mode opMode, r *Ref) (any, error) {
	instance, ok := rc.memo[r.handle]
	if !ok {
		var err error
		if mode == opCreate || r.persist {
			instance, err = r.target.runCreate(ctx, rc, r.overrides)
		} else {
			instance, err = r.target.runBuild(ctx, rc, r.overrides)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve %q association: %w", r.target.modelTag(), err)
		}
		rc.memo[r.handle] = instance
	}

	if r.field == "" {
		return instance, nil
	}
	return fieldValue(instance, r.field)
}

// resolveValue resolves a single attribute value: references go through
// the memo, lazy values and sequences are evaluated, everything else
// passes through untouched.
func (rc *resolution) resolveValue(ctx context.Context, mode opMode, v any) (any, error) {
	switch val := v.(type) {
	case *Ref:
		return rc.resolveRef(ctx, mode, val)
	case *lazyAttr:
		return val.fn(), nil
	case *Seq:
		return val.next(), nil
	default:
		return v, nil
	}
}
