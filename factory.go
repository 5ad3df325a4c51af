package factory

import (
	"context"
	"fmt"
)

// Hook is a post-creation callback. It runs strictly after the entity is
// persisted, receives the persisted instance and the adapter it was saved
// through, and returns the (possibly mutated and re-saved) instance that
// flows to the next hook and finally to the caller.
type Hook[T any] func(ctx context.Context, instance T, adapter Adapter) (T, error)

// Factory binds a model tag to an attribute producer, an optional parent
// factory and an ordered hook chain. Factories are immutable: Extend,
// AfterCreate, WithAdapter and Transform derive new factories and leave
// the receiver fully usable.
type Factory[T any] struct {
	tag      string
	producer Producer
	parent   *Factory[T]
	hooks    []Hook[T]
	adapter  Adapter

	// Transform lineage: the parent pipeline of a reshaped factory and the
	// function mapping its result into T.
	source  pipeline
	reshape func(raw any) (any, error)
}

// Define declares a factory for the given model tag. The producer is
// invoked once per Build/Create invocation to compute default attributes;
// it may embed association references, Lazy values and Sequences.
func Define[T any](tag string, producer Producer) *Factory[T] {
	return &Factory[T]{tag: tag, producer: producer}
}

// Tag returns the factory's model tag.
func (f *Factory[T]) Tag() string {
	return f.tag
}

// WithAdapter derives a factory persisting through a, instead of the
// process-wide default. The receiver keeps its previous adapter.
func (f *Factory[T]) WithAdapter(a Adapter) *Factory[T] {
	child := f.clone()
	child.adapter = a
	return child
}

// Extend derives a factory whose defaults are the receiver's defaults
// merged with extra's output, extra winning on key collision. The receiver
// is linked as parent and remains unchanged.
func (f *Factory[T]) Extend(extra Producer) *Factory[T] {
	return &Factory[T]{
		tag:      f.tag,
		producer: extra,
		parent:   f,
		adapter:  f.adapter,
	}
}

// AfterCreate derives a factory with hook appended to the hook chain.
// Hooks run after persistence in registration order; a later hook observes
// mutations made by earlier ones, and hook results win over caller
// overrides since they run last. A hook error propagates to the caller but
// the already-persisted row is not reverted.
func (f *Factory[T]) AfterCreate(hook Hook[T]) *Factory[T] {
	child := f.clone()
	child.hooks = append(child.hooks, hook)
	return child
}

// Transform derives a factory of a different shape. Build and Create
// delegate entirely to the parent's pipeline, including persistence and
// the parent's hooks, then fn reshapes the result. The parent's persisted
// representation is unaffected; only the returned value changes shape.
func Transform[T, U any](parent *Factory[T], fn func(instance T) (U, error)) *Factory[U] {
	return &Factory[U]{
		tag:    parent.tag,
		source: parent,
		reshape: func(raw any) (any, error) {
			in, err := materialize[T](raw)
			if err != nil {
				return nil, err
			}
			return fn(in)
		},
	}
}

// Associate returns a new association reference to this factory, carrying
// its own override attributes. Every call yields a reference with a fresh
// identity; within one resolution a single reference resolves at most once
// however many attributes read from it.
func (f *Factory[T]) Associate(overrides ...Attrs) *Ref {
	return &Ref{
		handle:    refHandles.Add(1),
		target:    f,
		overrides: mergeAll(overrides),
	}
}

// Build produces an in-memory instance: defaults merged with overrides,
// associations built (not persisted, unless a reference forces it with
// Persist). The persistence adapter's save is never invoked for the
// top-level entity.
func (f *Factory[T]) Build(overrides ...Attrs) (T, error) {
	return f.build(context.Background(), newResolution(), mergeAll(overrides))
}

// MustBuild is Build, panicking on error.
func (f *Factory[T]) MustBuild(overrides ...Attrs) T {
	instance, err := f.Build(overrides...)
	if err != nil {
		panic(err)
	}
	return instance
}

// Create resolves attributes in create mode (associations persist through
// their own factories), instantiates and saves the entity through the
// adapter, then applies the hook chain. It fails with ErrNoAdapter when
// neither the factory nor the process carries an adapter.
func (f *Factory[T]) Create(ctx context.Context, overrides ...Attrs) (T, error) {
	if f.adapterOrDefault() == nil {
		var zero T
		return zero, fmt.Errorf("factory %q: %w", f.tag, ErrNoAdapter)
	}
	return f.create(ctx, newResolution(), mergeAll(overrides))
}

// MustCreate is Create, panicking on error.
func (f *Factory[T]) MustCreate(ctx context.Context, overrides ...Attrs) T {
	instance, err := f.Create(ctx, overrides...)
	if err != nil {
		panic(err)
	}
	return instance
}

// CreateMany produces n independent creations in input order, each with
// its own resolution context so associations never leak between elements.
// Element i receives overrides[i] when present, plain defaults otherwise.
// An override list longer than n fails with ErrOverrideCount. On failure,
// elements already persisted stay committed; there is no rollback.
func (f *Factory[T]) CreateMany(ctx context.Context, n int, overrides []Attrs) ([]T, error) {
	if len(overrides) > n {
		return nil, fmt.Errorf("factory %q: %d overrides for %d instances: %w",
			f.tag, len(overrides), n, ErrOverrideCount)
	}
	if f.adapterOrDefault() == nil {
		return nil, fmt.Errorf("factory %q: %w", f.tag, ErrNoAdapter)
	}

	instances := make([]T, 0, n)
	for i := 0; i < n; i++ {
		var ov Attrs
		if i < len(overrides) {
			ov = overrides[i]
		}
		instance, err := f.create(ctx, newResolution(), ov)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// build runs the build pipeline inside an existing resolution context.
func (f *Factory[T]) build(ctx context.Context, rc *resolution, overrides Attrs) (T, error) {
	var zero T

	if f.source != nil {
		raw, err := f.source.runBuild(ctx, rc, overrides)
		if err != nil {
			return zero, err
		}
		shaped, err := f.reshape(raw)
		if err != nil {
			return zero, fmt.Errorf("factory %q: transform: %w", f.tag, err)
		}
		return materialize[T](shaped)
	}

	attrs, err := resolveAttrs(ctx, rc, opBuild, f.defaults(), overrides)
	if err != nil {
		return zero, fmt.Errorf("factory %q: %w", f.tag, err)
	}

	// Instantiate through the adapter when one is around, so built
	// instances share the created ones' shape. Build works without any
	// adapter; attributes are decoded into the model type directly.
	if a := f.adapterOrDefault(); a != nil {
		raw, err := a.Instantiate(f.tag, attrs)
		if err != nil {
			return zero, fmt.Errorf("factory %q: instantiate: %w", f.tag, err)
		}
		return materialize[T](raw)
	}
	return materialize[T](attrs)
}

// create runs the create pipeline inside an existing resolution context.
func (f *Factory[T]) create(ctx context.Context, rc *resolution, overrides Attrs) (T, error) {
	var zero T

	adapter := f.adapterOrDefault()
	if adapter == nil {
		return zero, fmt.Errorf("factory %q: %w", f.tag, ErrNoAdapter)
	}

	var instance T
	if f.source != nil {
		raw, err := f.source.runCreate(ctx, rc, overrides)
		if err != nil {
			return zero, err
		}
		shaped, err := f.reshape(raw)
		if err != nil {
			return zero, fmt.Errorf("factory %q: transform: %w", f.tag, err)
		}
		instance, err = materialize[T](shaped)
		if err != nil {
			return zero, fmt.Errorf("factory %q: %w", f.tag, err)
		}
	} else {
		attrs, err := resolveAttrs(ctx, rc, opCreate, f.defaults(), overrides)
		if err != nil {
			return zero, fmt.Errorf("factory %q: %w", f.tag, err)
		}
		raw, err := adapter.Instantiate(f.tag, attrs)
		if err != nil {
			return zero, fmt.Errorf("factory %q: instantiate: %w", f.tag, err)
		}
		fresh, err := materialize[T](raw)
		if err != nil {
			return zero, fmt.Errorf("factory %q: %w", f.tag, err)
		}
		saved, err := adapter.Save(ctx, f.tag, fresh)
		if err != nil {
			return zero, fmt.Errorf("factory %q: save: %w", f.tag, err)
		}
		instance, err = materialize[T](saved)
		if err != nil {
			return zero, fmt.Errorf("factory %q: %w", f.tag, err)
		}
	}

	for _, hook := range f.effectiveHooks() {
		var err error
		instance, err = hook(ctx, instance, adapter)
		if err != nil {
			return zero, fmt.Errorf("factory %q: after-create hook: %w", f.tag, err)
		}
	}
	return instance, nil
}

// defaults computes the merged default attributes of the extend lineage,
// root producer first, deltas applied on top.
func (f *Factory[T]) defaults() Attrs {
	var chain []*Factory[T]
	for p := f; p != nil; p = p.parent {
		chain = append(chain, p)
	}

	merged := make(Attrs)
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].producer != nil {
			merged = mergeAttrs(merged, chain[i].producer())
		}
	}
	return merged
}

// effectiveHooks returns the lineage's hook chain in registration order,
// parents first.
func (f *Factory[T]) effectiveHooks() []Hook[T] {
	if f.parent == nil {
		return f.hooks
	}
	parentHooks := f.parent.effectiveHooks()
	hooks := make([]Hook[T], 0, len(parentHooks)+len(f.hooks))
	hooks = append(hooks, parentHooks...)
	hooks = append(hooks, f.hooks...)
	return hooks
}

// clone copies the factory, detaching its hook slice so derived factories
// never alias the receiver's chain.
func (f *Factory[T]) clone() *Factory[T] {
	child := *f
	child.hooks = append([]Hook[T](nil), f.hooks...)
	return &child
}

// pipeline implementation; references and Transform resolve through these.

func (f *Factory[T]) modelTag() string {
	return f.tag
}

func (f *Factory[T]) runBuild(ctx context.Context, rc *resolution, overrides Attrs) (any, error) {
	instance, err := f.build(ctx, rc, overrides)
	return instance, err
}

func (f *Factory[T]) runCreate(ctx context.Context, rc *resolution, overrides Attrs) (any, error) {
	instance, err := f.create(ctx, rc, overrides)
	return instance, err
}

func (f *Factory[T]) adapterOrDefault() Adapter {
	if f.adapter != nil {
		return f.adapter
	}
	if f.parent != nil {
		if a := f.parent.adapterOrDefault(); a != nil {
			return a
		}
	}
	if f.source != nil {
		if a := f.source.adapterOrDefault(); a != nil {
			return a
		}
	}
	a, _ := DefaultAdapter()
	return a
}
