package factory

import (
	"fmt"
	"maps"
	"reflect"
	"strings"
	"sync/atomic"
)

// Attrs is an attribute mapping: keys are a model's declared attribute
// names, values are concrete data or, before resolution, association
// references, lazy values and sequences.
type Attrs map[string]any

// Producer yields a model's default attribute mapping. It is invoked once
// per Build/Create invocation, so values computed inside the producer are
// fresh for every instance.
type Producer func() Attrs

// mergeAttrs returns a copy of base with every key in overrides overwritten.
// The merge is shallow: precedence is decided per top-level key only.
func mergeAttrs(base, overrides Attrs) Attrs {
	merged := make(Attrs, len(base)+len(overrides))
	maps.Copy(merged, base)
	maps.Copy(merged, overrides)
	return merged
}

// mergeAll folds a list of override mappings left to right, later wins.
func mergeAll(list []Attrs) Attrs {
	merged := make(Attrs)
	for _, ov := range list {
		maps.Copy(merged, ov)
	}
	return merged
}

// lazyAttr defers evaluation of an attribute to resolution time.
type lazyAttr struct {
	fn func() any
}

// Lazy wraps fn so it is evaluated during attribute resolution rather than
// when the producer runs. Each Build/Create evaluates it again.
func Lazy(fn func() any) any {
	return &lazyAttr{fn: fn}
}

// Seq is a sequence-valued attribute. Every resolution draws the next
// counter value and passes it to the generator function.
//
// Create a Seq once (typically at package level or captured by the factory
// definition, outside the producer body) so the counter survives across
// invocations.
type Seq struct {
	n  atomic.Int64
	fn func(n int64) any
}

// Sequence returns a sequence attribute backed by fn. The counter starts
// at 1.
func Sequence(fn func(n int64) any) *Seq {
	return &Seq{fn: fn}
}

func (s *Seq) next() any {
	return s.fn(s.n.Add(1))
}

// Decode fills target from attrs. Target must be a non-nil pointer to a
// map with string keys or to a struct. Struct fields match attribute keys
// by `factory` tag, then `json` tag, then case-insensitive field name;
// attributes without a matching field are ignored, nil attributes leave
// the field at its zero value.
func Decode(attrs Attrs, target any) error {
	pv := reflect.ValueOf(target)
	if pv.Kind() != reflect.Pointer || pv.IsNil() {
		return fmt.Errorf("%w: decode target must be a non-nil pointer, got %T", ErrShape, target)
	}

	ev := pv.Elem()
	switch ev.Kind() {
	case reflect.Map:
		return decodeMap(attrs, ev)
	case reflect.Struct:
		return decodeStruct(attrs, ev)
	default:
		return fmt.Errorf("%w: cannot decode into %s", ErrShape, ev.Type())
	}
}

func decodeMap(attrs Attrs, mv reflect.Value) error {
	mt := mv.Type()
	if mt.Key().Kind() != reflect.String {
		return fmt.Errorf("%w: map target must have string keys, got %s", ErrShape, mt)
	}
	if mv.IsNil() {
		mv.Set(reflect.MakeMapWithSize(mt, len(attrs)))
	}
	elem := mt.Elem()
	for k, v := range attrs {
		val, err := conform(reflect.ValueOf(v), elem)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", k, err)
		}
		mv.SetMapIndex(reflect.ValueOf(k).Convert(mt.Key()), val)
	}
	return nil
}

func decodeStruct(attrs Attrs, sv reflect.Value) error {
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if !field.IsExported() {
			continue
		}
		v, ok := lookupAttr(attrs, attrName(field))
		if !ok || v == nil {
			continue
		}
		val, err := conform(reflect.ValueOf(v), field.Type)
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
		sv.Field(i).Set(val)
	}
	return nil
}

// attrName returns the attribute key a struct field binds to.
func attrName(field reflect.StructField) string {
	for _, tag := range []string{"factory", "json"} {
		if raw, ok := field.Tag.Lookup(tag); ok {
			name, _, _ := strings.Cut(raw, ",")
			if name != "" && name != "-" {
				return name
			}
		}
	}
	return field.Name
}

// lookupAttr finds a key exactly, then case-insensitively.
func lookupAttr(attrs Attrs, name string) (any, bool) {
	if v, ok := attrs[name]; ok {
		return v, true
	}
	for k, v := range attrs {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// conform adapts v to type t, converting between compatible kinds and
// allocating pointers where needed.
func conform(v reflect.Value, t reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Zero(t), nil
	}
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if t.Kind() == reflect.Pointer {
		inner, err := conform(v, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(inner)
		return p, nil
	}
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		return conform(v.Elem(), t)
	}
	if convertibleKind(v.Type(), t) && v.Type().ConvertibleTo(t) {
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s is not assignable to %s", ErrShape, v.Type(), t)
}

// convertibleKind limits reflect conversions to same-family kinds, so a
// stray int never becomes a one-rune string.
func convertibleKind(from, to reflect.Type) bool {
	return kindFamily(from.Kind()) != 0 && kindFamily(from.Kind()) == kindFamily(to.Kind())
}

func kindFamily(k reflect.Kind) int {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return 1
	case reflect.String:
		return 2
	case reflect.Bool:
		return 3
	default:
		return 0
	}
}

// materialize converts an adapter's instance into the factory's model type.
// Values already of type T (or *T) pass through; attribute mappings are
// decoded into a fresh T.
func materialize[T any](raw any) (T, error) {
	if v, ok := raw.(T); ok {
		return v, nil
	}
	if p, ok := raw.(*T); ok {
		return *p, nil
	}
	switch m := raw.(type) {
	case Attrs:
		return decodeInto[T](m)
	case map[string]any:
		return decodeInto[T](Attrs(m))
	}
	var zero T
	return zero, fmt.Errorf("%w: adapter returned %T, want %T", ErrShape, raw, zero)
}

func decodeInto[T any](attrs Attrs) (T, error) {
	var out T
	if err := Decode(attrs, &out); err != nil {
		return out, err
	}
	return out, nil
}

// fieldValue projects a single field out of a resolved instance. It accepts
// attribute mappings and (pointers to) structs, using the same naming rules
// as Decode.
func fieldValue(instance any, field string) (any, error) {
	switch v := instance.(type) {
	case Attrs:
		if val, ok := lookupAttr(v, field); ok {
			return val, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	case map[string]any:
		if val, ok := lookupAttr(Attrs(v), field); ok {
			return val, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	rv := reflect.ValueOf(instance)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: %q on nil instance", ErrUnknownField, field)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %q on %T", ErrUnknownField, field, instance)
	}
	st := rv.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() {
			continue
		}
		if strings.EqualFold(attrName(f), field) || strings.EqualFold(f.Name, field) {
			return rv.Field(i).Interface(), nil
		}
	}
	return nil, fmt.Errorf("%w: %q on %s", ErrUnknownField, field, st)
}

// identifierField locates a struct's identifier field: `factory:"id"` or
// `json:"id"` tag, else a field named ID.
func identifierField(st reflect.Type) (int, bool) {
	named := -1
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() {
			continue
		}
		if strings.EqualFold(attrName(f), "id") {
			return i, true
		}
		if named < 0 && strings.EqualFold(f.Name, "id") {
			named = i
		}
	}
	if named >= 0 {
		return named, true
	}
	return 0, false
}

// Identifier reports the identifier already assigned to an instance.
// It returns false when the instance has no identifier slot or the slot
// still holds its zero value.
func Identifier(instance any) (any, bool) {
	switch v := instance.(type) {
	case Attrs:
		return mapIdentifier(v)
	case map[string]any:
		return mapIdentifier(Attrs(v))
	}

	rv := reflect.ValueOf(instance)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	i, ok := identifierField(rv.Type())
	if !ok {
		return nil, false
	}
	fv := rv.Field(i)
	if fv.IsZero() {
		return nil, false
	}
	return fv.Interface(), true
}

func mapIdentifier(m Attrs) (any, bool) {
	v, ok := lookupAttr(m, "id")
	if !ok || v == nil || v == "" {
		return nil, false
	}
	return v, true
}

// SetIdentifier assigns a generated identifier to an instance and returns
// the instance carrying it. Map instances are updated in place; struct
// instances are updated through their pointer, or copied when passed by
// value.
func SetIdentifier(instance any, id any) (any, error) {
	switch v := instance.(type) {
	case Attrs:
		v["id"] = id
		return v, nil
	case map[string]any:
		v["id"] = id
		return v, nil
	}

	rv := reflect.ValueOf(instance)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil instance", ErrNoIdentifier)
		}
		if err := setStructIdentifier(rv.Elem(), id); err != nil {
			return nil, err
		}
		return instance, nil
	}
	if rv.Kind() == reflect.Struct {
		pv := reflect.New(rv.Type())
		pv.Elem().Set(rv)
		if err := setStructIdentifier(pv.Elem(), id); err != nil {
			return nil, err
		}
		return pv.Elem().Interface(), nil
	}
	return nil, fmt.Errorf("%w: cannot assign identifier to %T", ErrNoIdentifier, instance)
}

func setStructIdentifier(sv reflect.Value, id any) error {
	i, ok := identifierField(sv.Type())
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoIdentifier, sv.Type())
	}
	val, err := conform(reflect.ValueOf(id), sv.Type().Field(i).Type)
	if err != nil {
		return err
	}
	sv.Field(i).Set(val)
	return nil
}
