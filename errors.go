package factory

import "errors"

// Standard errors for factory operations.
// Use errors.Is() to check these error types in calling code.
var (
	// ErrNoAdapter indicates a create-path call with no adapter configured,
	// neither on the factory nor as the process-wide default.
	ErrNoAdapter = errors.New("no persistence adapter configured")

	// ErrOverrideCount indicates a CreateMany override list longer than the
	// requested number of instances.
	ErrOverrideCount = errors.New("override list longer than instance count")

	// ErrShape indicates an adapter returned an instance that cannot be
	// materialized as the factory's model type.
	ErrShape = errors.New("instance does not match model shape")

	// ErrNoIdentifier indicates an instance with no identifier slot (no "id"
	// key and no identifiable struct field).
	ErrNoIdentifier = errors.New("instance has no identifier field")

	// ErrUnknownField indicates a reference projection named a field absent
	// from the resolved target.
	ErrUnknownField = errors.New("unknown field")
)
