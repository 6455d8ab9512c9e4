// Package param provides the sentinel-typed parameter runtime for generated
// test clients. A Field distinguishes three states the wire payload must be
// able to express independently: omitted entirely, present as an explicit
// null, and present with a value. The zero Field is the "unset" sentinel, so
// generated declarations never need concrete defaults.
package param

import "encoding/json"

// State is a Field's tri-state.
type State int

const (
	// Unset means the caller never provided the parameter; it is omitted
	// from the request entirely.
	Unset State = iota
	// Null means the caller explicitly sent null.
	Null
	// Set means the caller provided a concrete value.
	Set
)

// Field wraps one optional parameter value. The zero value is Unset.
type Field[T any] struct {
	value T
	state State
}

// Of returns a Field carrying v.
func Of[T any](v T) Field[T] {
	return Field[T]{value: v, state: Set}
}

// Nil returns a Field carrying an explicit null.
func Nil[T any]() Field[T] {
	return Field[T]{state: Null}
}

// State returns the field's tri-state.
func (f Field[T]) State() State { return f.state }

// IsSet reports whether a concrete value is present.
func (f Field[T]) IsSet() bool { return f.state == Set }

// IsNull reports whether the field is an explicit null.
func (f Field[T]) IsNull() bool { return f.state == Null }

// IsUnset reports whether the field was never provided.
func (f Field[T]) IsUnset() bool { return f.state == Unset }

// Value returns the concrete value and whether one is present.
func (f Field[T]) Value() (T, bool) {
	return f.value, f.state == Set
}

// Or returns the concrete value, or fallback when the field is not Set.
func (f Field[T]) Or(fallback T) T {
	if f.state == Set {
		return f.value
	}
	return fallback
}

// IsZero reports whether the field is Unset. encoding/json's omitzero
// option uses it, so nested model structs keep the absent/null/value
// distinction at any depth.
func (f Field[T]) IsZero() bool { return f.state == Unset }

// MarshalJSON renders the carried value, or null for an explicit-null
// field. Unset fields are skipped before marshaling via omitzero.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.state == Set {
		return json.Marshal(f.value)
	}
	return []byte("null"), nil
}

// UnmarshalJSON sets the field from a JSON value; a JSON null becomes an
// explicit-null field.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Field[T]{state: Null}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Field[T]{value: v, state: Set}
	return nil
}

// any-typed view used by reflection in Collect. Null fields surface as a
// nil value with state Null.
func (f Field[T]) fieldValue() (any, State) {
	if f.state == Set {
		return f.value, Set
	}
	return nil, f.state
}

// valuer is implemented by every Field instantiation.
type valuer interface {
	fieldValue() (any, State)
}
