package domain

import (
	"bytes"
	"encoding/json"
)

// Optional records whether a field was supplied at all, supplied as null, or
// supplied with a value. The zero value means "not supplied".
type Optional[T any] struct {
	Present bool
	Null    bool
	Value   T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Present: true, Value: v}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Present: true, Null: true}
}

// Get returns the value and true only when a non-null value was supplied.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Present && !o.Null
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}

	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Present || o.Null {
		return []byte("null"), nil
	}

	return json.Marshal(o.Value)
}
