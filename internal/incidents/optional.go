package incidents

import (
	"bytes"
	"encoding/json"
)

// Optional is a JSON field that distinguishes three states: absent from the
// payload, present with null, and present with a value. A field left out of a
// partial update means "do not change"; an explicit null means "clear".
type Optional[T any] struct {
	Set   bool // key was present in the payload
	Valid bool // value was non-null
	Value T
}

var jsonNull = []byte("null")

// UnmarshalJSON is only invoked by encoding/json when the key is present,
// which is what makes the absent/null distinction observable.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, jsonNull) {
		o.Valid = false
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// Some returns an Optional holding a value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Valid: true, Value: v}
}

// Null returns an Optional that is present but null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// Ptr returns the value as a pointer, nil when unset or null.
func (o Optional[T]) Ptr() *T {
	if !o.Set || !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}
