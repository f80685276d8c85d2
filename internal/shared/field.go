package shared

import (
	"bytes"
	"encoding/json"
)

// Field is one member of an update mask: Set reports whether the caller
// supplied the value at all, so a nullable column can be cleared with
// Field[*string]{Set: true} while an absent field is left untouched.
// Null records that the payload carried an explicit JSON null.
type Field[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns a present field holding v.
func Some[T any](v T) Field[T] {
	return Field[T]{Value: v, Set: true}
}

// UnmarshalJSON marks the field present whenever its key appears in the payload.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.Value = v
	f.Set = true
	f.Null = bytes.Equal(bytes.TrimSpace(data), []byte("null"))
	return nil
}

// NotNull rejects an explicit null on a column that cannot hold one.
func (f Field[T]) NotNull(name string) error {
	if f.Set && f.Null {
		return NewValidationError(name, "must not be null")
	}
	return nil
}
