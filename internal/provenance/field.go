package provenance

import (
	"encoding/json"
	"fmt"
)

const (
	statusCaptured    = "captured"
	statusUnavailable = "unavailable"
)

// Field is the outcome of one best-effort capture: either a value or the
// reason it could not be obtained.
type Field[T any] struct {
	value    T
	captured bool
	reason   string
}

func Captured[T any](v T) Field[T] {
	return Field[T]{value: v, captured: true}
}

func Unavailable[T any](reason string) Field[T] {
	return Field[T]{reason: reason}
}

// Unavailablef is Unavailable with a formatted reason.
func Unavailablef[T any](format string, args ...any) Field[T] {
	return Unavailable[T](fmt.Sprintf(format, args...))
}

// From turns a (value, error) pair into a Field.
func From[T any](v T, err error) Field[T] {
	if err != nil {
		return Unavailable[T](err.Error())
	}
	return Captured(v)
}

func (f Field[T]) Get() (T, bool)   { return f.value, f.captured }
func (f Field[T]) IsCaptured() bool { return f.captured }
func (f Field[T]) Reason() string   { return f.reason }

// Or returns the value when captured and def otherwise.
func (f Field[T]) Or(def T) T {
	if f.captured {
		return f.value
	}
	return def
}

type fieldJSON[T any] struct {
	Status string `json:"status"`
	Value  *T     `json:"value,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.captured {
		v := f.value
		return json.Marshal(fieldJSON[T]{Status: statusCaptured, Value: &v})
	}
	return json.Marshal(fieldJSON[T]{Status: statusUnavailable, Reason: f.reason})
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	var raw fieldJSON[T]
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Status {
	case statusCaptured:
		*f = Field[T]{captured: true}
		if raw.Value != nil {
			f.value = *raw.Value
		}
	case statusUnavailable:
		*f = Field[T]{reason: raw.Reason}
	default:
		return fmt.Errorf("provenance: unknown field status %q", raw.Status)
	}
	return nil
}
