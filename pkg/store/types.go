package store

import (
	"fmt"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/records"
)

// Result is the outcome of reading or merging one record into a store. Its
// integer value is the number of store entries that changed, or -1.
type Result int

const (
	ResultError     Result = -1
	ResultUnchanged Result = 0
	ResultUpdated   Result = 1
)

func (r Result) String() string {
	switch r {
	case ResultError:
		return "error"
	case ResultUnchanged:
		return "unchanged"
	case ResultUpdated:
		return "updated"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// Loader parses one record of a store's kind. The record tag has already
// been consumed from r.
type Loader[T records.Record] func(r *codec.Reader) (T, error)

// Errors
var (
	ErrRecordNotFound = &StoreError{"record not found"}
	ErrTypeMismatch   = &StoreError{"record type does not match store"}
)

// StoreError represents a record store error
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

// NotFoundError names the ID that was looked up. It matches
// ErrRecordNotFound with errors.Is.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrRecordNotFound
}
