package codec

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below unwrap to one of these so callers can
// match with errors.Is.
var (
	ErrTruncatedInput     = errors.New("truncated input")
	ErrSizeLimitExceeded  = errors.New("declared size exceeds limit")
	ErrUnexpectedTag      = errors.New("unexpected tag")
	ErrDuplicateSubrecord = errors.New("duplicate subrecord")
	ErrMissingSubrecord   = errors.New("missing subrecord")
	ErrInvalidFieldSize   = errors.New("invalid field size")
	ErrInvalidValue       = errors.New("invalid field value")
	ErrCompressed         = errors.New("compressed record and no decompressor configured")
)

// FormatError reports a tag that does not match what the format requires at
// that position. Expected is zero when any known tag would have been accepted.
type FormatError struct {
	Record   Tag
	Expected Tag
	Found    Tag
}

func (e *FormatError) Error() string {
	switch {
	case e.Expected == 0 && e.Record != 0:
		return fmt.Sprintf("unexpected subrecord %s in %s", e.Found, e.Record)
	case e.Expected == 0:
		return fmt.Sprintf("unexpected tag %s", e.Found)
	case e.Record != 0:
		return fmt.Sprintf("expected %s in %s, found %s", e.Expected, e.Record, e.Found)
	default:
		return fmt.Sprintf("expected %s, found %s", e.Expected, e.Found)
	}
}

func (e *FormatError) Unwrap() error { return ErrUnexpectedTag }

// SizeLimitError is returned when a declared record size exceeds the reader's
// cap. No memory has been allocated for the payload when this is returned.
type SizeLimitError struct {
	Tag   Tag
	Size  uint32
	Limit uint32
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("%s: declared size %d exceeds limit %d", e.Tag, e.Size, e.Limit)
}

func (e *SizeLimitError) Unwrap() error { return ErrSizeLimitExceeded }

// DuplicateError reports a once-only subrecord that occurred twice.
type DuplicateError struct {
	Record Tag
	Sub    Tag
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: subrecord %s occurs more than once", e.Record, e.Sub)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicateSubrecord }

// MissingError reports a required subrecord that never appeared.
type MissingError struct {
	Record Tag
	Sub    Tag
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: required subrecord %s is missing", e.Record, e.Sub)
}

func (e *MissingError) Unwrap() error { return ErrMissingSubrecord }

// FieldSizeError reports a fixed-size subrecord with the wrong length.
type FieldSizeError struct {
	Record Tag
	Sub    Tag
	Want   int
	Got    int
}

func (e *FieldSizeError) Error() string {
	return fmt.Sprintf("%s: subrecord %s has %d bytes, want %d", e.Record, e.Sub, e.Got, e.Want)
}

func (e *FieldSizeError) Unwrap() error { return ErrInvalidFieldSize }

// OffsetError attaches the absolute byte offset at which a failure was
// detected.
type OffsetError struct {
	Offset int64
	Err    error
}

func (e *OffsetError) Error() string {
	return fmt.Sprintf("at offset %d: %v", e.Offset, e.Err)
}

func (e *OffsetError) Unwrap() error { return e.Err }
