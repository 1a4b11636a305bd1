package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Field is one subrecord inside an in-memory record payload.
type Field struct {
	Tag    Tag
	Data   []byte
	record Tag
}

// Fields scans the subrecords of a record payload. It resolves XXXX
// extensions transparently and remembers which once-only tags it has seen.
type Fields struct {
	record  Tag
	variant Variant
	data    []byte
	pos     int
	seen    map[Tag]bool

	// Localized is set when the owning file stores text subrecords as
	// string table IDs.
	Localized bool
	// Strings resolves localized IDs; it may be nil.
	Strings StringTable
}

// NewFields returns a scanner over payload for a record of type record.
func NewFields(record Tag, v Variant, payload []byte) *Fields {
	return &Fields{
		record:  record,
		variant: v,
		data:    payload,
		seen:    make(map[Tag]bool),
	}
}

// Record is the tag of the record being scanned.
func (f *Fields) Record() Tag { return f.record }

// Remaining is the number of unread payload bytes.
func (f *Fields) Remaining() int { return len(f.data) - f.pos }

// Peek returns the tag of the next subrecord without consuming it. An XXXX
// prefix is looked through.
func (f *Fields) Peek() (Tag, bool) {
	if f.Remaining() < 4 {
		return 0, false
	}
	t := Tag(binary.LittleEndian.Uint32(f.data[f.pos:]))
	if t == TagXXXX && f.variant == TES4 && f.Remaining() >= 14 {
		t = Tag(binary.LittleEndian.Uint32(f.data[f.pos+10:]))
	}
	return t, true
}

// Next returns the next subrecord. ok is false once the payload is
// exhausted.
func (f *Fields) Next() (fld Field, ok bool, err error) {
	if f.pos == len(f.data) {
		return Field{}, false, nil
	}
	t, length, err := f.header()
	if err != nil {
		return Field{}, false, err
	}
	if t == TagXXXX && f.variant == TES4 {
		if length != 4 {
			return Field{}, false, &FieldSizeError{Record: f.record, Sub: TagXXXX, Want: 4, Got: length}
		}
		if f.Remaining() < 4 {
			return Field{}, false, f.truncated(4)
		}
		trueLength := int(binary.LittleEndian.Uint32(f.data[f.pos:]))
		f.pos += 4
		if t, _, err = f.header(); err != nil {
			return Field{}, false, err
		}
		length = trueLength
	}
	if f.Remaining() < length {
		return Field{}, false, f.truncated(length)
	}
	fld = Field{Tag: t, Data: f.data[f.pos : f.pos+length], record: f.record}
	f.pos += length
	return fld, true, nil
}

func (f *Fields) header() (Tag, int, error) {
	need := f.variant.SubrecordHeaderSize()
	if f.Remaining() < need {
		return 0, 0, f.truncated(need)
	}
	t := Tag(binary.LittleEndian.Uint32(f.data[f.pos:]))
	var length int
	if f.variant == TES4 {
		length = int(binary.LittleEndian.Uint16(f.data[f.pos+4:]))
	} else {
		length = int(binary.LittleEndian.Uint32(f.data[f.pos+4:]))
	}
	f.pos += need
	return t, length, nil
}

func (f *Fields) truncated(want int) error {
	return fmt.Errorf("%s: %w: subrecord needs %d bytes, %d left", f.record, ErrTruncatedInput, want, f.Remaining())
}

// Once records t as seen and fails if it was seen before.
func (f *Fields) Once(t Tag) error {
	if f.seen[t] {
		return &DuplicateError{Record: f.record, Sub: t}
	}
	f.seen[t] = true
	return nil
}

// Seen reports whether Once was called for t.
func (f *Fields) Seen(t Tag) bool { return f.seen[t] }

// Require fails with a MissingError for the first tag in tags that was never
// passed to Once.
func (f *Fields) Require(tags ...Tag) error {
	for _, t := range tags {
		if !f.seen[t] {
			return &MissingError{Record: f.record, Sub: t}
		}
	}
	return nil
}

// Expect reads the next subrecord and requires it to be t.
func (f *Fields) Expect(t Tag) (Field, error) {
	fld, ok, err := f.Next()
	if err != nil {
		return Field{}, err
	}
	if !ok {
		return Field{}, &MissingError{Record: f.record, Sub: t}
	}
	if fld.Tag != t {
		return Field{}, &FormatError{Record: f.record, Expected: t, Found: fld.Tag}
	}
	f.seen[t] = true
	return fld, nil
}

// Unexpected builds the error for a subrecord the record does not allow.
func (f *Fields) Unexpected(fld Field) error {
	return &FormatError{Record: f.record, Found: fld.Tag}
}

func (fld Field) size(want int) error {
	if len(fld.Data) != want {
		return &FieldSizeError{Record: fld.record, Sub: fld.Tag, Want: want, Got: len(fld.Data)}
	}
	return nil
}

// Text decodes a NUL-terminated Windows-1252 string. The declared length
// includes the terminator; a missing terminator is tolerated. Bytes after
// the first NUL are not part of the string; records that are saved without
// changes keep them.
func (fld Field) Text() (string, error) {
	data := fld.Data
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return DecodeString(data)
}

// Bytes returns a copy of the payload.
func (fld Field) Bytes() []byte {
	return append([]byte(nil), fld.Data...)
}

func (fld Field) Uint8() (uint8, error) {
	if err := fld.size(1); err != nil {
		return 0, err
	}
	return fld.Data[0], nil
}

func (fld Field) Uint16() (uint16, error) {
	if err := fld.size(2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(fld.Data), nil
}

func (fld Field) Uint32() (uint32, error) {
	if err := fld.size(4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(fld.Data), nil
}

func (fld Field) Int32() (int32, error) {
	u, err := fld.Uint32()
	return int32(u), err
}

func (fld Field) Float32() (float32, error) {
	u, err := fld.Uint32()
	return math.Float32frombits(u), err
}

func (fld Field) Uint64() (uint64, error) {
	if err := fld.size(8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(fld.Data), nil
}

// LocalizedString reads a text subrecord that is either an inline string or,
// for localized files, a uint32 string table ID. The ID is zero for inline
// strings. Unresolvable IDs yield an empty string.
func (f *Fields) LocalizedString(fld Field) (string, uint32, error) {
	if !f.Localized {
		s, err := fld.Text()
		return s, 0, err
	}
	id, err := fld.Uint32()
	if err != nil {
		return "", 0, err
	}
	if f.Strings != nil {
		if s, ok := f.Strings.Lookup(id); ok {
			return s, id, nil
		}
	}
	return "", id, nil
}
