package codec

import (
	"bytes"
	"fmt"
)

// SubRecord is a presence-flagged byte container for one subrecord's
// payload. An absent container holds no buffer and saves nothing.
type SubRecord struct {
	data    []byte
	present bool
}

// NewSubRecord returns a present container holding a copy of data.
func NewSubRecord(data []byte) *SubRecord {
	s := &SubRecord{}
	s.SetData(data)
	return s
}

func (s *SubRecord) IsPresent() bool { return s.present }

// SetPresence marks the container present or absent. Marking it absent drops
// the buffer.
func (s *SubRecord) SetPresence(present bool) {
	s.present = present
	if !present {
		s.data = nil
	}
}

func (s *SubRecord) Size() int { return len(s.data) }

// Data returns the payload. Callers must not modify it.
func (s *SubRecord) Data() []byte { return s.data }

// SetData replaces the payload with a copy of data and marks it present.
func (s *SubRecord) SetData(data []byte) {
	if len(data) == 0 {
		s.data = nil
	} else {
		s.data = append([]byte(nil), data...)
	}
	s.present = true
}

// Clone returns a deep copy.
func (s *SubRecord) Clone() *SubRecord {
	c := &SubRecord{present: s.present}
	if s.data != nil {
		c.data = append([]byte(nil), s.data...)
	}
	return c
}

// Equal compares presence, size and content.
func (s *SubRecord) Equal(other *SubRecord) bool {
	if s.present != other.present {
		return false
	}
	return bytes.Equal(s.data, other.data)
}

// Load reads one subrecord. When withHeader is set the tag is read and
// checked against expected, otherwise the caller has consumed it already.
// On failure the container is left absent.
func (s *SubRecord) Load(r *Reader, expected Tag, withHeader bool) error {
	s.SetPresence(false)
	if withHeader {
		if err := expectTag(r, expected); err != nil {
			return err
		}
	}

	var length uint32
	if r.Variant() == TES4 {
		l, err := r.ReadUint16()
		if err != nil {
			return err
		}
		length = uint32(l)
	} else {
		l, err := r.ReadUint32()
		if err != nil {
			return err
		}
		if limit := r.MaxRecordSize(); l > limit {
			return &SizeLimitError{Tag: expected, Size: l, Limit: limit}
		}
		length = l
	}

	return s.read(r, length)
}

// LoadExtended reads a subrecord that follows an XXXX extension. The
// immediate length field must be zero or the low 16 bits of trueLength;
// trueLength bytes are read. Files from the game's own editor carry zero,
// Save below writes the low 16 bits, and both have to read back.
func (s *SubRecord) LoadExtended(r *Reader, expected Tag, withHeader bool, trueLength uint32) error {
	s.SetPresence(false)
	if withHeader {
		if err := expectTag(r, expected); err != nil {
			return err
		}
	}
	l, err := r.ReadUint16()
	if err != nil {
		return err
	}
	if l != 0 && l != uint16(trueLength) {
		return fmt.Errorf("%s: extended subrecord has non-zero length field %d", expected, l)
	}
	if limit := r.MaxRecordSize(); trueLength > limit {
		return &SizeLimitError{Tag: expected, Size: trueLength, Limit: limit}
	}
	return s.read(r, trueLength)
}

func (s *SubRecord) read(r *Reader, length uint32) error {
	var buf []byte
	if length > 0 {
		buf = make([]byte, length)
		if err := r.ReadFull(buf); err != nil {
			return err
		}
	}
	s.data = buf
	s.present = true
	return nil
}

// Save writes tag, length and payload using the writer's variant framing.
// Nothing is written when the container is absent.
func (s *SubRecord) Save(w *Writer, t Tag) error {
	if !s.present {
		return nil
	}
	writeSubrecord(w, t, s.data)
	return w.Err()
}

// WrittenSize is the number of bytes Save would produce.
func (s *SubRecord) WrittenSize(v Variant) int {
	if !s.present {
		return 0
	}
	return subrecordSize(v, len(s.data))
}

func expectTag(r *Reader, expected Tag) error {
	found, err := r.ReadTag()
	if err != nil {
		return err
	}
	if found != expected {
		return &FormatError{Expected: expected, Found: found}
	}
	return nil
}

func subrecordSize(v Variant, n int) int {
	size := v.SubrecordHeaderSize() + n
	if v == TES4 && n > MaxShortSubrecord {
		size += 10
	}
	return size
}

func writeSubrecord(w *Writer, t Tag, data []byte) {
	if w.Variant() != TES4 {
		w.WriteTag(t)
		w.WriteUint32(uint32(len(data)))
		w.Write(data)
		return
	}
	if len(data) > MaxShortSubrecord {
		w.WriteTag(TagXXXX)
		w.WriteUint16(4)
		w.WriteUint32(uint32(len(data)))
	}
	w.WriteTag(t)
	// low 16 bits only; readers take the length from XXXX
	w.WriteUint16(uint16(len(data)))
	w.Write(data)
}
