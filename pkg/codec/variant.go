package codec

import (
	"fmt"
	"strings"
)

// Variant selects one of the two on-disk layouts.
type Variant int

const (
	// VariantUnknown is the zero value; readers detect the variant from the
	// file magic when it is left unset.
	VariantUnknown Variant = iota
	// TES3 is the flat layout: 16-byte record headers, uint32 subrecord
	// lengths, identity in NAME.
	TES3
	// TES4 is the hierarchical layout: 24-byte record headers, uint16
	// subrecord lengths with XXXX extensions, groups, identity in EDID.
	TES4
)

const (
	// DefaultMaxRecordSize caps declared record payload sizes.
	DefaultMaxRecordSize uint32 = 256 * 1024

	// MaxShortSubrecord is the largest length a uint16 length field can hold.
	MaxShortSubrecord = 0xFFFF

	// GroupHeaderSize is the size of a GRUP header including its tag.
	GroupHeaderSize = 24
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case TES3:
		return "tes3"
	case TES4:
		return "tes4"
	default:
		return "unknown"
	}
}

// ParseVariant parses "tes3", "tes4" or "auto" (case-insensitive). "auto" and
// the empty string yield VariantUnknown.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return VariantUnknown, nil
	case "tes3", "morrowind", "flat":
		return TES3, nil
	case "tes4", "skyrim", "hierarchical":
		return TES4, nil
	}
	return VariantUnknown, fmt.Errorf("unknown variant %q", s)
}

// DetectVariant maps a file's leading magic to its variant.
func DetectVariant(magic Tag) (Variant, error) {
	switch magic {
	case TagTES3:
		return TES3, nil
	case TagTES4:
		return TES4, nil
	}
	return VariantUnknown, &FormatError{Expected: TagTES4, Found: magic}
}

// HeaderSize is the size of a record header including the 4-byte tag.
func (v Variant) HeaderSize() int {
	if v == TES4 {
		return 24
	}
	return 16
}

// FileTag is the tag of the file header record.
func (v Variant) FileTag() Tag {
	if v == TES4 {
		return TagTES4
	}
	return TagTES3
}

// IDTag is the subrecord that carries a record's identity.
func (v Variant) IDTag() Tag {
	if v == TES4 {
		return TagEDID
	}
	return TagNAME
}

// Hierarchical reports whether the layout contains groups.
func (v Variant) Hierarchical() bool { return v == TES4 }

// LengthSize is the width of a subrecord length field.
func (v Variant) LengthSize() int {
	if v == TES4 {
		return 2
	}
	return 4
}

// SubrecordHeaderSize is tag plus length field.
func (v Variant) SubrecordHeaderSize() int { return 4 + v.LengthSize() }
