package codec

import (
	"encoding/binary"
	"fmt"
)

// Tag is a four character type code. It is stored on disk as a little-endian
// uint32 so the first character occupies the lowest byte.
type Tag uint32

func tag(s string) Tag {
	return Tag(s[0]) | Tag(s[1])<<8 | Tag(s[2])<<16 | Tag(s[3])<<24
}

// Well-known record and subrecord tags.
var (
	TagTES3 = tag("TES3")
	TagTES4 = tag("TES4")
	TagGRUP = tag("GRUP")
	TagXXXX = tag("XXXX")

	TagHEDR = tag("HEDR")
	TagMAST = tag("MAST")
	TagDATA = tag("DATA")
	TagCNAM = tag("CNAM")
	TagSNAM = tag("SNAM")
	TagONAM = tag("ONAM")
	TagINTV = tag("INTV")
	TagINCC = tag("INCC")
	TagDELE = tag("DELE")

	TagNAME = tag("NAME")
	TagEDID = tag("EDID")
	TagFNAM = tag("FNAM")
	TagFLTV = tag("FLTV")
	TagSTRV = tag("STRV")
	TagMODL = tag("MODL")
	TagSCRI = tag("SCRI")
	TagANAM = tag("ANAM")
	TagFULL = tag("FULL")
	TagOBND = tag("OBND")

	TagGLOB = tag("GLOB")
	TagGMST = tag("GMST")
	TagSTAT = tag("STAT")
	TagDOOR = tag("DOOR")
	TagSOUN = tag("SOUN")
	TagKYWD = tag("KYWD")
	TagAACT = tag("AACT")
	TagMISC = tag("MISC")
)

// ParseTag converts a four character string into a Tag.
func ParseTag(s string) (Tag, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("invalid tag %q: must be exactly 4 bytes", s)
	}
	return tag(s), nil
}

// MustParseTag is like ParseTag but panics on malformed input. It is meant
// for package-level tag declarations.
func MustParseTag(s string) Tag {
	t, err := ParseTag(s)
	if err != nil {
		panic(err)
	}
	return t
}

// String renders the tag as its four characters. Non-printable tags are shown
// in hex.
func (t Tag) String() string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(t))
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("0x%08X", uint32(t))
		}
	}
	return string(b[:])
}

// MarshalText implements encoding.TextMarshaler.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}
