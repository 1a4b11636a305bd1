// Package codec provides the low-level binary framing shared by every record
// in a game data file (.esm/.esp).
//
// Two on-disk layouts are supported, selected by a Variant:
//
//   - TES3: flat files of records. Every record header is 16 bytes and
//     subrecord lengths are 32-bit.
//   - TES4: hierarchical files where records are nested in GRUP groups.
//     Record headers are 24 bytes and subrecord lengths are 16-bit.
//
// # Record Format
//
// TES3 record header:
//
//	[Tag(4)][Size(4)][HeaderOne(4)][Flags(4)][Payload(Size)]
//
// TES4 record header:
//
//	[Tag(4)][Size(4)][Flags(4)][FormID(4)][Revision(4)][Version(2)][Unknown(2)][Payload(Size)]
//
// The declared Size counts payload bytes only. All integers are
// little-endian. Sizes above the reader's cap (DefaultMaxRecordSize unless
// configured) are rejected with a SizeLimitError before any payload memory
// is allocated.
//
// # Subrecord Format
//
// The payload is a sequence of subrecords:
//
//	TES3: [Tag(4)][Length(4)][Data(Length)]
//	TES4: [Tag(4)][Length(2)][Data(Length)]
//
// A TES4 subrecord longer than 65535 bytes is preceded by an extension
// block carrying its true length:
//
//	[XXXX][4(2)][TrueLength(4)][Tag(4)][Length(2)][Data(TrueLength)]
//
// The trailing length field is advisory. Writers store its low 16 bits and
// readers ignore it.
//
// # Usage
//
// Reading the subrecords of a record:
//
//	r := codec.NewReader(file, codec.TES4)
//	tag, _ := r.ReadTag()
//	size, env, err := codec.ReadRecordHeader(r, tag)
//	if err != nil {
//	    return err
//	}
//	payload, err := r.ReadBytes(int(size))
//	...
//	fields := r.Fields(tag, payload)
//	for {
//	    fld, ok, err := fields.Next()
//	    ...
//	}
//
// Building a payload:
//
//	p := codec.NewPayloadWriter(codec.TES4)
//	p.String(codec.TagEDID, "ActionShieldChange")
//	payload, err := p.Payload()
//
// # Error Handling
//
// Failures are reported with the typed errors FormatError, SizeLimitError,
// DuplicateError, MissingError and FieldSizeError, or with ErrTruncatedInput
// for short reads. Each typed error unwraps to a sentinel so callers can
// use errors.Is.
//
// # Text
//
// Strings are stored NUL-terminated in Windows-1252. DecodeString and
// EncodeString convert to and from Go strings.
//
// # Thread Safety
//
// Reader, Writer, Fields and PayloadWriter are not safe for concurrent use.
package codec
