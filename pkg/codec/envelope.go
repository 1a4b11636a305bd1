package codec

// Record flags shared by both layouts.
const (
	FlagMaster     uint32 = 0x00000001 // file header only
	FlagDeleted    uint32 = 0x00000020
	FlagLocalized  uint32 = 0x00000080 // TES4 file header only
	FlagPersistent uint32 = 0x00000400
	FlagIgnored    uint32 = 0x00001000
	FlagBlocked    uint32 = 0x00002000
	FlagCompressed uint32 = 0x00040000
	FlagESLFlagged uint32 = 0x00000200 // TES4 file header only
)

// Envelope holds the per-record header fields other than tag and size. TES3
// uses HeaderOne and Flags; TES4 uses everything except HeaderOne.
type Envelope struct {
	HeaderOne uint32 `json:"header_one,omitempty"`
	Flags     uint32 `json:"flags"`
	FormID    uint32 `json:"form_id,omitempty"`
	Revision  uint32 `json:"revision,omitempty"`
	Version   uint16 `json:"version,omitempty"`
	Unknown   uint16 `json:"unknown,omitempty"`
}

func (e Envelope) IsDeleted() bool    { return e.Flags&FlagDeleted != 0 }
func (e Envelope) IsPersistent() bool { return e.Flags&FlagPersistent != 0 }
func (e Envelope) IsIgnored() bool    { return e.Flags&FlagIgnored != 0 }
func (e Envelope) IsBlocked() bool    { return e.Flags&FlagBlocked != 0 }
func (e Envelope) IsCompressed() bool { return e.Flags&FlagCompressed != 0 }

// SetFlag sets or clears flag.
func (e *Envelope) SetFlag(flag uint32, on bool) {
	if on {
		e.Flags |= flag
	} else {
		e.Flags &^= flag
	}
}

// TotalWrittenSize returns the number of bytes a record with this envelope
// and payload occupies on disk.
func TotalWrittenSize(v Variant, payloadSize int) int {
	return v.HeaderSize() + payloadSize
}

// ReadRecordHeader reads the declared payload size and envelope of a record
// whose tag the caller has already consumed. The size is checked against the
// reader's cap before anything else is read.
func ReadRecordHeader(r *Reader, t Tag) (uint32, Envelope, error) {
	var env Envelope
	size, err := r.ReadUint32()
	if err != nil {
		return 0, env, err
	}
	if limit := r.MaxRecordSize(); size > limit {
		return 0, env, &SizeLimitError{Tag: t, Size: size, Limit: limit}
	}

	switch r.Variant() {
	case TES4:
		if env.Flags, err = r.ReadUint32(); err != nil {
			return 0, env, err
		}
		if env.FormID, err = r.ReadUint32(); err != nil {
			return 0, env, err
		}
		if env.Revision, err = r.ReadUint32(); err != nil {
			return 0, env, err
		}
		if env.Version, err = r.ReadUint16(); err != nil {
			return 0, env, err
		}
		if env.Unknown, err = r.ReadUint16(); err != nil {
			return 0, env, err
		}
	default:
		if env.HeaderOne, err = r.ReadUint32(); err != nil {
			return 0, env, err
		}
		if env.Flags, err = r.ReadUint32(); err != nil {
			return 0, env, err
		}
	}
	return size, env, nil
}

// WriteRecordHeader writes tag, declared size and envelope.
func WriteRecordHeader(w *Writer, t Tag, size uint32, env Envelope) error {
	w.WriteTag(t)
	w.WriteUint32(size)
	if w.Variant() == TES4 {
		w.WriteUint32(env.Flags)
		w.WriteUint32(env.FormID)
		w.WriteUint32(env.Revision)
		w.WriteUint16(env.Version)
		w.WriteUint16(env.Unknown)
	} else {
		w.WriteUint32(env.HeaderOne)
		w.WriteUint32(env.Flags)
	}
	return w.Err()
}
