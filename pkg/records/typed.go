package records

import (
	"errors"
	"fmt"

	"github.com/ssargent/esmkit/pkg/codec"
)

// Typed is a record whose payload is decoded into named fields.
type Typed interface {
	Record
	// DecodeFields populates the record from its payload. It is called
	// after the envelope has been read and any compression undone.
	DecodeFields(f *codec.Fields) error
	// EncodeFields appends the record's subrecords in canonical order.
	EncodeFields(p *codec.PayloadWriter) error
}

// DecodeError reports a record that was read completely but whose
// subrecords do not fit its typed layout. It carries everything needed to
// keep the record verbatim as a Generic.
type DecodeError struct {
	Tag     codec.Tag
	Variant codec.Variant
	Header  codec.Envelope
	Payload []byte // as stored, compressed when flagged
	ID      string
	Err     error
}

func (e *DecodeError) Error() string { return e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// Generic returns the record as a Generic holding the stored payload.
func (e *DecodeError) Generic() *Generic {
	g := NewGeneric(e.Tag, e.Variant)
	g.Header = e.Header
	if len(e.Payload) > 0 {
		g.data = e.Payload
	}
	g.id = e.ID
	return g
}

// AsFallback returns the Generic form of a record that failed typed
// decoding, if err is such a failure.
func AsFallback(err error) (*Generic, bool) {
	var de *DecodeError
	if !errors.As(err, &de) {
		return nil, false
	}
	return de.Generic(), true
}

// LoadTyped implements Record.Load for typed records: it reads the header,
// the payload, decompresses it when flagged, and hands the subrecords to
// rec.DecodeFields. Subrecord errors are returned as *DecodeError.
func LoadTyped(r *codec.Reader, rec Typed) error {
	b := rec.base()
	b.forget()
	size, env, err := codec.ReadRecordHeader(r, rec.Tag())
	if err != nil {
		return err
	}
	stored, err := r.ReadBytes(int(size))
	if err != nil {
		return err
	}
	*rec.Envelope() = env

	plain := stored
	if env.IsCompressed() {
		d := r.Decompressor()
		if d == nil {
			return fmt.Errorf("%s: %w", rec.Tag(), codec.ErrCompressed)
		}
		if plain, err = d.Decompress(stored); err != nil {
			return fmt.Errorf("%s: %w", rec.Tag(), err)
		}
	}
	// deleted TES4 records may have an empty payload
	if len(plain) > 0 || !env.IsDeleted() {
		if err := rec.DecodeFields(r.Fields(rec.Tag(), plain)); err != nil {
			return &DecodeError{
				Tag:     rec.Tag(),
				Variant: rec.Variant(),
				Header:  env,
				Payload: stored,
				ID:      scanID(rec.Tag(), rec.Variant(), plain),
				Err:     err,
			}
		}
	}
	*b = Base{
		Header:     *rec.Envelope(),
		loaded:     true,
		compressed: env.IsCompressed(),
		stored:     stored,
		plain:      plain,
	}
	canon, err := encodeFields(rec)
	b.canon, b.canonOK = canon, err == nil
	return nil
}

// SaveTyped implements Record.Save for typed records. A record whose fields
// are unchanged since Load writes the payload it was read from; otherwise
// the declared size is recomputed from the encoded fields.
func SaveTyped(w *codec.Writer, rec Typed) error {
	payload, err := encodeFields(rec)
	env := *rec.Envelope()
	if b := rec.base(); b.original(payload, err == nil) {
		return writeRecord(w, rec.Tag(), env, b.stored)
	}
	if err != nil {
		return err
	}
	if env.IsCompressed() {
		c := w.Compressor()
		if c == nil {
			return fmt.Errorf("%s: %w", rec.Tag(), codec.ErrCompressed)
		}
		if payload, err = c.Compress(payload); err != nil {
			return fmt.Errorf("%s: %w", rec.Tag(), err)
		}
	}
	return writeRecord(w, rec.Tag(), env, payload)
}

func encodeFields(rec Typed) ([]byte, error) {
	p := codec.NewPayloadWriter(rec.Variant())
	if err := rec.EncodeFields(p); err != nil {
		return nil, err
	}
	return p.Payload()
}

func writeRecord(w *codec.Writer, t codec.Tag, env codec.Envelope, payload []byte) error {
	if err := codec.WriteRecordHeader(w, t, uint32(len(payload)), env); err != nil {
		return err
	}
	w.Write(payload)
	return w.Err()
}
