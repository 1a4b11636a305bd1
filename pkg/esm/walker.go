package esm

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/records"
	"github.com/ssargent/esmkit/pkg/records/tes3"
	"github.com/ssargent/esmkit/pkg/records/tes4"
	"github.com/ssargent/esmkit/pkg/store"
)

// Stats summarizes one walk.
type Stats struct {
	Records       int `json:"records"`
	Groups        int `json:"groups"`
	SkippedGroups int `json:"skipped_groups"`
	Updated       int `json:"updated"`
}

// Walker reads whole data files: the header record, then every record and
// group until end of input.
type Walker struct {
	registries    map[codec.Variant]*records.Registry
	variant       codec.Variant
	needGroup     func(GroupHeader) bool
	sink          store.Sink
	keepSkipped   bool
	logger        *log.Logger
	decompressor  codec.Decompressor
	strings       codec.StringTable
	maxRecordSize uint32
}

// Option configures a Walker.
type Option func(*Walker)

// WithVariant requires files to be of variant v instead of detecting it.
func WithVariant(v codec.Variant) Option {
	return func(w *Walker) { w.variant = v }
}

// WithRegistry replaces the record registry for reg's variant.
func WithRegistry(reg *records.Registry) Option {
	return func(w *Walker) { w.registries[reg.Variant()] = reg }
}

// WithNeedGroup sets the predicate deciding whether a group is descended
// into. Groups it rejects are kept as raw bytes, or dropped with
// WithKeepSkipped(false). The default descends into all.
func WithNeedGroup(fn func(GroupHeader) bool) Option {
	return func(w *Walker) {
		if fn != nil {
			w.needGroup = fn
		}
	}
}

// WithSink merges every decoded record into sink as well.
func WithSink(sink store.Sink) Option {
	return func(w *Walker) { w.sink = sink }
}

// WithKeepSkipped controls whether skipped groups are kept as raw bytes so
// the file saves unchanged (the default). With keep false they are seeked
// past and a saved file lacks them.
func WithKeepSkipped(keep bool) Option {
	return func(w *Walker) { w.keepSkipped = keep }
}

// WithLogger sets the logger for per-group tracing.
func WithLogger(l *log.Logger) Option {
	return func(w *Walker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDecompressor overrides the default zlib decompressor. Passing nil
// makes compressed typed records fail with codec.ErrCompressed.
func WithDecompressor(d codec.Decompressor) Option {
	return func(w *Walker) { w.decompressor = d }
}

// WithStringTable resolves localized strings through st.
func WithStringTable(st codec.StringTable) Option {
	return func(w *Walker) { w.strings = st }
}

// WithMaxRecordSize overrides codec.DefaultMaxRecordSize.
func WithMaxRecordSize(n uint32) Option {
	return func(w *Walker) { w.maxRecordSize = n }
}

// NewWalker returns a walker with the built-in TES3 and TES4 registries.
func NewWalker(opts ...Option) *Walker {
	w := &Walker{
		registries: map[codec.Variant]*records.Registry{
			codec.TES3: tes3.Registry(),
			codec.TES4: tes4.Registry(),
		},
		needGroup:    func(GroupHeader) bool { return true },
		keepSkipped:  true,
		logger:       log.New(io.Discard, "", 0),
		decompressor: codec.ZlibCodec{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Registry returns the registry used for v.
func (w *Walker) Registry(v codec.Variant) *records.Registry {
	return w.registries[v]
}

func (w *Walker) readerOptions() []codec.ReaderOption {
	return []codec.ReaderOption{
		codec.WithStartOffset(4),
		codec.WithMaxRecordSize(w.maxRecordSize),
		codec.WithDecompressor(w.decompressor),
		codec.WithStringTable(w.strings),
	}
}

// ReadHeader reads only the file header record from src and returns a
// reader positioned after it.
func (w *Walker) ReadHeader(src io.Reader) (records.FileHeader, *codec.Reader, error) {
	var magic [4]byte
	if _, err := io.ReadFull(src, magic[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nil, fmt.Errorf("failed to read file magic: %w", codec.ErrTruncatedInput)
		}
		return nil, nil, err
	}
	tag := codec.Tag(uint32(magic[0]) | uint32(magic[1])<<8 | uint32(magic[2])<<16 | uint32(magic[3])<<24)

	v, err := codec.DetectVariant(tag)
	if err != nil {
		return nil, nil, err
	}
	if w.variant != codec.VariantUnknown && v != w.variant {
		return nil, nil, &codec.FormatError{Expected: w.variant.FileTag(), Found: tag}
	}
	reg, ok := w.registries[v]
	if !ok {
		return nil, nil, fmt.Errorf("no record registry for %s", v)
	}

	r := codec.NewReader(src, v, w.readerOptions()...)
	rec, err := reg.Load(r, tag)
	if err != nil {
		return nil, nil, &codec.OffsetError{Offset: 0, Err: err}
	}
	hdr, ok := rec.(records.FileHeader)
	if !ok {
		return nil, nil, fmt.Errorf("registry decoded %s header as %T", v, rec)
	}
	r.SetLocalized(hdr.IsLocalized())
	return hdr, r, nil
}

// Read walks src to its end. On failure the partially built file is
// returned with the error; records already merged into the sink stay there.
func (w *Walker) Read(src io.Reader) (*File, Stats, error) {
	var stats Stats
	hdr, r, err := w.ReadHeader(src)
	if err != nil {
		return nil, stats, err
	}
	f := &File{Variant: r.Variant(), Header: hdr}
	w.logger.Printf("reading %s file, %d masters", f.Variant, len(hdr.MasterFiles()))

	for {
		eof, err := r.AtEOF()
		if err != nil {
			return f, stats, err
		}
		if eof {
			return f, stats, nil
		}
		if err := w.readChunk(r, &f.Entries, &stats); err != nil {
			return f, stats, err
		}
	}
}

// readChunk reads one record or group into entries.
func (w *Walker) readChunk(r *codec.Reader, entries *[]Entry, stats *Stats) error {
	start := r.Offset()
	tag, err := r.ReadTag()
	if err != nil {
		return &codec.OffsetError{Offset: start, Err: err}
	}
	if tag == codec.TagGRUP && r.Variant().Hierarchical() {
		return w.processGroup(r, start, entries, stats)
	}
	n, err := w.ReadNextRecord(r, tag, entries)
	if err != nil {
		return &codec.OffsetError{Offset: start, Err: err}
	}
	stats.Records++
	stats.Updated += n
	return nil
}

func (w *Walker) processGroup(r *codec.Reader, start int64, entries *[]Entry, stats *Stats) error {
	h, err := readGroupHeader(r)
	if err != nil {
		return &codec.OffsetError{Offset: start, Err: err}
	}
	end := start + int64(h.Size)

	if !w.needGroup(h) {
		stats.SkippedGroups++
		w.logger.Printf("skipping %s at offset %d", h, start)
		if w.keepSkipped {
			data, err := r.ReadStream(h.ContentSize())
			if err != nil {
				return &codec.OffsetError{Offset: start, Err: err}
			}
			*entries = append(*entries, &RawGroup{Header: h, Data: data})
			return nil
		}
		if err := r.Skip(h.ContentSize()); err != nil {
			return &codec.OffsetError{Offset: start, Err: err}
		}
		return nil
	}

	w.logger.Printf("entering %s at offset %d", h, start)
	stats.Groups++
	g := &Group{Header: h}
	*entries = append(*entries, g)
	for r.Offset() < end {
		if err := w.readChunk(r, &g.Entries, stats); err != nil {
			return err
		}
	}
	if r.Offset() != end {
		return &codec.OffsetError{
			Offset: start,
			Err:    fmt.Errorf("group contents overrun declared size %d by %d bytes", h.Size, r.Offset()-end),
		}
	}
	return nil
}

// ReadNextRecord decodes the record whose tag was just read, appends it to
// into and merges it into the sink. It returns the number of store records
// the sink updated.
//
// A record that frames correctly but whose subrecords do not match its
// typed layout is kept verbatim as a Generic. Typed stores in the sink do
// not receive it.
func (w *Walker) ReadNextRecord(r *codec.Reader, tag codec.Tag, into *[]Entry) (int, error) {
	reg, ok := w.registries[r.Variant()]
	if !ok {
		return 0, fmt.Errorf("no record registry for %s", r.Variant())
	}
	rec, err := reg.Load(r, tag)
	fallback := false
	if err != nil {
		g, ok := records.AsFallback(err)
		if !ok {
			return 0, err
		}
		w.logger.Printf("keeping %s %q verbatim: %v", tag, g.ID(), err)
		rec, fallback = g, true
	}
	*into = append(*into, rec)
	if w.sink == nil {
		return 0, nil
	}
	res, err := w.sink.Accept(rec)
	if err != nil {
		if fallback && errors.Is(err, store.ErrTypeMismatch) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to store %s %q: %w", tag, rec.ID(), err)
	}
	return int(res), nil
}

// ReadFile opens path and walks it with a walker built from opts.
func ReadFile(path string, opts ...Option) (*File, Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, err
	}
	defer file.Close()

	f, stats, err := NewWalker(opts...).Read(file)
	if err != nil {
		return f, stats, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	return f, stats, nil
}
