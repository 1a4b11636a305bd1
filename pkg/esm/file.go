package esm

import (
	"fmt"
	"os"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/records"
)

// File is a decoded data file: its header record followed by records and
// groups in file order.
type File struct {
	Path    string
	Variant codec.Variant
	Header  records.FileHeader
	Entries []Entry
}

// NewFile returns an empty file of variant v with a fresh header.
func NewFile(v codec.Variant, hdr records.FileHeader) *File {
	return &File{Variant: v, Header: hdr}
}

// Save writes the header and all entries.
func (f *File) Save(w *codec.Writer) error {
	if err := f.Header.Save(w); err != nil {
		return fmt.Errorf("failed to save header: %w", err)
	}
	for _, e := range f.Entries {
		if err := e.Save(w); err != nil {
			if rec, ok := e.(records.Record); ok {
				return fmt.Errorf("failed to save %s %q: %w", rec.Tag(), rec.ID(), err)
			}
			return err
		}
	}
	return nil
}

// WriteFile saves f to path through a temporary file, so path is either
// left untouched or fully written.
func (f *File) WriteFile(path string) error {
	fw, err := codec.CreateFile(path, f.Variant, codec.WithCompressor(codec.ZlibCodec{}))
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := f.Save(fw.Writer); err != nil {
		return err
	}
	return fw.Commit()
}

// Walk calls fn for every entry, depth first in file order. Returning false
// stops the walk.
func (f *File) Walk(fn func(e Entry) bool) {
	walkEntries(f.Entries, fn)
}

func walkEntries(entries []Entry, fn func(e Entry) bool) bool {
	for _, e := range entries {
		if !fn(e) {
			return false
		}
		if g, ok := e.(*Group); ok {
			if !walkEntries(g.Entries, fn) {
				return false
			}
		}
	}
	return true
}

// Records returns every record except the header in file order.
func (f *File) Records() []records.Record {
	var out []records.Record
	f.Walk(func(e Entry) bool {
		if rec, ok := e.(records.Record); ok {
			out = append(out, rec)
		}
		return true
	})
	return out
}

// Counts returns the number of records and of groups, raw groups included.
func (f *File) Counts() (recs, groups int) {
	f.Walk(func(e Entry) bool {
		switch e.(type) {
		case *Group, *RawGroup:
			groups++
		default:
			recs++
		}
		return true
	})
	return recs, groups
}

// UpdateHeaderCounts stores the record count in the header: records only
// for TES3, records plus groups for TES4. Records inside raw groups are not
// visible and are not counted.
func (f *File) UpdateHeaderCounts() {
	recs, groups := f.Counts()
	if f.Variant.Hierarchical() {
		f.Header.SetRecordCount(recs + groups)
		return
	}
	f.Header.SetRecordCount(recs)
}

// Remove drops every record for which drop returns true and then any group
// left empty. It returns the number of records removed.
func (f *File) Remove(drop func(rec records.Record) bool) int {
	var n int
	f.Entries = removeEntries(f.Entries, drop, &n)
	return n
}

func removeEntries(entries []Entry, drop func(records.Record) bool, n *int) []Entry {
	kept := entries[:0]
	for _, e := range entries {
		switch e := e.(type) {
		case *Group:
			e.Entries = removeEntries(e.Entries, drop, n)
			if len(e.Entries) == 0 {
				continue
			}
		case records.Record:
			if drop(e) {
				*n++
				continue
			}
		}
		kept = append(kept, e)
	}
	return kept
}

// HeaderInfo is the result of PeekHeader.
type HeaderInfo struct {
	Path    string
	Variant codec.Variant
	Header  records.FileHeader
}

// Masters lists the file's dependencies in header order.
func (h *HeaderInfo) Masters() []string { return h.Header.MasterFiles() }

// IsMaster reports the header's master flag.
func (h *HeaderInfo) IsMaster() bool { return h.Header.IsMasterFile() }

// PeekHeader reads only the header record of the file at path.
func PeekHeader(path string, opts ...Option) (*HeaderInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	hdr, r, err := NewWalker(opts...).ReadHeader(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &HeaderInfo{Path: path, Variant: r.Variant(), Header: hdr}, nil
}
