// Package strtable reads the string tables that localized TES4 files keep
// next to them in Strings/<plugin>_<language>.{STRINGS,DLSTRINGS,ILSTRINGS}.
package strtable

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ssargent/esmkit/pkg/codec"
)

// Kind selects the entry layout of a table file.
type Kind int

const (
	// Strings entries are NUL-terminated.
	Strings Kind = iota
	// DLStrings entries are prefixed by a uint32 length that counts the
	// terminator.
	DLStrings
	// ILStrings use the DLStrings layout.
	ILStrings
)

// Extension returns the file extension of k, dot included.
func (k Kind) Extension() string {
	switch k {
	case DLStrings:
		return ".DLSTRINGS"
	case ILStrings:
		return ".ILSTRINGS"
	}
	return ".STRINGS"
}

// KindFromPath derives the table kind from the file extension.
func KindFromPath(path string) (Kind, error) {
	switch strings.ToUpper(filepath.Ext(path)) {
	case ".STRINGS":
		return Strings, nil
	case ".DLSTRINGS":
		return DLStrings, nil
	case ".ILSTRINGS":
		return ILStrings, nil
	}
	return 0, fmt.Errorf("unknown string table extension %q", filepath.Ext(path))
}

var ErrMalformed = errors.New("malformed string table")

// Table maps string IDs to text. It implements codec.StringTable and is
// safe for concurrent reads once loaded.
type Table struct {
	entries map[uint32]string
}

// New returns an empty table.
func New() *Table {
	return &Table{entries: make(map[uint32]string)}
}

// Lookup implements codec.StringTable.
func (t *Table) Lookup(id uint32) (string, bool) {
	s, ok := t.entries[id]
	return s, ok
}

// Set adds or replaces an entry.
func (t *Table) Set(id uint32, s string) { t.entries[id] = s }

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// IDs returns the entry IDs in ascending order.
func (t *Table) IDs() []uint32 {
	ids := make([]uint32, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Merge copies every entry of other into t, replacing duplicates.
func (t *Table) Merge(other *Table) {
	for id, s := range other.entries {
		t.entries[id] = s
	}
}

// Read parses a whole table of kind k from r.
func Read(r io.Reader, k Kind) (*Table, error) {
	var head [8]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	count := binary.LittleEndian.Uint32(head[0:])
	dataSize := binary.LittleEndian.Uint32(head[4:])

	dir := make([]byte, 0, 8*min(int(count), 1<<16))
	dirBuf := bytes.NewBuffer(dir)
	if n, err := io.CopyN(dirBuf, r, 8*int64(count)); err != nil {
		return nil, fmt.Errorf("%w: directory has %d of %d bytes", ErrMalformed, n, 8*int64(count))
	}
	var data bytes.Buffer
	if n, err := io.CopyN(&data, r, int64(dataSize)); err != nil {
		return nil, fmt.Errorf("%w: data block has %d of %d bytes", ErrMalformed, n, dataSize)
	}

	t := New()
	d := dirBuf.Bytes()
	block := data.Bytes()
	for i := 0; i < int(count); i++ {
		id := binary.LittleEndian.Uint32(d[8*i:])
		off := binary.LittleEndian.Uint32(d[8*i+4:])
		s, err := entryAt(block, off, k)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", id, err)
		}
		t.entries[id] = s
	}
	return t, nil
}

func entryAt(block []byte, off uint32, k Kind) (string, error) {
	if int64(off) >= int64(len(block)) {
		return "", fmt.Errorf("%w: offset %d outside data block of %d bytes", ErrMalformed, off, len(block))
	}
	rest := block[off:]
	var raw []byte
	if k == Strings {
		end := bytes.IndexByte(rest, 0)
		if end < 0 {
			return "", fmt.Errorf("%w: unterminated string at offset %d", ErrMalformed, off)
		}
		raw = rest[:end]
	} else {
		if len(rest) < 4 {
			return "", fmt.Errorf("%w: truncated length at offset %d", ErrMalformed, off)
		}
		n := binary.LittleEndian.Uint32(rest)
		if uint64(n) > uint64(len(rest)-4) {
			return "", fmt.Errorf("%w: string at offset %d overruns data block", ErrMalformed, off)
		}
		raw = rest[4 : 4+n]
		if i := bytes.IndexByte(raw, 0); i >= 0 {
			raw = raw[:i]
		}
	}
	return codec.DecodeString(raw)
}

// Write encodes t as a table of kind k.
func Write(w io.Writer, t *Table, k Kind) error {
	ids := t.IDs()
	var data bytes.Buffer
	dir := make([]byte, 8*len(ids))
	for i, id := range ids {
		enc, err := codec.EncodeString(t.entries[id])
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(dir[8*i:], id)
		binary.LittleEndian.PutUint32(dir[8*i+4:], uint32(data.Len()))
		if k != Strings {
			var n [4]byte
			binary.LittleEndian.PutUint32(n[:], uint32(len(enc)+1))
			data.Write(n[:])
		}
		data.Write(enc)
		data.WriteByte(0)
	}

	var head [8]byte
	binary.LittleEndian.PutUint32(head[0:], uint32(len(ids)))
	binary.LittleEndian.PutUint32(head[4:], uint32(data.Len()))
	for _, b := range [][]byte{head[:], dir, data.Bytes()} {
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

// ReadFile reads the table at path, deriving its kind from the extension.
func ReadFile(path string) (*Table, error) {
	k, err := KindFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Read(f, k)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// AssociatedFiles returns the three table paths that belong to the plugin at
// pluginPath for language, e.g. Data/Strings/Skyrim_english.STRINGS.
func AssociatedFiles(pluginPath, language string) []string {
	dir := filepath.Join(filepath.Dir(pluginPath), "Strings")
	base := strings.TrimSuffix(filepath.Base(pluginPath), filepath.Ext(pluginPath))
	out := make([]string, 0, 3)
	for _, k := range []Kind{Strings, DLStrings, ILStrings} {
		out = append(out, filepath.Join(dir, base+"_"+strings.ToLower(language)+k.Extension()))
	}
	return out
}

// LoadForPlugin reads and merges all tables of pluginPath that exist.
// Missing tables are skipped; other errors are returned.
func LoadForPlugin(pluginPath, language string) (*Table, error) {
	t := New()
	for _, p := range AssociatedFiles(pluginPath, language) {
		part, err := ReadFile(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		t.Merge(part)
	}
	return t, nil
}
