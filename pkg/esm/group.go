package esm

import (
	"bytes"
	"fmt"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/records"
)

// Group types stored in a GRUP header.
const (
	GroupTop                  uint32 = 0
	GroupWorldChildren        uint32 = 1
	GroupInteriorCellBlock    uint32 = 2
	GroupInteriorCellSubBlock uint32 = 3
	GroupExteriorCellBlock    uint32 = 4
	GroupExteriorCellSubBlock uint32 = 5
	GroupCellChildren         uint32 = 6
	GroupTopicChildren        uint32 = 7
	GroupCellPersistent       uint32 = 8
	GroupCellTemporary        uint32 = 9
	GroupCellVisibleDistant   uint32 = 10
)

// GroupHeader is the 24-byte header of a GRUP. Size includes the header.
type GroupHeader struct {
	Size    uint32 `json:"size"`
	Label   uint32 `json:"label"`
	Type    uint32 `json:"type"`
	Stamp   uint32 `json:"stamp"`
	Unknown uint32 `json:"unknown"`
}

// LabelTag interprets the label of a top group as the record tag it holds.
func (h GroupHeader) LabelTag() codec.Tag { return codec.Tag(h.Label) }

// ContentSize is the number of bytes following the header.
func (h GroupHeader) ContentSize() int64 { return int64(h.Size) - codec.GroupHeaderSize }

func (h GroupHeader) String() string {
	if h.Type == GroupTop {
		return fmt.Sprintf("GRUP top %s (%d bytes)", h.LabelTag(), h.Size)
	}
	return fmt.Sprintf("GRUP type %d label 0x%08X (%d bytes)", h.Type, h.Label, h.Size)
}

// readGroupHeader reads the fields after the GRUP tag.
func readGroupHeader(r *codec.Reader) (GroupHeader, error) {
	var h GroupHeader
	var err error
	for _, dst := range []*uint32{&h.Size, &h.Label, &h.Type, &h.Stamp, &h.Unknown} {
		if *dst, err = r.ReadUint32(); err != nil {
			return h, err
		}
	}
	if h.Size < codec.GroupHeaderSize {
		return h, fmt.Errorf("group size %d is smaller than its header", h.Size)
	}
	return h, nil
}

func writeGroupHeader(w *codec.Writer, h GroupHeader) error {
	w.WriteTag(codec.TagGRUP)
	w.WriteUint32(h.Size)
	w.WriteUint32(h.Label)
	w.WriteUint32(h.Type)
	w.WriteUint32(h.Stamp)
	w.WriteUint32(h.Unknown)
	return w.Err()
}

// Entry is an item of a file or group: a records.Record, a *Group or a
// *RawGroup.
type Entry interface {
	Save(w *codec.Writer) error
}

// Group is a GRUP whose contents were decoded.
type Group struct {
	Header  GroupHeader
	Entries []Entry
}

// Save writes the group with a size recomputed from its contents.
func (g *Group) Save(w *codec.Writer) error {
	var buf bytes.Buffer
	inner := codec.NewWriter(&buf, w.Variant(), codec.WithCompressor(w.Compressor()))
	for _, e := range g.Entries {
		if err := e.Save(inner); err != nil {
			return err
		}
	}
	if err := inner.Flush(); err != nil {
		return err
	}
	h := g.Header
	h.Size = uint32(codec.GroupHeaderSize + buf.Len())
	if err := writeGroupHeader(w, h); err != nil {
		return err
	}
	w.Write(buf.Bytes())
	return w.Err()
}

// UpdateSize recomputes Header.Size for g and every nested group.
func (g *Group) UpdateSize() error {
	size := codec.GroupHeaderSize
	for _, e := range g.Entries {
		switch e := e.(type) {
		case *Group:
			if err := e.UpdateSize(); err != nil {
				return err
			}
			size += int(e.Header.Size)
		case *RawGroup:
			size += codec.GroupHeaderSize + len(e.Data)
		case records.Record:
			n, err := records.TotalWrittenSize(e)
			if err != nil {
				return err
			}
			size += n
		}
	}
	g.Header.Size = uint32(size)
	return nil
}

// RawGroup is a group the walker skipped but kept verbatim.
type RawGroup struct {
	Header GroupHeader
	Data   []byte
}

// Save writes the header and contents unchanged.
func (g *RawGroup) Save(w *codec.Writer) error {
	h := g.Header
	h.Size = uint32(codec.GroupHeaderSize + len(g.Data))
	if err := writeGroupHeader(w, h); err != nil {
		return err
	}
	w.Write(g.Data)
	return w.Err()
}
