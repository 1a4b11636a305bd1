package store

import (
	"sort"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/records"
)

// Sink receives decoded records.
type Sink interface {
	Accept(rec records.Record) (Result, error)
}

// Collection is the part of a Store a Set needs.
type Collection interface {
	Sink
	Len() int
	HasRecord(id string) bool
	RemoveRecord(id string) bool
	Clear()
	IDs() []string
	SaveAllToStream(w *codec.Writer) error
}

// Set routes records to per-tag stores. Records whose tag has no store are
// ignored, unless the Set was built with NewAutoSet.
type Set struct {
	stores map[codec.Tag]Collection
	auto   *records.Registry
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{stores: make(map[codec.Tag]Collection)}
}

// NewAutoSet returns a set that creates a generic store, decoding through
// reg, the first time it sees a tag.
func NewAutoSet(reg *records.Registry) *Set {
	s := NewSet()
	s.auto = reg
	return s
}

// Register routes records tagged t to c.
func (s *Set) Register(t codec.Tag, c Collection) {
	s.stores[t] = c
}

// Store returns the collection for t.
func (s *Set) Store(t codec.Tag) (Collection, bool) {
	c, ok := s.stores[t]
	return c, ok
}

// Accept implements Sink.
func (s *Set) Accept(rec records.Record) (Result, error) {
	c, ok := s.stores[rec.Tag()]
	if !ok {
		if s.auto == nil {
			return ResultUnchanged, nil
		}
		c = NewGeneric(s.auto, rec.Tag())
		s.stores[rec.Tag()] = c
	}
	return c.Accept(rec)
}

// Tags returns the tags with a store, sorted by name.
func (s *Set) Tags() []codec.Tag {
	tags := make([]codec.Tag, 0, len(s.stores))
	for t := range s.stores {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].String() < tags[j].String() })
	return tags
}

// Counts returns the number of records per tag.
func (s *Set) Counts() map[codec.Tag]int {
	out := make(map[codec.Tag]int, len(s.stores))
	for t, c := range s.stores {
		out[t] = c.Len()
	}
	return out
}

// Len is the total number of records across all stores.
func (s *Set) Len() int {
	n := 0
	for _, c := range s.stores {
		n += c.Len()
	}
	return n
}

// Find returns the tags whose store holds id.
func (s *Set) Find(id string) []codec.Tag {
	var out []codec.Tag
	for _, t := range s.Tags() {
		if s.stores[t].HasRecord(id) {
			out = append(out, t)
		}
	}
	return out
}

// SaveAllToStream writes every store in tag order.
func (s *Set) SaveAllToStream(w *codec.Writer) error {
	for _, t := range s.Tags() {
		if err := s.stores[t].SaveAllToStream(w); err != nil {
			return err
		}
	}
	return nil
}
