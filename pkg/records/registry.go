package records

import (
	"fmt"
	"sort"

	"github.com/ssargent/esmkit/pkg/codec"
)

// Constructor returns a new, empty record.
type Constructor func() Record

// Registry maps tags to typed record constructors for one variant. Tags
// without a constructor decode as Generic.
type Registry struct {
	variant codec.Variant
	ctors   map[codec.Tag]Constructor
}

// NewRegistry returns an empty registry for v.
func NewRegistry(v codec.Variant) *Registry {
	return &Registry{variant: v, ctors: make(map[codec.Tag]Constructor)}
}

func (reg *Registry) Variant() codec.Variant { return reg.variant }

// Register binds t to ctor, replacing any previous binding.
func (reg *Registry) Register(t codec.Tag, ctor Constructor) {
	reg.ctors[t] = ctor
}

// Has reports whether t has a typed implementation.
func (reg *Registry) Has(t codec.Tag) bool {
	_, ok := reg.ctors[t]
	return ok
}

// Tags returns the registered tags in ascending order.
func (reg *Registry) Tags() []codec.Tag {
	tags := make([]codec.Tag, 0, len(reg.ctors))
	for t := range reg.ctors {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].String() < tags[j].String() })
	return tags
}

// New returns an empty record for t.
func (reg *Registry) New(t codec.Tag) Record {
	if ctor, ok := reg.ctors[t]; ok {
		return ctor()
	}
	return NewGeneric(t, reg.variant)
}

// Load decodes the record whose tag the caller has just read.
func (reg *Registry) Load(r *codec.Reader, t codec.Tag) (Record, error) {
	rec := reg.New(t)
	if err := rec.Load(r); err != nil {
		return nil, fmt.Errorf("failed to read %s record: %w", t, err)
	}
	return rec, nil
}
