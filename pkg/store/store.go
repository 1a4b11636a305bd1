// Package store keeps decoded records of one kind, keyed by their ID.
package store

import (
	"fmt"
	"sort"

	"golang.org/x/text/cases"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/records"
)

// Key folds id into the form stores and indexes compare IDs by. Record IDs
// are matched case-insensitively.
func Key(id string) string {
	return cases.Fold().String(id)
}

type entry[T records.Record] struct {
	id  string
	rec T
}

// Store holds records of one kind keyed by case-folded ID. It is not safe
// for concurrent mutation.
type Store[T records.Record] struct {
	entries map[string]entry[T]
	load    Loader[T]
}

// New returns an empty store that parses records with load.
func New[T records.Record](load Loader[T]) *Store[T] {
	return &Store[T]{
		entries: make(map[string]entry[T]),
		load:    load,
	}
}

// NewFor returns a store for the typed record *T, constructing a fresh
// value for every ReadNextRecord.
func NewFor[T any, PT interface {
	*T
	records.Record
}]() *Store[PT] {
	return New(func(r *codec.Reader) (PT, error) {
		rec := PT(new(T))
		err := rec.Load(r)
		return rec, err
	})
}

// NewGeneric returns a store that decodes tag through reg. Records of any
// kind may be kept in it.
func NewGeneric(reg *records.Registry, tag codec.Tag) *Store[records.Record] {
	return New(func(r *codec.Reader) (records.Record, error) {
		rec := reg.New(tag)
		err := rec.Load(r)
		return rec, err
	})
}

// AddRecord inserts rec or replaces the record with the same ID. Records
// with an empty ID are ignored.
func (s *Store[T]) AddRecord(rec T) {
	id := rec.ID()
	if id == "" {
		return
	}
	s.entries[Key(id)] = entry[T]{id: id, rec: rec}
}

// HasRecord reports whether a record with id exists.
func (s *Store[T]) HasRecord(id string) bool {
	_, ok := s.entries[Key(id)]
	return ok
}

// GetRecord returns the record with id. A missing ID yields a NotFoundError
// that matches ErrRecordNotFound.
func (s *Store[T]) GetRecord(id string) (T, error) {
	e, ok := s.entries[Key(id)]
	if !ok {
		var zero T
		return zero, &NotFoundError{ID: id}
	}
	return e.rec, nil
}

// RemoveRecord deletes the record with id and reports whether it existed.
func (s *Store[T]) RemoveRecord(id string) bool {
	k := Key(id)
	if _, ok := s.entries[k]; !ok {
		return false
	}
	delete(s.entries, k)
	return true
}

// Merge stores rec unless an equal record with the same ID is already
// present. Records without an ID leave the store unchanged.
func (s *Store[T]) Merge(rec T) Result {
	id := rec.ID()
	if id == "" {
		return ResultUnchanged
	}
	if old, ok := s.entries[Key(id)]; ok && records.Equal(old.rec, rec) {
		return ResultUnchanged
	}
	s.AddRecord(rec)
	return ResultUpdated
}

// ReadNextRecord parses one record from r and merges it. A parse failure
// returns ResultError and leaves the store untouched.
func (s *Store[T]) ReadNextRecord(r *codec.Reader) (Result, error) {
	rec, err := s.load(r)
	if err != nil {
		return ResultError, err
	}
	return s.Merge(rec), nil
}

// Accept merges rec if it has the store's record type.
func (s *Store[T]) Accept(rec records.Record) (Result, error) {
	t, ok := rec.(T)
	if !ok {
		return ResultError, fmt.Errorf("%w: %T", ErrTypeMismatch, rec)
	}
	return s.Merge(t), nil
}

// Len returns the number of records.
func (s *Store[T]) Len() int { return len(s.entries) }

// Clear removes all records.
func (s *Store[T]) Clear() {
	s.entries = make(map[string]entry[T])
}

func (s *Store[T]) keys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IDs returns the record IDs, as originally spelled, in key order.
func (s *Store[T]) IDs() []string {
	keys := s.keys()
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = s.entries[k].id
	}
	return ids
}

// All returns the records in key order.
func (s *Store[T]) All() []T {
	keys := s.keys()
	out := make([]T, len(keys))
	for i, k := range keys {
		out[i] = s.entries[k].rec
	}
	return out
}

// SaveAllToStream writes every record in key order. The first failure stops
// the write and names the record.
func (s *Store[T]) SaveAllToStream(w *codec.Writer) error {
	for _, k := range s.keys() {
		e := s.entries[k]
		if err := e.rec.Save(w); err != nil {
			return fmt.Errorf("failed to save %s %q: %w", e.rec.Tag(), e.id, err)
		}
	}
	return nil
}
