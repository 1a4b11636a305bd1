// Package catalog keeps a persistent, queryable index of the records of
// imported data files in a pebble database.
//
// Keys:
//
//	rec/<file>/<TAG>/<id>   JSON Entry, raw record bytes included
//	id/<id>/<file>/<TAG>    the rec/ key of the same record
//	run/<ksuid>             JSON Run
//
// File names and IDs are case-folded in keys; entries keep them as imported.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/esm"
	"github.com/ssargent/esmkit/pkg/records"
	"github.com/ssargent/esmkit/pkg/store"
)

var ErrNotFound = errors.New("catalog: not found")

const (
	recPrefix = "rec/"
	idPrefix  = "id/"
	runPrefix = "run/"
)

// Entry is one catalogued record.
type Entry struct {
	File    string `json:"file"`
	Variant string `json:"variant"`
	Tag     string `json:"tag"`
	ID      string `json:"id"`
	FormID  uint32 `json:"form_id,omitempty"`
	Flags   uint32 `json:"flags"`
	Size    int    `json:"size"`
	Run     string `json:"run"`
	Data    []byte `json:"data,omitempty"`
}

// Record decodes the stored bytes with the built-in registries. Records that
// do not fit their typed layout come back as *records.Generic.
func (e *Entry) Record() (records.Record, error) {
	v, err := codec.ParseVariant(e.Variant)
	if err != nil {
		return nil, err
	}
	reg := esm.NewWalker().Registry(v)
	if reg == nil {
		return nil, fmt.Errorf("no registry for variant %s", e.Variant)
	}
	r := codec.NewReader(bytes.NewReader(e.Data), v, codec.WithDecompressor(codec.ZlibCodec{}))
	t, err := r.ReadTag()
	if err != nil {
		return nil, err
	}
	rec, err := reg.Load(r, t)
	if g, ok := records.AsFallback(err); ok {
		return g, nil
	}
	return rec, err
}

// Run describes one Import call.
type Run struct {
	ID       string    `json:"id"`
	File     string    `json:"file"`
	Variant  string    `json:"variant"`
	Records  int       `json:"records"`
	Skipped  int       `json:"skipped"`
	Replaced int       `json:"replaced"`
	Time     time.Time `json:"time"`
}

// ImportResult is returned by Import.
type ImportResult struct {
	Run Run
}

// Catalog is safe for concurrent use.
type Catalog struct {
	db *pebble.DB
}

// Open opens or creates the catalog stored in dir.
func Open(dir string) (*Catalog, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

func fileKey(file string) string {
	return store.Key(filepath.Base(file))
}

func recKey(file, tag, id string) []byte {
	return []byte(recPrefix + fileKey(file) + "/" + tag + "/" + store.Key(id))
}

func idKey(id, file, tag string) []byte {
	return []byte(idPrefix + store.Key(id) + "/" + fileKey(file) + "/" + tag)
}

// upperBound returns the smallest key greater than every key with prefix.
func upperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func prefixIter(r pebble.Reader, prefix string) (*pebble.Iterator, error) {
	p := []byte(prefix)
	return r.NewIter(&pebble.IterOptions{LowerBound: p, UpperBound: upperBound(p)})
}

// Import replaces everything previously catalogued for the base name of
// file with the records of f. Records without an ID are counted as skipped.
// The import is committed as one synced batch.
func (c *Catalog) Import(file string, f *esm.File) (ImportResult, error) {
	run := Run{
		File:    filepath.Base(file),
		Variant: f.Variant.String(),
	}
	id := ksuid.New()
	run.ID = id.String()
	run.Time = id.Time().UTC()

	batch := c.db.NewBatch()
	defer batch.Close()

	replaced, err := c.dropFile(batch, file)
	if err != nil {
		return ImportResult{}, err
	}
	run.Replaced = replaced

	for _, rec := range f.Records() {
		if rec.ID() == "" {
			run.Skipped++
			continue
		}
		data, err := records.Encode(rec)
		if err != nil {
			return ImportResult{}, fmt.Errorf("failed to encode %s %q: %w", rec.Tag(), rec.ID(), err)
		}
		env := rec.Envelope()
		e := Entry{
			File:    run.File,
			Variant: run.Variant,
			Tag:     rec.Tag().String(),
			ID:      rec.ID(),
			FormID:  env.FormID,
			Flags:   env.Flags,
			Size:    len(data),
			Run:     run.ID,
			Data:    data,
		}
		val, err := json.Marshal(&e)
		if err != nil {
			return ImportResult{}, err
		}
		rk := recKey(file, e.Tag, e.ID)
		if err := batch.Set(rk, val, nil); err != nil {
			return ImportResult{}, err
		}
		if err := batch.Set(idKey(e.ID, file, e.Tag), rk, nil); err != nil {
			return ImportResult{}, err
		}
		run.Records++
	}

	val, err := json.Marshal(&run)
	if err != nil {
		return ImportResult{}, err
	}
	if err := batch.Set([]byte(runPrefix+run.ID), val, nil); err != nil {
		return ImportResult{}, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return ImportResult{}, fmt.Errorf("failed to commit import of %s: %w", run.File, err)
	}
	return ImportResult{Run: run}, nil
}

// dropFile queues deletion of every rec/ and id/ key of file.
func (c *Catalog) dropFile(batch *pebble.Batch, file string) (int, error) {
	prefix := recPrefix + fileKey(file) + "/"
	iter, err := prefixIter(c.db, prefix)
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		rest := strings.TrimPrefix(string(iter.Key()), prefix)
		tag, id, ok := strings.Cut(rest, "/")
		if !ok {
			continue
		}
		if err := batch.Delete([]byte(idPrefix+id+"/"+fileKey(file)+"/"+tag), nil); err != nil {
			return 0, err
		}
		if err := batch.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
			return 0, err
		}
		n++
	}
	return n, iter.Error()
}

func (c *Catalog) get(key []byte) (*Entry, error) {
	val, closer, err := c.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var e Entry
	if err := json.Unmarshal(val, &e); err != nil {
		return nil, fmt.Errorf("corrupt catalog entry %q: %w", key, err)
	}
	return &e, nil
}

// Lookup returns the record of file with the given tag and ID.
func (c *Catalog) Lookup(file, tag, id string) (*Entry, error) {
	return c.get(recKey(file, tag, id))
}

// Find returns every record with the given ID across all files and tags,
// ordered by file name then tag.
func (c *Catalog) Find(id string) ([]*Entry, error) {
	iter, err := prefixIter(c.db, idPrefix+store.Key(id)+"/")
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var keys [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, append([]byte(nil), iter.Value()...))
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	out := make([]*Entry, 0, len(keys))
	for _, k := range keys {
		e, err := c.get(k)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Runs returns all import runs, oldest first.
func (c *Catalog) Runs() ([]Run, error) {
	iter, err := prefixIter(c.db, runPrefix)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Run
	for iter.First(); iter.Valid(); iter.Next() {
		var r Run
		if err := json.Unmarshal(iter.Value(), &r); err != nil {
			return nil, fmt.Errorf("corrupt run entry %q: %w", iter.Key(), err)
		}
		out = append(out, r)
	}
	return out, iter.Error()
}
