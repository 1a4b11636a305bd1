// Package loadorder computes the order in which data files must be loaded so
// that every file comes after all of its masters.
package loadorder

import (
	"container/heap"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ssargent/esmkit/pkg/esm"
	"github.com/ssargent/esmkit/pkg/store"
)

var (
	ErrUnresolvedDependency = errors.New("unresolved dependency")
	ErrCyclicDependency     = errors.New("cyclic dependency")
	ErrDuplicateFile        = errors.New("duplicate file")
)

// Element is one file and the masters it depends on.
type Element struct {
	Name    string   `json:"name"`
	Masters []string `json:"masters"`
	// Master marks master files. It only matters with SortMastersFirst.
	Master bool `json:"master,omitempty"`
}

// UnresolvedDependencyError names a master that is not in the input.
type UnresolvedDependencyError struct {
	File   string
	Master string
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("%s depends on %s, which is not in the load order", e.File, e.Master)
}

func (e *UnresolvedDependencyError) Unwrap() error { return ErrUnresolvedDependency }

// CyclicDependencyError lists the files that could not be ordered, in input
// order, and one cycle among them.
type CyclicDependencyError struct {
	Files []string
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("cyclic dependency: %s", strings.Join(e.Cycle, " -> "))
	}
	return fmt.Sprintf("cyclic dependency among %s", strings.Join(e.Files, ", "))
}

func (e *CyclicDependencyError) Unwrap() error { return ErrCyclicDependency }

type options struct {
	mastersFirst bool
}

// Option configures Resolve.
type Option func(*options)

// SortMastersFirst prefers master files over plugins whenever both are free
// to load next. Without it the input order breaks all ties.
func SortMastersFirst() Option {
	return func(o *options) { o.mastersFirst = true }
}

// ready is a min-heap of element indices ordered by rank then input index.
type ready struct {
	idx  []int
	rank func(i int) int
}

func (h *ready) Len() int { return len(h.idx) }
func (h *ready) Less(a, b int) bool {
	ra, rb := h.rank(h.idx[a]), h.rank(h.idx[b])
	if ra != rb {
		return ra < rb
	}
	return h.idx[a] < h.idx[b]
}
func (h *ready) Swap(a, b int) { h.idx[a], h.idx[b] = h.idx[b], h.idx[a] }
func (h *ready) Push(x any)    { h.idx = append(h.idx, x.(int)) }
func (h *ready) Pop() any {
	old := h.idx
	n := len(old)
	x := old[n-1]
	h.idx = old[:n-1]
	return x
}

// Resolve returns the element names ordered so that every file follows its
// masters. Among files that are free to load at the same time, the one
// earlier in elems comes first. Names are compared case-insensitively.
func Resolve(elems []Element, opts ...Option) ([]string, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	index := make(map[string]int, len(elems))
	for i, e := range elems {
		k := store.Key(e.Name)
		if _, dup := index[k]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFile, e.Name)
		}
		index[k] = i
	}

	indegree := make([]int, len(elems))
	dependents := make([][]int, len(elems))
	masters := make([][]int, len(elems))
	for i, e := range elems {
		seen := make(map[int]bool, len(e.Masters))
		for _, m := range e.Masters {
			j, ok := index[store.Key(m)]
			if !ok {
				return nil, &UnresolvedDependencyError{File: e.Name, Master: m}
			}
			if seen[j] {
				continue
			}
			seen[j] = true
			indegree[i]++
			dependents[j] = append(dependents[j], i)
			masters[i] = append(masters[i], j)
		}
	}

	h := &ready{rank: func(i int) int {
		if o.mastersFirst && !elems[i].Master {
			return 1
		}
		return 0
	}}
	for i := range elems {
		if indegree[i] == 0 {
			h.idx = append(h.idx, i)
		}
	}
	heap.Init(h)

	order := make([]string, 0, len(elems))
	for h.Len() > 0 {
		i := heap.Pop(h).(int)
		order = append(order, elems[i].Name)
		for _, d := range dependents[i] {
			indegree[d]--
			if indegree[d] == 0 {
				heap.Push(h, d)
			}
		}
	}

	if len(order) < len(elems) {
		return nil, cycleError(elems, indegree, masters)
	}
	return order, nil
}

// cycleError follows unresolved masters from the first stuck file until a
// file repeats. Every stuck file has at least one stuck master, so the walk
// always closes a cycle.
func cycleError(elems []Element, indegree []int, masters [][]int) error {
	err := &CyclicDependencyError{}
	first := -1
	for i := range elems {
		if indegree[i] > 0 {
			err.Files = append(err.Files, elems[i].Name)
			if first < 0 {
				first = i
			}
		}
	}

	pos := make(map[int]int)
	var path []int
	for cur := first; ; {
		if p, ok := pos[cur]; ok {
			for _, i := range path[p:] {
				err.Cycle = append(err.Cycle, elems[i].Name)
			}
			err.Cycle = append(err.Cycle, elems[cur].Name)
			return err
		}
		pos[cur] = len(path)
		path = append(path, cur)
		next := -1
		for _, m := range masters[cur] {
			if indegree[m] > 0 {
				next = m
				break
			}
		}
		if next < 0 {
			return err
		}
		cur = next
	}
}

// FromFiles builds elements by reading the header of each file. Element
// names are the file base names, as masters are recorded.
func FromFiles(paths []string, opts ...esm.Option) ([]Element, error) {
	elems := make([]Element, 0, len(paths))
	for _, p := range paths {
		info, err := esm.PeekHeader(p, opts...)
		if err != nil {
			return nil, err
		}
		elems = append(elems, Element{
			Name:    filepath.Base(p),
			Masters: info.Masters(),
			Master:  info.IsMaster() || strings.EqualFold(filepath.Ext(p), ".esm"),
		})
	}
	return elems, nil
}
