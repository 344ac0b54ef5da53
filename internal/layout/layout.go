package layout

import (
	"pipelayout/internal/restree"
)

// RegionEntry is the memory home of one leaf in the spill table.
type RegionEntry struct {
	Leaf        restree.NodeID
	ByteOffset  uint32
	SizeInWords uint32
}

// WordOffset returns the offset in dwords.
func (e RegionEntry) WordOffset() uint32 {
	return e.ByteOffset / WordBytes
}

// Region is the pipeline-wide byte layout of the spill table. Every leaf of
// the tree has an entry, whether or not any plan places it in registers.
type Region struct {
	Entries   []RegionEntry
	SizeBytes uint32

	index map[restree.NodeID]int
}

// WordBytes is the size of one register word.
const WordBytes = 4

// Lookup returns the entry of a leaf.
func (r *Region) Lookup(leaf restree.NodeID) (RegionEntry, bool) {
	if r == nil {
		return RegionEntry{}, false
	}
	i, ok := r.index[leaf]
	if !ok {
		return RegionEntry{}, false
	}
	return r.Entries[i], true
}

// Offset returns the byte offset of a leaf; it panics for unknown leaves,
// which callers only pass after usage validation.
func (r *Region) Offset(leaf restree.NodeID) uint32 {
	e, ok := r.Lookup(leaf)
	if !ok {
		panic(&RegionError{Kind: RegionErrUnknownLeaf, Leaf: leaf})
	}
	return e.ByteOffset
}

// SizeWords returns the table size in dwords.
func (r *Region) SizeWords() uint32 {
	if r == nil {
		return 0
	}
	return r.SizeBytes / WordBytes
}

// Engine computes spill regions for resource trees.
type Engine struct {
	cache *cache
}

// New creates an Engine.
func New() *Engine {
	return &Engine{cache: newCache()}
}

// RegionOf computes and caches the spill region of a tree. The result only
// depends on the tree, never on register budgets or plans.
func (e *Engine) RegionOf(tree *restree.Tree) (*Region, error) {
	if e == nil {
		return computeRegion(tree)
	}
	if e.cache == nil {
		e.cache = newCache()
	}
	if r, ok := e.cache.get(tree); ok {
		return r, nil
	}
	r, err := computeRegion(tree)
	if err != nil {
		return nil, err
	}
	e.cache.put(tree, r)
	return r, nil
}
