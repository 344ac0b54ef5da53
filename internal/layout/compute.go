package layout

import (
	"fortio.org/safecast"

	"pipelayout/internal/restree"
)

func computeRegion(tree *restree.Tree) (*Region, error) {
	leaves := tree.Leaves()
	r := &Region{
		Entries: make([]RegionEntry, 0, len(leaves)),
		index:   make(map[restree.NodeID]int, len(leaves)),
	}
	var words uint64
	for _, id := range leaves {
		n := tree.Node(id)
		off, err := safecast.Conv[uint32](words * WordBytes)
		if err != nil {
			return nil, &RegionError{Kind: RegionErrTooLarge, Leaf: id, Err: err}
		}
		r.index[id] = len(r.Entries)
		r.Entries = append(r.Entries, RegionEntry{
			Leaf:        id,
			ByteOffset:  off,
			SizeInWords: n.SizeInWords,
		})
		words += uint64(n.SizeInWords)
	}
	size, err := safecast.Conv[uint32](words * WordBytes)
	if err != nil {
		return nil, &RegionError{Kind: RegionErrTooLarge, Leaf: restree.NoNodeID, Err: err}
	}
	r.SizeBytes = size
	return r, nil
}
