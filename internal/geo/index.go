package geo

import (
	"github.com/flatrtree/flatrtree-go"
	"github.com/rotisserie/eris"
)

// nodeSize is the R-tree fan-out.
const nodeSize = 64

// Index is a static packed R-tree over boxes. The zero value is an empty
// index. An Index is read-only once built and safe for concurrent search.
type Index struct {
	tree *flatrtree.RTree
	n    int
}

// NewIndex bulk-loads boxes; refs passed to Search are slice positions.
func NewIndex(boxes []Box) (*Index, error) {
	if len(boxes) == 0 {
		return &Index{}, nil
	}
	builder := flatrtree.NewOMTBuilder()
	for i, b := range boxes {
		builder.Add(int64(i), b.MinX, b.MinY, b.MaxX, b.MaxY)
	}
	tree, err := builder.Finish(nodeSize)
	if err != nil {
		return nil, eris.Wrap(err, "geo: build rtree")
	}
	return &Index{tree: tree, n: len(boxes)}, nil
}

// Len is the number of indexed boxes.
func (ix *Index) Len() int { return ix.n }

// Search calls fn for every box intersecting q until fn returns false.
func (ix *Index) Search(q Box, fn func(ref int) bool) {
	if ix == nil || ix.tree == nil {
		return
	}
	ix.tree.Search(q.MinX, q.MinY, q.MaxX, q.MaxY, func(ref int64) bool {
		return fn(int(ref))
	})
}

// SearchPoint calls fn for every box containing (x, y).
func (ix *Index) SearchPoint(x, y float64, fn func(ref int) bool) {
	ix.Search(Box{MinX: x, MinY: y, MaxX: x, MaxY: y}, fn)
}
