package spatial

import (
	"cmp"
	"slices"

	"github.com/arenasync/server/internal/geom"
)

const (
	DefaultMaxObjects = 10
	DefaultMaxLevels  = 4
)

// Item is a quadtree entry.
type Item[ID cmp.Ordered] struct {
	ID     ID
	Bounds geom.AABB
}

// Quadtree is a transient index for small, dense, mutually colliding sets.
// It is meant to be cleared and rebuilt every tick: there is no remove and
// no merge on shrink. An item is stored in every leaf its bounds overlap.
type Quadtree[ID cmp.Ordered] struct {
	bounds     geom.AABB
	maxObjects int
	maxLevels  int
	level      int
	objects    []Item[ID]
	nodes      []*Quadtree[ID]
}

// NewQuadtree returns an empty root covering bounds. Non-positive limits
// fall back to DefaultMaxObjects / DefaultMaxLevels.
func NewQuadtree[ID cmp.Ordered](bounds geom.AABB, maxObjects, maxLevels int) *Quadtree[ID] {
	if maxObjects <= 0 {
		maxObjects = DefaultMaxObjects
	}
	if maxLevels <= 0 {
		maxLevels = DefaultMaxLevels
	}
	return newNode[ID](bounds, maxObjects, maxLevels, 0)
}

func newNode[ID cmp.Ordered](bounds geom.AABB, maxObjects, maxLevels, level int) *Quadtree[ID] {
	return &Quadtree[ID]{
		bounds:     bounds,
		maxObjects: maxObjects,
		maxLevels:  maxLevels,
		level:      level,
	}
}

// split creates the four children: ne, nw, sw, se. North is low Y.
func (q *Quadtree[ID]) split() {
	next := q.level + 1
	c := q.bounds.Center()
	min, max := q.bounds.Min, q.bounds.Max
	q.nodes = []*Quadtree[ID]{
		newNode[ID](geom.AABB{Min: geom.V(c.X, min.Y), Max: geom.V(max.X, c.Y)}, q.maxObjects, q.maxLevels, next),
		newNode[ID](geom.AABB{Min: min, Max: c}, q.maxObjects, q.maxLevels, next),
		newNode[ID](geom.AABB{Min: geom.V(min.X, c.Y), Max: geom.V(c.X, max.Y)}, q.maxObjects, q.maxLevels, next),
		newNode[ID](geom.AABB{Min: c, Max: max}, q.maxObjects, q.maxLevels, next),
	}
}

// indexes returns the children the bounds overlap.
func (q *Quadtree[ID]) indexes(b geom.AABB) []int {
	c := q.bounds.Center()
	startIsNorth := b.Min.Y < c.Y
	startIsWest := b.Min.X < c.X
	endIsEast := b.Max.X >= c.X
	endIsSouth := b.Max.Y >= c.Y

	idx := make([]int, 0, 4)
	if startIsNorth && endIsEast {
		idx = append(idx, 0)
	}
	if startIsWest && startIsNorth {
		idx = append(idx, 1)
	}
	if startIsWest && endIsSouth {
		idx = append(idx, 2)
	}
	if endIsEast && endIsSouth {
		idx = append(idx, 3)
	}
	return idx
}

// Insert stores it in every leaf its bounds overlap, splitting full leaves.
func (q *Quadtree[ID]) Insert(it Item[ID]) {
	if len(q.nodes) > 0 {
		for _, i := range q.indexes(it.Bounds) {
			q.nodes[i].Insert(it)
		}
		return
	}

	q.objects = append(q.objects, it)
	if len(q.objects) > q.maxObjects && q.level < q.maxLevels {
		q.split()
		for _, o := range q.objects {
			for _, i := range q.indexes(o.Bounds) {
				q.nodes[i].Insert(o)
			}
		}
		q.objects = nil
	}
}

// Retrieve returns every id sharing a leaf with bounds. The root call
// deduplicates and sorts; the caller still runs the narrow phase.
func (q *Quadtree[ID]) Retrieve(bounds geom.AABB) []ID {
	out := q.retrieve(bounds, nil)
	slices.Sort(out)
	return slices.Compact(out)
}

func (q *Quadtree[ID]) retrieve(bounds geom.AABB, out []ID) []ID {
	for _, o := range q.objects {
		out = append(out, o.ID)
	}
	for _, i := range q.indexes(bounds) {
		if i < len(q.nodes) {
			out = q.nodes[i].retrieve(bounds, out)
		}
	}
	return out
}

// Clear drops every item and child node.
func (q *Quadtree[ID]) Clear() {
	q.objects = q.objects[:0]
	for _, n := range q.nodes {
		n.Clear()
	}
	q.nodes = nil
}

// Split reports whether this node has children.
func (q *Quadtree[ID]) Split() bool { return len(q.nodes) > 0 }

// Leaves calls fn for every leaf the bounds overlap with the leaf's items.
func (q *Quadtree[ID]) Leaves(bounds geom.AABB, fn func(level int, items []Item[ID])) {
	if len(q.nodes) == 0 {
		fn(q.level, q.objects)
		return
	}
	for _, i := range q.indexes(bounds) {
		q.nodes[i].Leaves(bounds, fn)
	}
}
