package spatial

import (
	"cmp"
	"math"
	"slices"

	"github.com/arenasync/server/internal/geom"
)

// Grid is a uniform cell index over a bounded world. Each id is a member of
// exactly the cells its bounds overlap; Update must be called after every
// bounds change or queries return stale candidates.
//
// Query results are a broad phase only. Callers run their own narrow-phase
// test on the returned ids.
//
// Accessed only from the game loop goroutine, no locks.
type Grid[ID cmp.Ordered] struct {
	cellSize    float64
	invCellSize float64
	cols        int
	rows        int
	cells       map[cellKey]map[ID]struct{}
	entries     map[ID]cellRange
}

type cellKey struct {
	cx int
	cy int
}

// cellRange is the inclusive block of cells an entry occupies.
type cellRange struct {
	minX, minY int
	maxX, maxY int
}

func (r cellRange) each(fn func(cellKey)) {
	for cy := r.minY; cy <= r.maxY; cy++ {
		for cx := r.minX; cx <= r.maxX; cx++ {
			fn(cellKey{cx: cx, cy: cy})
		}
	}
}

// NewGrid covers [0,width]x[0,height] with square cells of cellSize.
// Bounds outside the world are clamped to the border cells.
func NewGrid[ID cmp.Ordered](width, height, cellSize float64) *Grid[ID] {
	if cellSize <= 0 {
		cellSize = 16
	}
	return &Grid[ID]{
		cellSize:    cellSize,
		invCellSize: 1 / cellSize,
		cols:        int(math.Ceil(width/cellSize)) + 1,
		rows:        int(math.Ceil(height/cellSize)) + 1,
		cells:       make(map[cellKey]map[ID]struct{}),
		entries:     make(map[ID]cellRange),
	}
}

func (g *Grid[ID]) CellSize() float64 { return g.cellSize }

func (g *Grid[ID]) coord(v float64, limit int) int {
	c := int(math.Floor(v * g.invCellSize))
	if c < 0 {
		return 0
	}
	if c >= limit {
		return limit - 1
	}
	return c
}

func (g *Grid[ID]) rangeOf(b geom.AABB) cellRange {
	return cellRange{
		minX: g.coord(b.Min.X, g.cols),
		minY: g.coord(b.Min.Y, g.rows),
		maxX: g.coord(b.Max.X, g.cols),
		maxY: g.coord(b.Max.Y, g.rows),
	}
}

// Insert adds id at bounds. Inserting an id that is already present moves it.
func (g *Grid[ID]) Insert(id ID, bounds geom.AABB) {
	if _, ok := g.entries[id]; ok {
		g.Update(id, bounds)
		return
	}
	r := g.rangeOf(bounds)
	g.entries[id] = r
	r.each(func(k cellKey) { g.add(k, id) })
}

// Update moves id to its new bounds, touching only the cells that changed.
func (g *Grid[ID]) Update(id ID, bounds geom.AABB) {
	old, ok := g.entries[id]
	if !ok {
		g.Insert(id, bounds)
		return
	}
	r := g.rangeOf(bounds)
	if r == old {
		return
	}
	old.each(func(k cellKey) {
		if !r.contains(k) {
			g.del(k, id)
		}
	})
	r.each(func(k cellKey) {
		if !old.contains(k) {
			g.add(k, id)
		}
	})
	g.entries[id] = r
}

// Remove deletes id from every cell it occupies. Unknown ids are ignored.
func (g *Grid[ID]) Remove(id ID) {
	r, ok := g.entries[id]
	if !ok {
		return
	}
	r.each(func(k cellKey) { g.del(k, id) })
	delete(g.entries, id)
}

// Has reports whether id is indexed.
func (g *Grid[ID]) Has(id ID) bool {
	_, ok := g.entries[id]
	return ok
}

// Len returns the number of indexed ids.
func (g *Grid[ID]) Len() int { return len(g.entries) }

// Query returns the ids sharing a cell with bounds, each once, ascending.
func (g *Grid[ID]) Query(bounds geom.AABB) []ID {
	return g.QueryBuf(bounds, nil)
}

// QueryPoint returns the ids whose cells contain p.
func (g *Grid[ID]) QueryPoint(p geom.Vec2) []ID {
	return g.QueryBuf(geom.PointBox(p), nil)
}

// QueryBuf appends results to buf, avoiding per-call allocation.
func (g *Grid[ID]) QueryBuf(bounds geom.AABB, buf []ID) []ID {
	start := len(buf)
	r := g.rangeOf(bounds)
	single := r.minX == r.maxX && r.minY == r.maxY
	var seen map[ID]struct{}
	if !single {
		seen = make(map[ID]struct{})
	}
	r.each(func(k cellKey) {
		for id := range g.cells[k] {
			if seen != nil {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
			}
			buf = append(buf, id)
		}
	})
	slices.Sort(buf[start:])
	return buf
}

// CellsOf returns the number of cells id occupies, 0 if not indexed.
func (g *Grid[ID]) CellsOf(id ID) int {
	r, ok := g.entries[id]
	if !ok {
		return 0
	}
	return (r.maxX - r.minX + 1) * (r.maxY - r.minY + 1)
}

func (g *Grid[ID]) add(k cellKey, id ID) {
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

func (g *Grid[ID]) del(k cellKey, id ID) {
	cell := g.cells[k]
	if cell == nil {
		return
	}
	delete(cell, id)
	if len(cell) == 0 {
		delete(g.cells, k)
	}
}

func (r cellRange) contains(k cellKey) bool {
	return k.cx >= r.minX && k.cx <= r.maxX && k.cy >= r.minY && k.cy <= r.maxY
}
