package world

// Compaction kicks in once the backing slice is longer than compactMinLen
// and less than half of it is active.
const compactMinLen = 128

// Poolable is implemented by pooled instances. setActive is unexported so
// only this package can flip liveness; everything else goes through
// Register.Deregister.
type Poolable interface {
	Init()
	Free()
	Active() bool
	setActive(bool)
}

// Pool recycles instances of one kind. Inactive instances stay in the
// backing slice for reuse until compaction drops them. Compaction keeps
// every active instance but invalidates slice indices taken before it;
// only ID lookup through the Register is stable across ticks.
type Pool[T Poolable] struct {
	items       []T
	activeCount int
	newFn       func() T
}

func NewPool[T Poolable](newFn func() T) *Pool[T] {
	return &Pool[T]{
		items: make([]T, 0, 64),
		newFn: newFn,
	}
}

// Alloc returns the first inactive instance or a new one. It never fails.
func (p *Pool[T]) Alloc() T {
	var obj T
	found := false
	for _, it := range p.items {
		if !it.Active() {
			obj = it
			found = true
			break
		}
	}
	if !found {
		obj = p.newFn()
		p.items = append(p.items, obj)
	}
	obj.setActive(true)
	obj.Init()
	p.activeCount++
	return obj
}

// Free runs the teardown hook and marks obj reusable.
func (p *Pool[T]) Free(obj T) {
	if !obj.Active() {
		panic("world: pool free of inactive instance")
	}
	obj.Free()
	obj.setActive(false)
	p.activeCount--

	if len(p.items) > compactMinLen && p.activeCount < len(p.items)/2 {
		compact := make([]T, 0, p.activeCount*2)
		for _, it := range p.items {
			if it.Active() {
				compact = append(compact, it)
			}
		}
		p.items = compact
	}
}

func (p *Pool[T]) ActiveCount() int { return p.activeCount }

func (p *Pool[T]) Len() int { return len(p.items) }

// Items exposes the backing slice. Indices are invalidated by compaction.
func (p *Pool[T]) Items() []T { return p.items }
