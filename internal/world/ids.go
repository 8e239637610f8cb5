package world

import "math"

// idAllocator hands out 16-bit object IDs with a free list. IDs released
// during a tick sit in pending until flush, so an ID is never reused within
// the tick that freed it and a client always sees the delete before the ID
// comes back as a new object.
type idAllocator struct {
	next    uint32
	free    []ObjectID
	pending []ObjectID
}

func newIDAllocator() *idAllocator {
	return &idAllocator{
		next:    1, // 0 is the "none" sentinel
		free:    make([]ObjectID, 0, 256),
		pending: make([]ObjectID, 0, 64),
	}
}

func (a *idAllocator) alloc() (ObjectID, bool) {
	if len(a.free) > 0 {
		id := a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]
		return id, true
	}
	if a.next > math.MaxUint16 {
		return 0, false
	}
	id := ObjectID(a.next)
	a.next++
	return id, true
}

func (a *idAllocator) release(id ObjectID) {
	a.pending = append(a.pending, id)
}

func (a *idAllocator) flush() {
	a.free = append(a.free, a.pending...)
	a.pending = a.pending[:0]
}
