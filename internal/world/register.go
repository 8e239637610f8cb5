package world

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/arenasync/server/internal/geom"
	"github.com/arenasync/server/internal/net/packet"
	"github.com/arenasync/server/internal/spatial"
)

var (
	ErrUnknownKind       = errors.New("world: unknown object kind")
	ErrAlreadyRegistered = errors.New("world: object already registered")
	ErrNotRegistered     = errors.New("world: object not registered")
	ErrIDsExhausted      = errors.New("world: object id space exhausted")
	ErrDesync            = errors.New("world: update references unknown object")
)

// PayloadFactory constructs the per-kind payload for a fresh pool instance.
type PayloadFactory func() Payload

// Register owns every live object: the id map, the spatial grid and the
// per-tick dirty sets. It is driven only from the game loop goroutine.
type Register struct {
	grid  *spatial.Grid[ObjectID]
	pools map[Kind]*Pool[*Object]
	objs  map[ObjectID]*Object
	ids   *idAllocator

	fullDirty map[ObjectID]struct{}
	partDirty map[ObjectID]struct{}
	deleted   []ObjectID

	idBuf []ObjectID
	log   *zap.Logger
}

// NewRegister returns an empty register indexing into grid.
func NewRegister(grid *spatial.Grid[ObjectID], log *zap.Logger) *Register {
	if log == nil {
		log = zap.NewNop()
	}
	return &Register{
		grid:      grid,
		pools:     make(map[Kind]*Pool[*Object]),
		objs:      make(map[ObjectID]*Object, 1024),
		ids:       newIDAllocator(),
		fullDirty: make(map[ObjectID]struct{}, 256),
		partDirty: make(map[ObjectID]struct{}, 256),
		idBuf:     make([]ObjectID, 0, 256),
		log:       log,
	}
}

// RegisterKind installs the pool for kind. Registering a kind twice
// replaces its factory for new instances only.
func (r *Register) RegisterKind(kind Kind, newPayload PayloadFactory) {
	r.pools[kind] = NewPool(func() *Object { return newObject(kind, newPayload()) })
}

// Create allocates an object of kind from its pool. The object is not live
// until Register is called on it.
func (r *Register) Create(kind Kind) (*Object, error) {
	p, ok := r.pools[kind]
	if !ok {
		return nil, fmt.Errorf("create %s: %w", kind, ErrUnknownKind)
	}
	return p.Alloc(), nil
}

// Register assigns o a fresh id, indexes it and marks it full dirty.
func (r *Register) Register(o *Object) error {
	if o.registered {
		return fmt.Errorf("register %s %d: %w", o.Kind, o.ID, ErrAlreadyRegistered)
	}
	id, ok := r.ids.alloc()
	if !ok {
		return ErrIDsExhausted
	}
	o.ID = id
	o.registered = true
	o.fresh = true
	o.Bounds = o.computeBounds()
	r.objs[id] = o
	r.grid.Insert(id, o.Bounds)

	o.fullDirty = true
	r.fullDirty[id] = struct{}{}
	return nil
}

// Spawn is Create followed by Register. init runs between the two so the
// object enters the grid at its real position.
func (r *Register) Spawn(kind Kind, init func(o *Object)) (*Object, error) {
	o, err := r.Create(kind)
	if err != nil {
		return nil, err
	}
	if init != nil {
		init(o)
	}
	if err := r.Register(o); err != nil {
		r.pools[kind].Free(o)
		return nil, err
	}
	return o, nil
}

// GetByID returns the live object for id.
func (r *Register) GetByID(id ObjectID) (*Object, bool) {
	o, ok := r.objs[id]
	return o, ok
}

// Deregister removes id from the map and grid and returns the instance to
// its pool. The id becomes reusable only after the next Flush.
func (r *Register) Deregister(id ObjectID) error {
	o, ok := r.objs[id]
	if !ok {
		return fmt.Errorf("deregister %d: %w", id, ErrNotRegistered)
	}
	r.grid.Remove(id)
	delete(r.objs, id)
	delete(r.fullDirty, id)
	delete(r.partDirty, id)
	// Clients never saw an object created and destroyed in the same tick.
	if !o.fresh {
		r.deleted = append(r.deleted, id)
	}
	r.ids.release(id)
	r.pools[o.Kind].Free(o)
	return nil
}

// Moved must be called after o.Pos or o.Extent change. It refreshes the
// bounds, moves the grid entry and marks the position dirty.
func (r *Register) Moved(o *Object) {
	if !o.registered {
		return
	}
	r.UpdateBounds(o)
	r.SetPartDirty(o, FieldPos)
}

// UpdateBounds refreshes the bounds and grid entry after o.Extent changed
// without touching the dirty state.
func (r *Register) UpdateBounds(o *Object) {
	if !o.registered {
		return
	}
	o.Bounds = o.computeBounds()
	r.grid.Update(o.ID, o.Bounds)
}

// SetDirty schedules a full record for o this tick.
func (r *Register) SetDirty(o *Object) {
	if !o.registered {
		return
	}
	o.fullDirty = true
	o.partDirty = false
	r.fullDirty[o.ID] = struct{}{}
	delete(r.partDirty, o.ID)
}

// SetPartDirty flags fields of o as changed. Objects already scheduled for
// a full record are left alone since the full record carries every field.
func (r *Register) SetPartDirty(o *Object, fields FieldMask) {
	if !o.registered || o.fullDirty {
		return
	}
	o.changed |= fields
	o.partDirty = true
	r.partDirty[o.ID] = struct{}{}
}

// Serialize writes the Update payload. It makes the register usable
// directly with MsgStream.SerializeMsg.
func (r *Register) Serialize(s *packet.Stream) { r.SerializeObjs(s) }

// SerializeObjs writes deletes, full records and partial records, each
// section in ascending id order.
func (r *Register) SerializeObjs(s *packet.Stream) {
	slices.Sort(r.deleted)
	s.WriteUint16(uint16(len(r.deleted)))
	for _, id := range r.deleted {
		s.WriteUint16(uint16(id))
	}

	ids := r.sortedIDs(r.fullDirty)
	s.WriteUint16(uint16(len(ids)))
	for _, id := range ids {
		o := r.objs[id]
		s.WriteUint8(uint8(o.Kind))
		s.WriteUint16(uint16(id))
		writePos(s, o)
		writeLayer(s, o)
		o.Payload.WriteFull(s, o)
	}

	ids = r.sortedIDs(r.partDirty)
	s.WriteUint16(uint16(len(ids)))
	for _, id := range ids {
		o := r.objs[id]
		s.WriteUint16(uint16(id))
		s.WriteBits(uint32(o.changed), o.Payload.FieldBits())
		if o.changed.Has(FieldPos) {
			writePos(s, o)
		}
		o.Payload.WritePart(s, o, o.changed)
	}
}

func (r *Register) sortedIDs(set map[ObjectID]struct{}) []ObjectID {
	r.idBuf = slices.AppendSeq(r.idBuf[:0], maps.Keys(set))
	slices.Sort(r.idBuf)
	return r.idBuf
}

// Flush clears the tick's dirty state. It must run after the serialized
// buffer has been handed to every session.
func (r *Register) Flush() {
	for id := range r.fullDirty {
		if o, ok := r.objs[id]; ok {
			o.fullDirty = false
			o.fresh = false
			o.changed = 0
		}
	}
	for id := range r.partDirty {
		if o, ok := r.objs[id]; ok {
			o.partDirty = false
			o.changed = 0
		}
	}
	clear(r.fullDirty)
	clear(r.partDirty)
	r.deleted = r.deleted[:0]
	r.ids.flush()
}

// FullResync marks every live object full dirty so the next Update carries
// the whole world.
func (r *Register) FullResync() {
	for _, o := range r.objs {
		r.SetDirty(o)
	}
	r.log.Debug("full resync scheduled", zap.Int("objects", len(r.objs)))
}

// Query returns live objects whose bounds overlap b, ascending by id.
func (r *Register) Query(b geom.AABB) []*Object {
	r.idBuf = r.grid.QueryBuf(b, r.idBuf[:0])
	out := make([]*Object, 0, len(r.idBuf))
	for _, id := range r.idBuf {
		if o, ok := r.objs[id]; ok && o.Bounds.Overlaps(b) {
			out = append(out, o)
		}
	}
	return out
}

// Each calls fn for every live object of kind in pool order.
func (r *Register) Each(kind Kind, fn func(o *Object)) {
	p, ok := r.pools[kind]
	if !ok {
		return
	}
	for _, o := range p.Items() {
		if o.active && o.registered {
			fn(o)
		}
	}
}

// Len returns the number of live objects.
func (r *Register) Len() int { return len(r.objs) }

// Grid exposes the spatial index for read-only queries.
func (r *Register) Grid() *spatial.Grid[ObjectID] { return r.grid }

// Stats is a snapshot for perf logging.
type Stats struct {
	Live      int
	FullDirty int
	PartDirty int
	Deleted   int
	PoolSlots int
}

func (r *Register) Stats() Stats {
	st := Stats{
		Live:      len(r.objs),
		FullDirty: len(r.fullDirty),
		PartDirty: len(r.partDirty),
		Deleted:   len(r.deleted),
	}
	for _, p := range r.pools {
		st.PoolSlots += p.Len()
	}
	return st
}
