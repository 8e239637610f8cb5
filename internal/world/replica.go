package world

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/arenasync/server/internal/net/packet"
)

// Replica is the client-side mirror of a Register: it applies Update
// payloads to a local object set. Go clients and the package tests use it
// to verify what a client reconstructs.
type Replica struct {
	pools     map[Kind]*Pool[*Object]
	objs      map[ObjectID]*Object
	seenCount map[ObjectID]int
	tick      uint32
	log       *zap.Logger
}

func NewReplica(log *zap.Logger) *Replica {
	if log == nil {
		log = zap.NewNop()
	}
	return &Replica{
		pools:     make(map[Kind]*Pool[*Object]),
		objs:      make(map[ObjectID]*Object),
		seenCount: make(map[ObjectID]int),
		log:       log,
	}
}

func (r *Replica) RegisterKind(kind Kind, newPayload PayloadFactory) {
	r.pools[kind] = NewPool(func() *Object { return newObject(kind, newPayload()) })
}

// GetByID returns the mirrored object for id.
func (r *Replica) GetByID(id ObjectID) (*Object, bool) {
	o, ok := r.objs[id]
	return o, ok
}

// SeenCount is how many full records have been applied for id.
func (r *Replica) SeenCount(id ObjectID) int { return r.seenCount[id] }

func (r *Replica) Len() int { return len(r.objs) }

// Each calls fn for every mirrored object of kind.
func (r *Replica) Each(kind Kind, fn func(o *Object)) {
	p, ok := r.pools[kind]
	if !ok {
		return
	}
	for _, o := range p.Items() {
		if o.active {
			fn(o)
		}
	}
}

// ApplyUpdate reads one Update payload. A partial record for an id the
// replica never saw is a desync: it is logged and the rest of the payload
// is dropped, since its layout depends on the unknown object's kind.
func (r *Replica) ApplyUpdate(s *packet.Stream) error {
	r.tick++
	ctx := &UpdateContext{Tick: r.tick}

	delCount := int(s.ReadUint16())
	for i := 0; i < delCount && s.Err() == nil; i++ {
		id := ObjectID(s.ReadUint16())
		r.deleteObj(id)
	}

	fullCount := int(s.ReadUint16())
	for i := 0; i < fullCount && s.Err() == nil; i++ {
		kind := Kind(s.ReadUint8())
		id := ObjectID(s.ReadUint16())
		if s.Err() != nil {
			break
		}
		if err := r.updateObjFull(s, kind, id, ctx); err != nil {
			r.log.Warn("full record dropped", zap.Uint16("id", uint16(id)), zap.Error(err))
			return err
		}
	}

	partCount := int(s.ReadUint16())
	for i := 0; i < partCount && s.Err() == nil; i++ {
		id := ObjectID(s.ReadUint16())
		o, ok := r.objs[id]
		if !ok {
			err := fmt.Errorf("partial record for %d: %w", id, ErrDesync)
			r.log.Warn("update desync", zap.Uint16("id", uint16(id)), zap.Int("remaining", partCount-i))
			return err
		}
		ctx.Fields = FieldMask(s.ReadBits(o.Payload.FieldBits()))
		if ctx.Fields.Has(FieldPos) {
			readPos(s, o)
		}
		o.Payload.UpdateData(s, o, false, false, ctx)
	}

	if err := s.Err(); err != nil {
		return fmt.Errorf("apply update: %w", err)
	}
	return nil
}

func (r *Replica) updateObjFull(s *packet.Stream, kind Kind, id ObjectID, ctx *UpdateContext) error {
	o, ok := r.objs[id]
	if ok && o.Kind != kind {
		// Id reused by a different kind: the delete went missing.
		r.log.Warn("id changed kind", zap.Uint16("id", uint16(id)),
			zap.Stringer("old", o.Kind), zap.Stringer("new", kind))
		r.deleteObj(id)
		ok = false
	}
	isNew := !ok
	if isNew {
		p, known := r.pools[kind]
		if !known {
			return fmt.Errorf("kind %s: %w", kind, ErrUnknownKind)
		}
		o = p.Alloc()
		o.ID = id
		o.registered = true
		r.objs[id] = o
	}
	readPos(s, o)
	readLayer(s, o)
	ctx.Fields = 0
	o.Payload.UpdateData(s, o, true, isNew, ctx)
	r.seenCount[id]++
	return nil
}

func (r *Replica) deleteObj(id ObjectID) {
	o, ok := r.objs[id]
	if !ok {
		r.log.Warn("delete of unknown object", zap.Uint16("id", uint16(id)))
		return
	}
	delete(r.objs, id)
	delete(r.seenCount, id)
	r.pools[o.Kind].Free(o)
}
