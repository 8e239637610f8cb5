package world

import (
	"fmt"

	"github.com/arenasync/server/internal/geom"
	"github.com/arenasync/server/internal/net/packet"
)

// ObjectID identifies a live object on the wire. 0 means "none".
type ObjectID uint16

// Kind is the closed set of replicated object kinds. Values are wire codes.
type Kind uint8

const (
	KindInvalid  Kind = 0
	KindPlayer   Kind = 1
	KindObstacle Kind = 2
	KindLoot     Kind = 3
	KindBuilding Kind = 6
	KindSmoke    Kind = 10
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "Invalid"
	case KindPlayer:
		return "Player"
	case KindObstacle:
		return "Obstacle"
	case KindLoot:
		return "Loot"
	case KindBuilding:
		return "Building"
	case KindSmoke:
		return "Smoke"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// FieldMask flags which fields of a partial record are present. Bit 0 is
// the position for every kind; higher bits are kind specific.
type FieldMask uint8

const FieldPos FieldMask = 1 << 0

// Has reports whether f is set in m.
func (m FieldMask) Has(f FieldMask) bool { return m&f != 0 }

// UpdateContext is handed to Payload.UpdateData when a client applies a
// record. Fields is the decoded mask of a partial record.
type UpdateContext struct {
	Tick   uint32
	Fields FieldMask
}

// Payload is the per-kind part of an object: the capability contract the
// pool, register and replica drive without knowing kind semantics.
type Payload interface {
	// Init resets the payload when its object is (re)allocated.
	Init()
	// Free releases per-object resources when the object returns to its pool.
	Free()
	// FieldBits is the width of the partial-record field mask.
	FieldBits() int
	WriteFull(s *packet.Stream, o *Object)
	WritePart(s *packet.Stream, o *Object, fields FieldMask)
	// UpdateData decodes a record into o. isFull selects the full layout,
	// otherwise ctx.Fields lists the fields present.
	UpdateData(s *packet.Stream, o *Object, isFull, isNew bool, ctx *UpdateContext)
}

// Object is the shared core record every kind carries. Objects hold no
// references into the grid or pool; everything else refers to them by ID
// through the Register.
type Object struct {
	ID     ObjectID
	Kind   Kind
	Pos    geom.Vec2
	Extent geom.Vec2 // half size of the bounding box around Pos
	Bounds geom.AABB
	Layer  uint8

	Payload Payload

	active     bool
	registered bool
	fresh      bool // registered this tick, not yet flushed
	fullDirty  bool
	partDirty  bool
	changed    FieldMask
}

func newObject(kind Kind, p Payload) *Object {
	return &Object{Kind: kind, Payload: p}
}

// Init is the pool hook for a (re)allocated object.
func (o *Object) Init() {
	*o = Object{Kind: o.Kind, Payload: o.Payload, active: o.active}
	o.Payload.Init()
}

// Free is the pool hook for a released object.
func (o *Object) Free() {
	o.Payload.Free()
	o.registered = false
}

func (o *Object) Active() bool       { return o.active }
func (o *Object) setActive(v bool)   { o.active = v }
func (o *Object) Registered() bool   { return o.registered }
func (o *Object) FullDirty() bool    { return o.fullDirty }
func (o *Object) PartDirty() bool    { return o.partDirty }
func (o *Object) Changed() FieldMask { return o.changed }

func (o *Object) computeBounds() geom.AABB {
	return geom.Extents(o.Pos, o.Extent)
}

// As returns the payload as T. Callers use it after checking Kind.
func As[T Payload](o *Object) T {
	p, _ := o.Payload.(T)
	return p
}

// writePos/readPos encode the shared position field.
func writePos(s *packet.Stream, o *Object) {
	s.WriteVec(o.Pos, 0, 0, packet.MapMaxDim, packet.MapMaxDim, packet.PosBits)
}

func readPos(s *packet.Stream, o *Object) {
	o.Pos = s.ReadVec(0, 0, packet.MapMaxDim, packet.MapMaxDim, packet.PosBits)
	o.Bounds = o.computeBounds()
}

func writeLayer(s *packet.Stream, o *Object) { s.WriteBits(uint32(o.Layer&3), 2) }
func readLayer(s *packet.Stream, o *Object)  { o.Layer = uint8(s.ReadBits(2)) }
