package world

import (
	"github.com/arenasync/server/internal/geom"
	"github.com/arenasync/server/internal/net/packet"
)

// Loot is a pickup on the ground. Only the position changes after
// creation; everything else goes out with the full record, so aging and
// ownership changes re-send the object with SetDirty.
type Loot struct {
	Type           string
	Count          uint8
	IsOld          bool
	IsPreloadedGun bool
	OwnerID        ObjectID

	Vel    geom.Vec2
	OldPos geom.Vec2
	Rad    float64
	Ticks  int
}

func NewLoot() Payload { return &Loot{} }

func (l *Loot) Init() {
	*l = Loot{Count: 1, Rad: 1}
}

func (l *Loot) Free() {}

func (l *Loot) FieldBits() int { return 1 }

func (l *Loot) WriteFull(s *packet.Stream, _ *Object) {
	s.WriteGameType(l.Type)
	s.WriteUint8(l.Count)
	s.WriteBool(l.IsOld)
	s.WriteBool(l.IsPreloadedGun)
	s.WriteBool(l.OwnerID != 0)
	if l.OwnerID != 0 {
		s.WriteUint16(uint16(l.OwnerID))
	}
}

func (l *Loot) WritePart(*packet.Stream, *Object, FieldMask) {}

func (l *Loot) UpdateData(s *packet.Stream, _ *Object, isFull, _ bool, _ *UpdateContext) {
	if !isFull {
		return
	}
	l.Type = s.ReadGameType()
	l.Count = s.ReadUint8()
	l.IsOld = s.ReadBool()
	l.IsPreloadedGun = s.ReadBool()
	l.OwnerID = 0
	if s.ReadBool() {
		l.OwnerID = ObjectID(s.ReadUint16())
	}
}
