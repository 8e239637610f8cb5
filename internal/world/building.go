package world

import "github.com/arenasync/server/internal/net/packet"

const (
	FieldBuildingCeiling  FieldMask = 1 << 1
	FieldBuildingOccupied FieldMask = 1 << 2
)

type Building struct {
	Type        string
	Ori         uint8
	CeilingDead bool
	Occupied    bool
}

func NewBuilding() Payload { return &Building{} }

func (b *Building) Init()          { *b = Building{} }
func (b *Building) Free()          {}
func (b *Building) FieldBits() int { return 3 }

func (b *Building) WriteFull(s *packet.Stream, _ *Object) {
	s.WriteMapType(b.Type)
	s.WriteBits(uint32(b.Ori&3), 2)
	s.WriteBool(b.CeilingDead)
	s.WriteBool(b.Occupied)
}

func (b *Building) WritePart(s *packet.Stream, _ *Object, fields FieldMask) {
	if fields.Has(FieldBuildingCeiling) {
		s.WriteBool(b.CeilingDead)
	}
	if fields.Has(FieldBuildingOccupied) {
		s.WriteBool(b.Occupied)
	}
}

func (b *Building) UpdateData(s *packet.Stream, _ *Object, isFull, _ bool, ctx *UpdateContext) {
	if isFull {
		b.Type = s.ReadMapType()
		b.Ori = uint8(s.ReadBits(2))
		b.CeilingDead = s.ReadBool()
		b.Occupied = s.ReadBool()
		return
	}
	if ctx.Fields.Has(FieldBuildingCeiling) {
		b.CeilingDead = s.ReadBool()
	}
	if ctx.Fields.Has(FieldBuildingOccupied) {
		b.Occupied = s.ReadBool()
	}
}
