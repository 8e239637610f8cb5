package world

import "github.com/arenasync/server/internal/net/packet"

const (
	FieldSmokeRad      FieldMask = 1 << 1
	FieldSmokeInterior FieldMask = 1 << 2
)

const SmokeMaxRad = 16.0

// Smoke is a growing cloud. Rad changes every tick while it expands.
type Smoke struct {
	Rad      float64
	Interior uint8
}

func NewSmoke() Payload { return &Smoke{} }

func (m *Smoke) Init()          { *m = Smoke{} }
func (m *Smoke) Free()          {}
func (m *Smoke) FieldBits() int { return 3 }

func (m *Smoke) WriteFull(s *packet.Stream, _ *Object) {
	s.WriteFloat(m.Rad, 0, SmokeMaxRad, 8)
	s.WriteBits(uint32(m.Interior&0x3f), 6)
}

func (m *Smoke) WritePart(s *packet.Stream, _ *Object, fields FieldMask) {
	if fields.Has(FieldSmokeRad) {
		s.WriteFloat(m.Rad, 0, SmokeMaxRad, 8)
	}
	if fields.Has(FieldSmokeInterior) {
		s.WriteBits(uint32(m.Interior&0x3f), 6)
	}
}

func (m *Smoke) UpdateData(s *packet.Stream, _ *Object, isFull, _ bool, ctx *UpdateContext) {
	if isFull || ctx.Fields.Has(FieldSmokeRad) {
		m.Rad = s.ReadFloat(0, SmokeMaxRad, 8)
	}
	if isFull || ctx.Fields.Has(FieldSmokeInterior) {
		m.Interior = uint8(s.ReadBits(6))
	}
}
