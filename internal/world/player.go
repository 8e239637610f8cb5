package world

import (
	"github.com/arenasync/server/internal/geom"
	"github.com/arenasync/server/internal/net/packet"
)

// Player partial fields.
const (
	FieldPlayerDir   FieldMask = 1 << 1
	FieldPlayerState FieldMask = 1 << 2
	FieldPlayerItem  FieldMask = 1 << 3
)

const PlayerRadius = 1.0

// Player is the payload of a connected participant. Health, Kills and
// MoveDir are server side only.
type Player struct {
	Name       string
	Dir        geom.Vec2
	ActiveItem string
	Dead       bool
	Downed     bool

	Health  float64
	Kills   uint8
	MoveDir geom.Vec2
	Speed   float64
}

func NewPlayer() Payload { return &Player{} }

func (p *Player) Init() {
	*p = Player{Dir: geom.V(1, 0), Health: 100}
}

func (p *Player) Free() {}

func (p *Player) FieldBits() int { return 4 }

func (p *Player) WriteFull(s *packet.Stream, _ *Object) {
	s.WriteString(p.Name, packet.PlayerNameMaxLen)
	s.WriteUnitVec(p.Dir, 8)
	s.WriteGameType(p.ActiveItem)
	s.WriteBool(p.Dead)
	s.WriteBool(p.Downed)
}

func (p *Player) WritePart(s *packet.Stream, _ *Object, fields FieldMask) {
	if fields.Has(FieldPlayerDir) {
		s.WriteUnitVec(p.Dir, 8)
	}
	if fields.Has(FieldPlayerState) {
		s.WriteBool(p.Dead)
		s.WriteBool(p.Downed)
	}
	if fields.Has(FieldPlayerItem) {
		s.WriteGameType(p.ActiveItem)
	}
}

func (p *Player) UpdateData(s *packet.Stream, _ *Object, isFull, _ bool, ctx *UpdateContext) {
	if isFull {
		p.Name = s.ReadString(packet.PlayerNameMaxLen)
		p.Dir = s.ReadUnitVec(8)
		p.ActiveItem = s.ReadGameType()
		p.Dead = s.ReadBool()
		p.Downed = s.ReadBool()
		return
	}
	if ctx.Fields.Has(FieldPlayerDir) {
		p.Dir = s.ReadUnitVec(8)
	}
	if ctx.Fields.Has(FieldPlayerState) {
		p.Dead = s.ReadBool()
		p.Downed = s.ReadBool()
	}
	if ctx.Fields.Has(FieldPlayerItem) {
		p.ActiveItem = s.ReadGameType()
	}
}
