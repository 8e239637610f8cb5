package world

import (
	"github.com/arenasync/server/internal/geom"
	"github.com/arenasync/server/internal/net/packet"
)

const (
	FieldObstacleScale FieldMask = 1 << 1
	FieldObstacleDead  FieldMask = 1 << 2
)

const (
	obstacleScaleMin = 0.125
	obstacleScaleMax = 2.5
)

// Obstacle is static geometry placed from the map. Collider is the world
// space shape used for push-out and is not replicated.
type Obstacle struct {
	Type       string
	Ori        uint8
	Scale      float64
	Dead       bool
	Collidable bool

	Health   float64
	Collider geom.Collider
}

func NewObstacle() Payload { return &Obstacle{} }

func (b *Obstacle) Init() {
	*b = Obstacle{Scale: 1, Collidable: true}
}

func (b *Obstacle) Free() {}

func (b *Obstacle) FieldBits() int { return 3 }

func (b *Obstacle) WriteFull(s *packet.Stream, _ *Object) {
	s.WriteMapType(b.Type)
	s.WriteBits(uint32(b.Ori&3), 2)
	s.WriteFloat(b.Scale, obstacleScaleMin, obstacleScaleMax, 8)
	s.WriteBool(b.Dead)
	s.WriteBool(b.Collidable)
}

func (b *Obstacle) WritePart(s *packet.Stream, _ *Object, fields FieldMask) {
	if fields.Has(FieldObstacleScale) {
		s.WriteFloat(b.Scale, obstacleScaleMin, obstacleScaleMax, 8)
	}
	if fields.Has(FieldObstacleDead) {
		s.WriteBool(b.Dead)
	}
}

func (b *Obstacle) UpdateData(s *packet.Stream, _ *Object, isFull, _ bool, ctx *UpdateContext) {
	if isFull {
		b.Type = s.ReadMapType()
		b.Ori = uint8(s.ReadBits(2))
		b.Scale = s.ReadFloat(obstacleScaleMin, obstacleScaleMax, 8)
		b.Dead = s.ReadBool()
		b.Collidable = s.ReadBool()
		return
	}
	if ctx.Fields.Has(FieldObstacleScale) {
		b.Scale = s.ReadFloat(obstacleScaleMin, obstacleScaleMax, 8)
	}
	if ctx.Fields.Has(FieldObstacleDead) {
		b.Dead = s.ReadBool()
	}
}
