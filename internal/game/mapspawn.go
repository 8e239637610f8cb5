package game

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/arenasync/server/internal/geom"
	"github.com/arenasync/server/internal/net/packet"
	"github.com/arenasync/server/internal/world"
)

// spawnMap registers every static placement of the map definition.
func (g *Game) spawnMap() error {
	m := g.mapDef
	for i, p := range m.Obstacles {
		ot := m.ObstacleTypes[p.Type]
		pos := p.Vec()
		_, err := g.reg.Spawn(world.KindObstacle, func(o *world.Object) {
			o.Pos = pos
			o.Extent = ot.Extent(p.Scale)
			ob := world.As[*world.Obstacle](o)
			ob.Type = p.Type
			ob.Ori = p.Ori
			ob.Scale = p.Scale
			ob.Collidable = ot.IsCollidable()
			ob.Health = ot.Health
			ob.Collider = ot.Collider(pos, p.Scale)
		})
		if err != nil {
			return fmt.Errorf("spawn obstacle %d: %w", i, err)
		}
	}
	for i, p := range m.Buildings {
		bt := m.BuildingTypes[p.Type]
		_, err := g.reg.Spawn(world.KindBuilding, func(o *world.Object) {
			o.Pos = p.Vec()
			o.Extent = geom.V(bt.HalfExtents[0], bt.HalfExtents[1])
			b := world.As[*world.Building](o)
			b.Type = p.Type
			b.Ori = p.Ori
		})
		if err != nil {
			return fmt.Errorf("spawn building %d: %w", i, err)
		}
	}
	for i, l := range m.Loot {
		count := l.Count
		if count <= 0 {
			count = 1
		}
		pos := geom.V(l.Pos[0], l.Pos[1])
		if _, err := g.Loot.AddLoot(l.Type, pos, 0, count, LootOpts{}); err != nil {
			return fmt.Errorf("spawn loot %d: %w", i, err)
		}
	}
	g.log.Debug("map spawned",
		zap.Int("obstacles", len(m.Obstacles)),
		zap.Int("buildings", len(m.Buildings)),
		zap.Int("loot", len(m.Loot)),
	)
	return nil
}

// buildMapMsg lists the static placements for the minimap.
func (g *Game) buildMapMsg() *packet.MapMsg {
	m := g.mapDef
	msg := &packet.MapMsg{
		Name:   m.Name,
		Seed:   m.Seed,
		Width:  uint16(m.Width),
		Height: uint16(m.Height),
		Places: make([]packet.MapPlace, 0, len(m.Obstacles)+len(m.Buildings)),
	}
	for _, p := range m.Buildings {
		msg.Places = append(msg.Places, packet.MapPlace{Type: p.Type, Pos: p.Vec(), Ori: p.Ori})
	}
	for _, p := range m.Obstacles {
		msg.Places = append(msg.Places, packet.MapPlace{Type: p.Type, Pos: p.Vec(), Ori: p.Ori})
	}
	return msg
}

// DamageObstacle lowers an obstacle's health. At zero it dies, stops
// colliding and drops its loot.
func (g *Game) DamageObstacle(id world.ObjectID, amount float64) error {
	o, ok := g.reg.GetByID(id)
	if !ok || o.Kind != world.KindObstacle {
		return fmt.Errorf("obstacle %d: %w", id, world.ErrNotRegistered)
	}
	ob := world.As[*world.Obstacle](o)
	if ob.Dead {
		return nil
	}
	ob.Health -= amount
	if ob.Health > 0 {
		return nil
	}
	ob.Health = 0
	ob.Dead = true
	ob.Collidable = false
	// Collidable only travels in the full record.
	g.reg.SetDirty(o)

	if ot := g.mapDef.ObstacleTypes[ob.Type]; ot != nil {
		for _, d := range ot.Loot {
			count := d.Count
			if count <= 0 {
				count = 1
			}
			if _, err := g.Loot.AddLoot(d.Type, o.Pos, o.Layer, count, LootOpts{PushSpeed: lootDefaultPush}); err != nil {
				g.log.Warn("obstacle loot drop failed", zap.String("item", d.Type), zap.Error(err))
			}
		}
	}
	g.log.Debug("obstacle destroyed", zap.Uint16("id", uint16(id)), zap.String("type", ob.Type))
	return nil
}
