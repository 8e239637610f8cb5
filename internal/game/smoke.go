package game

import (
	"fmt"
	"math"

	"github.com/arenasync/server/internal/geom"
	"github.com/arenasync/server/internal/world"
)

const smokeLifetime = 20.0 // seconds before a full cloud dissipates

// SmokeBarn grows smoke clouds to their full radius and removes them when
// they expire. The radius goes out as a partial update each tick it changes.
type SmokeBarn struct {
	g    *Game
	ids  []world.ObjectID
	ages map[world.ObjectID]float64
}

func newSmokeBarn(g *Game) *SmokeBarn {
	return &SmokeBarn{g: g, ages: make(map[world.ObjectID]float64)}
}

func (b *SmokeBarn) Count() int { return len(b.ids) }

// AddSmoke starts a cloud at pos with zero radius.
func (b *SmokeBarn) AddSmoke(pos geom.Vec2, layer uint8, interior uint8) (*world.Object, error) {
	o, err := b.g.reg.Spawn(world.KindSmoke, func(o *world.Object) {
		o.Pos = b.g.mapDef.Bounds().Clamp(pos, 0)
		o.Layer = layer
		world.As[*world.Smoke](o).Interior = interior & 0x3f
	})
	if err != nil {
		return nil, fmt.Errorf("add smoke: %w", err)
	}
	b.ids = append(b.ids, o.ID)
	b.ages[o.ID] = 0
	return o, nil
}

func (b *SmokeBarn) update(dt float64) {
	reg := b.g.reg
	kept := b.ids[:0]
	for _, id := range b.ids {
		o, ok := reg.GetByID(id)
		if !ok {
			delete(b.ages, id)
			continue
		}
		age := b.ages[id] + dt
		if age >= smokeLifetime {
			delete(b.ages, id)
			_ = reg.Deregister(id)
			continue
		}
		b.ages[id] = age
		kept = append(kept, id)

		s := world.As[*world.Smoke](o)
		if s.Rad >= world.SmokeMaxRad {
			continue
		}
		s.Rad = math.Min(s.Rad+b.g.cfg.SmokeGrowRate*dt, world.SmokeMaxRad)
		o.Extent = geom.V(s.Rad, s.Rad)
		reg.UpdateBounds(o)
		reg.SetPartDirty(o, world.FieldSmokeRad)
	}
	b.ids = kept
}
