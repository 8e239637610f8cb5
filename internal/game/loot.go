package game

import (
	"fmt"
	"math"
	"slices"

	"github.com/arenasync/server/internal/core/event"
	"github.com/arenasync/server/internal/data"
	"github.com/arenasync/server/internal/geom"
	"github.com/arenasync/server/internal/spatial"
	"github.com/arenasync/server/internal/world"
)

const (
	lootDrag         = 0.93 // velocity factor between the two half steps
	lootMaxDispSqr   = 10.0
	lootCollidePush  = 0.2
	lootPushOutSlack = 0.001
	lootStackSize    = 60
	lootSplitPush    = -4.0
	lootDefaultPush  = 2.0
	lootMaxCount     = math.MaxUint8
)

// LootOpts tunes how a new pickup enters the world.
type LootOpts struct {
	PushSpeed float64
	// Dir is the push direction; zero picks a random one.
	Dir geom.Vec2
	// UseCountForAmmo spawns count rounds next to a gun instead of the
	// gun's default ammo amount.
	UseCountForAmmo bool
	NoAmmo          bool
}

type lootPair struct{ a, b world.ObjectID }

// LootBarn runs pickup physics: drift with drag, loot-loot collisions
// through a quadtree rebuilt each tick, and push-out from obstacles found
// through the world grid.
type LootBarn struct {
	g     *Game
	ids   []world.ObjectID // insertion order
	live  []*world.Object
	tree  *spatial.Quadtree[world.ObjectID]
	pairs map[lootPair]struct{}
}

func newLootBarn(g *Game) *LootBarn {
	return &LootBarn{
		g:     g,
		tree:  spatial.NewQuadtree[world.ObjectID](g.mapDef.Bounds(), g.cfg.LootMaxObjects, g.cfg.LootMaxLevels),
		pairs: make(map[lootPair]struct{}),
	}
}

func (b *LootBarn) Count() int { return len(b.ids) }

// IDs returns the live loot ids in spawn order.
func (b *LootBarn) IDs() []world.ObjectID { return b.ids }

// AddLoot spawns count of item at pos. A gun also drops its ammo as two
// stacks pushed apart to either side.
func (b *LootBarn) AddLoot(item string, pos geom.Vec2, layer uint8, count int, opts LootOpts) (*world.Object, error) {
	def := b.g.defs.Get(item)
	if def == nil {
		return nil, fmt.Errorf("loot %q: %w", item, ErrUnknownItem)
	}
	o, err := b.add(item, pos, layer, count, opts.PushSpeed, opts.Dir)
	if err != nil {
		return nil, err
	}
	event.Emit(b.g.bus, event.LootDropped{LootID: uint16(o.ID), Type: item, Count: count})

	if opts.NoAmmo || def.Class != data.ClassGun || b.g.defs.Get(def.Ammo) == nil {
		return o, nil
	}
	ammo := def.AmmoSpawnCount
	if opts.UseCountForAmmo {
		ammo = count
	}
	if ammo <= 0 {
		return o, nil
	}
	half := (ammo + 1) / 2
	left, err := b.add(def.Ammo, pos.Add(geom.V(-0.2, -0.2)), layer, half, 0, geom.V(-1, -1))
	if err != nil {
		return o, err
	}
	b.push(left, geom.V(-1, -1), 1)
	if rest := ammo - half; rest >= 1 {
		right, err := b.add(def.Ammo, pos.Add(geom.V(0.2, -0.2)), layer, rest, 0, geom.V(1, -1))
		if err != nil {
			return o, err
		}
		b.push(right, geom.V(1, -1), 1)
	}
	return o, nil
}

// SplitUpLoot drops amount of item as full stacks plus a remainder, all
// pushed back along dir.
func (b *LootBarn) SplitUpLoot(item string, pos geom.Vec2, layer uint8, amount int, dir geom.Vec2) error {
	for i := 0; i < amount/lootStackSize; i++ {
		if _, err := b.add(item, pos, layer, lootStackSize, lootSplitPush, dir); err != nil {
			return err
		}
	}
	if rem := amount % lootStackSize; rem != 0 {
		if _, err := b.add(item, pos, layer, rem, lootSplitPush, dir); err != nil {
			return err
		}
	}
	return nil
}

// RemoveLoot deletes a pickup, e.g. when a player collects it.
func (b *LootBarn) RemoveLoot(id world.ObjectID) error {
	i := slices.Index(b.ids, id)
	if i < 0 {
		return fmt.Errorf("loot %d: %w", id, world.ErrNotRegistered)
	}
	b.ids = slices.Delete(b.ids, i, i+1)
	return b.g.reg.Deregister(id)
}

func (b *LootBarn) add(item string, pos geom.Vec2, layer uint8, count int, pushSpeed float64, dir geom.Vec2) (*world.Object, error) {
	if b.g.defs.Get(item) == nil {
		return nil, fmt.Errorf("loot %q: %w", item, ErrUnknownItem)
	}
	if count > lootMaxCount {
		count = lootMaxCount
	}
	rad := b.g.defs.LootRadius(item)
	if dir == (geom.Vec2{}) {
		dir = geom.FromAngle(b.g.rng.Float64() * 2 * math.Pi)
	}
	o, err := b.g.reg.Spawn(world.KindLoot, func(o *world.Object) {
		o.Pos = b.g.mapDef.Bounds().Clamp(pos, rad)
		o.Extent = geom.V(rad, rad)
		o.Layer = layer
		l := world.As[*world.Loot](o)
		l.Type = item
		l.Count = uint8(count)
		l.Rad = rad
		l.OldPos = o.Pos
		l.Vel = l.Vel.Add(dir.Mul(pushSpeed))
	})
	if err != nil {
		return nil, err
	}
	b.ids = append(b.ids, o.ID)
	return o, nil
}

func (b *LootBarn) push(o *world.Object, dir geom.Vec2, speed float64) {
	l := world.As[*world.Loot](o)
	l.Vel = l.Vel.Add(dir.Mul(speed))
}

func safeDisplacement(vel geom.Vec2, dt float64) geom.Vec2 {
	d := vel.Mul(dt)
	if d.LengthSqr() >= lootMaxDispSqr {
		d = d.Normalize()
	}
	return d
}

func (b *LootBarn) update(dt float64) {
	b.tree.Clear()
	b.live = b.live[:0]

	half := dt / 2
	for _, id := range b.ids {
		o, ok := b.g.reg.GetByID(id)
		if !ok {
			continue
		}
		l := world.As[*world.Loot](o)
		l.OldPos = o.Pos
		o.Pos = o.Pos.Add(safeDisplacement(l.Vel, half))
		l.Vel = l.Vel.Mul(lootDrag)
		o.Pos = o.Pos.Add(safeDisplacement(l.Vel, half))

		b.tree.Insert(spatial.Item[world.ObjectID]{ID: id, Bounds: geom.Extents(o.Pos, o.Extent)})
		b.live = append(b.live, o)
	}

	clear(b.pairs)
	for _, o := range b.live {
		b.step(o)
	}
}

func (b *LootBarn) step(o *world.Object) {
	reg := b.g.reg
	l := world.As[*world.Loot](o)

	if l.Ticks > 2 && !l.IsOld {
		l.IsOld = true
		l.Ticks = 0
		reg.SetDirty(o)
	} else {
		l.Ticks++
	}

	moving := math.Abs(l.Vel.X) > 0.001 || math.Abs(l.Vel.Y) > 0.001 || !l.OldPos.Eq(o.Pos)
	if !moving {
		return
	}

	for _, id := range b.tree.Retrieve(geom.Extents(o.Pos, o.Extent)) {
		if id == o.ID {
			continue
		}
		key := lootPair{min(id, o.ID), max(id, o.ID)}
		if _, done := b.pairs[key]; done {
			continue
		}
		other, ok := reg.GetByID(id)
		if !ok || !sameLayer(o.Layer, other.Layer) {
			continue
		}
		ol := world.As[*world.Loot](other)
		res, hit := geom.IntersectCircleCircle(o.Pos, l.Rad, other.Pos, ol.Rad)
		if !hit {
			continue
		}
		b.pairs[key] = struct{}{}

		l.Vel = l.Vel.Sub(res.Dir.Mul(lootCollidePush))
		ol.Vel = ol.Vel.Add(res.Dir.Mul(lootCollidePush))
		speed := l.Vel.Sub(ol.Vel).Dot(res.Dir)
		if speed < 0 {
			continue
		}
		b.push(o, res.Dir, -speed)
		b.push(other, res.Dir, speed)
	}

	pushOutOfObstacles(reg, o, l.Rad)

	o.Pos = b.g.mapDef.Bounds().Clamp(o.Pos, l.Rad)
	if !l.OldPos.Eq(o.Pos) {
		reg.Moved(o)
	}
}

// pushOutOfObstacles moves a circle at o.Pos out of every live collidable
// obstacle on its layer.
func pushOutOfObstacles(reg *world.Register, o *world.Object, rad float64) {
	for _, other := range reg.Query(geom.Extents(o.Pos, geom.V(rad, rad))) {
		if other.Kind != world.KindObstacle || !sameLayer(o.Layer, other.Layer) {
			continue
		}
		ob := world.As[*world.Obstacle](other)
		if !ob.Collidable || ob.Dead {
			continue
		}
		if c, hit := geom.IntersectCollider(ob.Collider, o.Pos, rad); hit {
			o.Pos = o.Pos.Add(c.Dir.Mul(c.Pen + lootPushOutSlack))
		}
	}
}

// sameLayer treats the stair layers (bit 1) as touching both ground and
// underground.
func sameLayer(a, b uint8) bool {
	return a&1 == b&1 || (a&2 != 0 && b&2 != 0)
}
