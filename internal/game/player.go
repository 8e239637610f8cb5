package game

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/arenasync/server/internal/core/event"
	"github.com/arenasync/server/internal/data"
	"github.com/arenasync/server/internal/geom"
	"github.com/arenasync/server/internal/net/packet"
	"github.com/arenasync/server/internal/world"
)

const (
	playerSpeed       = 12.0 // units per second
	playerDefaultName = "Player"
	pickupRange       = 1.5
)

// Action codes carried in Input.Inputs.
const (
	InputInteract uint8 = 7
	InputDropItem uint8 = 20
)

type playerEntry struct {
	client    Client
	sessionID uint64
}

// PlayerBarn tracks the player objects and the client behind each.
type PlayerBarn struct {
	g       *Game
	order   []world.ObjectID // join order
	entries map[world.ObjectID]*playerEntry
	spawnAt int
}

func newPlayerBarn(g *Game) *PlayerBarn {
	return &PlayerBarn{
		g:       g,
		entries: make(map[world.ObjectID]*playerEntry),
	}
}

func (b *PlayerBarn) Count() int { return len(b.order) }

func (b *PlayerBarn) AliveCount() int {
	n := 0
	for _, id := range b.order {
		if o, ok := b.g.reg.GetByID(id); ok && !world.As[*world.Player](o).Dead {
			n++
		}
	}
	return n
}

// Get returns the player object for id.
func (b *PlayerBarn) Get(id world.ObjectID) (*world.Object, bool) {
	if _, ok := b.entries[id]; !ok {
		return nil, false
	}
	return b.g.reg.GetByID(id)
}

// IDs returns the player ids in join order.
func (b *PlayerBarn) IDs() []world.ObjectID { return b.order }

func (b *PlayerBarn) eachClient(fn func(c Client)) {
	for _, id := range b.order {
		fn(b.entries[id].client)
	}
}

// AddPlayer spawns a player for a joining client, sends it the Joined and
// Map messages and schedules a full resync so its first Update carries the
// whole world.
func (b *PlayerBarn) AddPlayer(c Client, sessionID uint64, name string) (*world.Object, error) {
	g := b.g
	if g.stopped {
		return nil, ErrGameStopped
	}
	if !g.CanJoin() {
		return nil, ErrGameFull
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = playerDefaultName
	}

	pos := b.nextSpawn()
	o, err := g.reg.Spawn(world.KindPlayer, func(o *world.Object) {
		o.Pos = pos
		o.Extent = geom.V(world.PlayerRadius, world.PlayerRadius)
		p := world.As[*world.Player](o)
		p.Name = name
		p.Speed = playerSpeed
	})
	if err != nil {
		return nil, fmt.Errorf("add player: %w", err)
	}
	pushOutOfObstacles(g.reg, o, world.PlayerRadius)
	g.reg.UpdateBounds(o)

	b.entries[o.ID] = &playerEntry{client: c, sessionID: sessionID}
	b.order = append(b.order, o.ID)

	g.SendTo(c, packet.MsgJoined, &packet.JoinedMsg{PlayerID: uint16(o.ID), TickRate: uint8(g.cfg.TickRate)})
	g.SendTo(c, packet.MsgMap, g.mapMsg)
	g.Resync()

	event.Emit(g.bus, event.PlayerJoined{PlayerID: uint16(o.ID), SessionID: sessionID, Name: name})
	g.log.Info("player joined",
		zap.Uint16("player", uint16(o.ID)),
		zap.Uint64("session", sessionID),
		zap.String("name", name),
	)
	return o, nil
}

func (b *PlayerBarn) nextSpawn() geom.Vec2 {
	m := b.g.mapDef
	if len(m.SpawnPoints) == 0 {
		return m.Bounds().Center()
	}
	sp := m.SpawnPoints[b.spawnAt%len(m.SpawnPoints)]
	b.spawnAt++
	return m.Bounds().Clamp(geom.V(sp[0], sp[1]), world.PlayerRadius)
}

// RemovePlayer deletes a disconnected player's object.
func (b *PlayerBarn) RemovePlayer(id world.ObjectID) error {
	e, ok := b.entries[id]
	if !ok {
		return fmt.Errorf("remove player %d: %w", id, ErrNoPlayer)
	}
	delete(b.entries, id)
	for i, pid := range b.order {
		if pid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	if err := b.g.reg.Deregister(id); err != nil {
		return err
	}
	event.Emit(b.g.bus, event.PlayerLeft{PlayerID: uint16(id), SessionID: e.sessionID})
	b.g.log.Info("player left", zap.Uint16("player", uint16(id)), zap.Uint64("session", e.sessionID))
	return nil
}

// HandleInput applies one Input message to the player's control state.
// Movement itself happens in update.
func (b *PlayerBarn) HandleInput(id world.ObjectID, msg *packet.InputMsg) error {
	o, ok := b.Get(id)
	if !ok {
		return fmt.Errorf("input for %d: %w", id, ErrNoPlayer)
	}
	p := world.As[*world.Player](o)
	if p.Dead {
		p.MoveDir = geom.Vec2{}
		return nil
	}

	move := msg.MoveDir()
	if move.LengthSqr() > 1 {
		move = move.Normalize()
	}
	p.MoveDir = move

	if dir := msg.ToMouseDir.NormalizeSafe(p.Dir); !dir.Eq(p.Dir) {
		p.Dir = dir
		b.g.reg.SetPartDirty(o, world.FieldPlayerDir)
	}

	if msg.UseItem != "" && msg.UseItem != p.ActiveItem && b.g.defs.Get(msg.UseItem) != nil {
		p.ActiveItem = msg.UseItem
		b.g.reg.SetPartDirty(o, world.FieldPlayerItem)
	}

	for _, code := range msg.Inputs {
		switch code {
		case InputInteract:
			b.pickup(o, p)
		case InputDropItem:
			b.dropActive(o, p)
		}
	}
	return nil
}

// pickup collects the nearest loot the player overlaps. Weapons become the
// active item; anything else is consumed.
func (b *PlayerBarn) pickup(o *world.Object, p *world.Player) {
	g := b.g
	var best *world.Object
	bestDist := pickupRange * pickupRange * 4
	for _, cand := range g.reg.Query(geom.Extents(o.Pos, geom.V(pickupRange, pickupRange))) {
		if cand.Kind != world.KindLoot || !sameLayer(o.Layer, cand.Layer) {
			continue
		}
		if d := cand.Pos.DistSqr(o.Pos); d < bestDist {
			best, bestDist = cand, d
		}
	}
	if best == nil {
		return
	}
	l := world.As[*world.Loot](best)
	if def := g.defs.Get(l.Type); def != nil && (def.Class == data.ClassGun || def.Class == data.ClassMelee) {
		if p.ActiveItem != "" {
			b.dropActive(o, p)
		}
		p.ActiveItem = l.Type
		g.reg.SetPartDirty(o, world.FieldPlayerItem)
	}
	if err := g.Loot.RemoveLoot(best.ID); err != nil {
		g.log.Warn("pickup failed", zap.Uint16("loot", uint16(best.ID)), zap.Error(err))
	}
}

func (b *PlayerBarn) dropActive(o *world.Object, p *world.Player) {
	if p.ActiveItem == "" {
		return
	}
	item := p.ActiveItem
	p.ActiveItem = ""
	b.g.reg.SetPartDirty(o, world.FieldPlayerItem)
	opts := LootOpts{PushSpeed: lootDefaultPush, Dir: p.Dir, NoAmmo: true}
	if _, err := b.g.Loot.AddLoot(item, o.Pos, o.Layer, 1, opts); err != nil {
		b.g.log.Warn("drop failed", zap.String("item", item), zap.Error(err))
	}
}

func (b *PlayerBarn) update(dt float64) {
	g := b.g
	bounds := g.mapDef.Bounds()
	for _, id := range b.order {
		o, ok := g.reg.GetByID(id)
		if !ok {
			continue
		}
		p := world.As[*world.Player](o)
		if p.Dead || p.MoveDir.LengthSqr() == 0 {
			continue
		}
		old := o.Pos
		o.Pos = o.Pos.Add(p.MoveDir.Mul(p.Speed * dt))
		pushOutOfObstacles(g.reg, o, world.PlayerRadius)
		o.Pos = bounds.Clamp(o.Pos, world.PlayerRadius)
		if !o.Pos.Eq(old) {
			g.reg.Moved(o)
		}
	}
}
