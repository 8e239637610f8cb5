package game

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/arenasync/server/internal/config"
	"github.com/arenasync/server/internal/core/event"
	"github.com/arenasync/server/internal/data"
	"github.com/arenasync/server/internal/geom"
	"github.com/arenasync/server/internal/net/packet"
	"github.com/arenasync/server/internal/world"
)

const testDefs = `
loot_radius:
  gun: 1.25
  ammo: 1.0
items:
  - { name: 9mm, class: ammo, max_stack: 120 }
  - { name: m9, class: gun, ammo: 9mm, ammo_spawn_count: 15 }
  - { name: bandage, class: heal, max_stack: 15 }
`

const testMap = `
name: test
seed: 7
width: 128
height: 128
spawn_points:
  - [20, 20]
  - [30, 20]
obstacle_types:
  tree: { radius: 2, health: 10 }
  crate:
    half_extents: [1, 1]
    health: 5
    loot:
      - { type: m9, count: 1 }
building_types:
  hut: { half_extents: [4, 4] }
obstacles:
  - { type: tree, pos: [60, 60] }
  - { type: crate, pos: [90, 90] }
buildings:
  - { type: hut, pos: [100, 20] }
`

const testTick = time.Second / 30

type fakeClient struct {
	frames [][]byte
	closed bool
}

func (c *fakeClient) Send(b []byte) { c.frames = append(c.frames, append([]byte(nil), b...)) }
func (c *fakeClient) Close()        { c.closed = true }

func (c *fakeClient) last(t *testing.T) []byte {
	t.Helper()
	if len(c.frames) == 0 {
		t.Fatal("client received no frames")
	}
	return c.frames[len(c.frames)-1]
}

func newTestGame(t *testing.T) *Game {
	t.Helper()
	defs, err := data.ParseDefTable([]byte(testDefs))
	if err != nil {
		t.Fatalf("defs: %v", err)
	}
	m, err := data.ParseMapDef([]byte(testMap))
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	g, err := New(Options{
		Config: config.GameConfig{
			TickRate:       30,
			GridCellSize:   16,
			LootMaxObjects: 10,
			LootMaxLevels:  4,
			SmokeGrowRate:  2,
		},
		MaxPlayers: 2,
		Defs:       defs,
		Map:        m,
		Seed:       1,
	})
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	return g
}

func newTestReplica() *world.Replica {
	r := world.NewReplica(nil)
	world.RegisterKinds(r)
	return r
}

// applyFrame feeds the Update at the head of an outbound batch to r and
// returns the reader positioned after it.
func applyFrame(t *testing.T, g *Game, r *world.Replica, frame []byte) *packet.MsgStream {
	t.Helper()
	ms := packet.NewMsgReader(frame, g.Types())
	typ, ok := ms.Next()
	if !ok || typ != packet.MsgUpdate {
		t.Fatalf("expected Update first, got=%s", typ)
	}
	if err := r.ApplyUpdate(ms.Stream()); err != nil {
		t.Fatalf("apply update: %v", err)
	}
	return ms
}

func countKind(g *Game, kind world.Kind) int {
	n := 0
	g.Register().Each(kind, func(*world.Object) { n++ })
	return n
}

func TestGame_NewSpawnsStaticMap(t *testing.T) {
	g := newTestGame(t)
	if got := countKind(g, world.KindObstacle); got != 2 {
		t.Fatalf("expected 2 obstacles, got=%d", got)
	}
	if got := countKind(g, world.KindBuilding); got != 1 {
		t.Fatalf("expected 1 building, got=%d", got)
	}
	if len(g.mapMsg.Places) != 3 {
		t.Fatalf("expected 3 map places, got=%d", len(g.mapMsg.Places))
	}
}

func TestGame_JoinSendsJoinedMapAndWorld(t *testing.T) {
	g := newTestGame(t)
	c := &fakeClient{}
	o, err := g.Players.AddPlayer(c, 1, "  alice ")
	if err != nil {
		t.Fatalf("add player: %v", err)
	}
	if len(c.frames) != 2 {
		t.Fatalf("expected Joined and Map frames, got=%d", len(c.frames))
	}

	ms := packet.NewMsgReader(c.frames[0], g.Types())
	if typ, _ := ms.Next(); typ != packet.MsgJoined {
		t.Fatalf("expected Joined, got=%s", typ)
	}
	var joined packet.JoinedMsg
	joined.Deserialize(ms.Stream())
	if joined.PlayerID != uint16(o.ID) || joined.TickRate != 30 {
		t.Fatalf("unexpected joined=%+v", joined)
	}

	ms = packet.NewMsgReader(c.frames[1], g.Types())
	if typ, _ := ms.Next(); typ != packet.MsgMap {
		t.Fatalf("expected Map, got=%s", typ)
	}
	var mm packet.MapMsg
	mm.Deserialize(ms.Stream())
	if ms.Stream().Err() != nil || mm.Name != "test" || len(mm.Places) != 3 {
		t.Fatalf("unexpected map=%+v err=%v", mm, ms.Stream().Err())
	}

	g.NetSync()
	r := newTestReplica()
	applyFrame(t, g, r, c.last(t))
	if r.Len() != g.Register().Len() {
		t.Fatalf("replica has %d objects, server %d", r.Len(), g.Register().Len())
	}
	ro, ok := r.GetByID(o.ID)
	if !ok || world.As[*world.Player](ro).Name != "alice" {
		t.Fatalf("player not mirrored: ok=%v", ok)
	}
}

func TestGame_InputMovesPlayer(t *testing.T) {
	g := newTestGame(t)
	c := &fakeClient{}
	o, _ := g.Players.AddPlayer(c, 1, "bob")
	r := newTestReplica()
	g.NetSync()
	applyFrame(t, g, r, c.last(t))

	in := packet.NewInputMsg()
	in.MoveRight = true
	if err := g.Players.HandleInput(o.ID, in); err != nil {
		t.Fatalf("input: %v", err)
	}
	start := o.Pos
	g.Update(testTick)
	want := start.X + playerSpeed*testTick.Seconds()
	if math.Abs(o.Pos.X-want) > 1e-9 || o.Pos.Y != start.Y {
		t.Fatalf("expected x=%v, got=%v", want, o.Pos)
	}
	if !o.PartDirty() || !o.Changed().Has(world.FieldPos) {
		t.Fatalf("expected position dirty, changed=%b", o.Changed())
	}

	g.NetSync()
	applyFrame(t, g, r, c.last(t))
	ro, _ := r.GetByID(o.ID)
	if ro.Pos.DistSqr(o.Pos) > 0.02*0.02 {
		t.Fatalf("replica pos=%v server pos=%v", ro.Pos, o.Pos)
	}
	if r.SeenCount(o.ID) != 1 {
		t.Fatalf("movement must travel as a partial record, seen=%d", r.SeenCount(o.ID))
	}
}

func TestGame_InputCannotWalkThroughTree(t *testing.T) {
	g := newTestGame(t)
	o, _ := g.Players.AddPlayer(&fakeClient{}, 1, "bob")
	o.Pos = geom.V(55, 60)
	g.Register().Moved(o)

	in := packet.NewInputMsg()
	in.MoveRight = true
	_ = g.Players.HandleInput(o.ID, in)
	for i := 0; i < 30; i++ {
		g.Update(testTick)
	}
	if d := o.Pos.Sub(geom.V(60, 60)).Length(); d < 3-1e-6 {
		t.Fatalf("player overlaps tree, dist=%v", d)
	}
}

func TestGame_CanJoinRespectsMaxPlayers(t *testing.T) {
	g := newTestGame(t)
	for i := 0; i < 2; i++ {
		if _, err := g.Players.AddPlayer(&fakeClient{}, uint64(i+1), "p"); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}
	if _, err := g.Players.AddPlayer(&fakeClient{}, 3, "late"); !errors.Is(err, ErrGameFull) {
		t.Fatalf("expected ErrGameFull, got=%v", err)
	}
}

func TestGame_RemovedPlayerIsDeletedOnClients(t *testing.T) {
	g := newTestGame(t)
	watcher := &fakeClient{}
	g.Players.AddPlayer(watcher, 1, "w")
	leaver, _ := g.Players.AddPlayer(&fakeClient{}, 2, "l")
	r := newTestReplica()
	g.NetSync()
	applyFrame(t, g, r, watcher.last(t))
	if _, ok := r.GetByID(leaver.ID); !ok {
		t.Fatal("leaver should be mirrored before removal")
	}

	id := leaver.ID
	if err := g.Players.RemovePlayer(id); err != nil {
		t.Fatalf("remove: %v", err)
	}
	g.NetSync()
	applyFrame(t, g, r, watcher.last(t))
	if _, ok := r.GetByID(id); ok {
		t.Fatal("leaver still mirrored after delete")
	}
	if g.Players.Count() != 1 {
		t.Fatalf("expected 1 player, got=%d", g.Players.Count())
	}
}

func TestGame_KillBroadcastsAndDropsItem(t *testing.T) {
	g := newTestGame(t)
	var killed []event.PlayerKilled
	event.Subscribe(g.Bus(), func(ev event.PlayerKilled) { killed = append(killed, ev) })

	c := &fakeClient{}
	killer, _ := g.Players.AddPlayer(c, 1, "k")
	target, _ := g.Players.AddPlayer(&fakeClient{}, 2, "t")
	world.As[*world.Player](target).ActiveItem = "m9"
	r := newTestReplica()
	g.NetSync()
	applyFrame(t, g, r, c.last(t))
	lootBefore := g.Loot.Count()

	if err := g.KillPlayer(target.ID, killer.ID, packet.DamagePlayer, "m9"); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if got := g.Loot.Count() - lootBefore; got != 3 {
		t.Fatalf("expected gun plus two ammo stacks, got=%d", got)
	}

	g.NetSync()
	ms := applyFrame(t, g, r, c.last(t))
	typ, ok := ms.Next()
	if !ok || typ != packet.MsgKill {
		t.Fatalf("expected Kill after Update, got=%s", typ)
	}
	var km packet.KillMsg
	km.Deserialize(ms.Stream())
	if km.TargetID != uint16(target.ID) || km.KillerID != uint16(killer.ID) || km.KillerKills != 1 || !km.Killed {
		t.Fatalf("unexpected kill=%+v", km)
	}
	if km.ItemSourceType != "m9" {
		t.Fatalf("expected item source m9, got=%q", km.ItemSourceType)
	}
	rt, _ := r.GetByID(target.ID)
	if !world.As[*world.Player](rt).Dead {
		t.Fatal("replica target should be dead")
	}

	g.Bus().SwapBuffers()
	g.Bus().DispatchAll()
	if len(killed) != 1 || killed[0].TargetName != "t" || killed[0].KillerName != "k" {
		t.Fatalf("unexpected events=%+v", killed)
	}
	if g.Players.AliveCount() != 1 {
		t.Fatalf("expected 1 alive, got=%d", g.Players.AliveCount())
	}
}

func TestGame_DamageObstacleDropsLoot(t *testing.T) {
	g := newTestGame(t)
	var crate *world.Object
	g.Register().Each(world.KindObstacle, func(o *world.Object) {
		if world.As[*world.Obstacle](o).Type == "crate" {
			crate = o
		}
	})
	g.NetSync()

	if err := g.DamageObstacle(crate.ID, 2); err != nil {
		t.Fatalf("damage: %v", err)
	}
	if world.As[*world.Obstacle](crate).Dead {
		t.Fatal("crate should survive partial damage")
	}
	before := g.Loot.Count()
	_ = g.DamageObstacle(crate.ID, 10)
	ob := world.As[*world.Obstacle](crate)
	if !ob.Dead || ob.Collidable {
		t.Fatalf("expected dead non-collidable crate, got=%+v", ob)
	}
	if !crate.FullDirty() {
		t.Fatal("destroyed crate should be resent in full")
	}
	if got := g.Loot.Count() - before; got != 3 {
		t.Fatalf("expected m9 with two ammo stacks, got=%d", got)
	}
}

func TestGame_StopClosesClients(t *testing.T) {
	g := newTestGame(t)
	c := &fakeClient{}
	g.Players.AddPlayer(c, 1, "a")
	g.Stop()
	if !c.closed || !g.Stopped() || g.CanJoin() {
		t.Fatalf("closed=%v stopped=%v", c.closed, g.Stopped())
	}
	if _, err := g.Players.AddPlayer(&fakeClient{}, 2, "b"); !errors.Is(err, ErrGameStopped) {
		t.Fatalf("expected ErrGameStopped, got=%v", err)
	}
}

func packetInput(codes ...uint8) *packet.InputMsg {
	in := packet.NewInputMsg()
	for _, c := range codes {
		in.AddInput(c)
	}
	return in
}
