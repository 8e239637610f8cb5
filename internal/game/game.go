package game

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/arenasync/server/internal/config"
	"github.com/arenasync/server/internal/core/event"
	"github.com/arenasync/server/internal/data"
	"github.com/arenasync/server/internal/net/packet"
	"github.com/arenasync/server/internal/spatial"
	"github.com/arenasync/server/internal/world"
)

var (
	ErrGameFull    = errors.New("game: no free player slots")
	ErrGameStopped = errors.New("game: stopped")
	ErrNoPlayer    = errors.New("game: no such player")
	ErrUnknownItem = errors.New("game: unknown item type")
)

// Client is the outbound half of a connection as the game sees it.
// *net.Session satisfies it.
type Client interface {
	Send(data []byte)
	Close()
}

// flusher is a Client that buffers sends until flushed.
type flusher interface {
	FlushOutput()
}

// Options wires a Game to its static data and collaborators.
type Options struct {
	Config     config.GameConfig
	MaxPlayers int
	Defs       *data.DefTable
	Map        *data.MapDef
	Types      *packet.Types
	Bus        *event.Bus
	Log        *zap.Logger
	Seed       int64
}

// Game is one running match. Every method runs on the game loop goroutine.
type Game struct {
	cfg        config.GameConfig
	maxPlayers int
	defs       *data.DefTable
	mapDef     *data.MapDef
	types      *packet.Types
	bus        *event.Bus
	log        *zap.Logger
	rng        *rand.Rand

	reg *world.Register

	msgs    *packet.MsgStream // Update plus broadcasts, one write per tick
	pending *packet.MsgStream // broadcasts queued during the tick
	direct  *packet.MsgStream // scratch for per-client messages

	Players *PlayerBarn
	Loot    *LootBarn
	Smokes  *SmokeBarn

	mapMsg  *packet.MapMsg
	tick    uint64
	stopped bool
}

// New builds the match: register, grid, barns, and every static map object.
func New(opts Options) (*Game, error) {
	if opts.Defs == nil || opts.Map == nil {
		return nil, fmt.Errorf("game: defs and map are required")
	}
	if err := opts.Map.Validate(opts.Defs); err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	types := opts.Types
	if types == nil {
		types = data.BuildTypes(opts.Defs, opts.Map)
	}
	bus := opts.Bus
	if bus == nil {
		bus = event.NewBus()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = int64(opts.Map.Seed)
	}

	grid := spatial.NewGrid[world.ObjectID](opts.Map.Width, opts.Map.Height, opts.Config.GridCellSize)
	reg := world.NewRegister(grid, log.Named("register"))
	world.RegisterKinds(reg)

	g := &Game{
		cfg:        opts.Config,
		maxPlayers: opts.MaxPlayers,
		defs:       opts.Defs,
		mapDef:     opts.Map,
		types:      types,
		bus:        bus,
		log:        log,
		rng:        rand.New(rand.NewSource(seed)),
		reg:        reg,
		msgs:       packet.NewMsgStream(4096, types),
		pending:    packet.NewMsgStream(512, types),
		direct:     packet.NewMsgStream(1024, types),
	}
	g.Players = newPlayerBarn(g)
	g.Loot = newLootBarn(g)
	g.Smokes = newSmokeBarn(g)

	start := time.Now()
	if err := g.spawnMap(); err != nil {
		return nil, err
	}
	// The map never changes after spawn, so clients share one message.
	g.mapMsg = g.buildMapMsg()
	log.Info("game created",
		zap.String("map", opts.Map.Name),
		zap.Int("objects", reg.Len()),
		zap.Duration("took", time.Since(start)),
	)
	return g, nil
}

// Update advances the simulation by dt.
func (g *Game) Update(dt time.Duration) {
	if g.stopped {
		return
	}
	g.tick++
	sec := dt.Seconds()
	g.Players.update(sec)
	g.Loot.update(sec)
	g.Smokes.update(sec)
}

// NetSync serializes the tick's Update message followed by the queued
// broadcasts, hands the buffer to every joined client, then clears the
// dirty state and rewinds the streams. Clients copy on Send, so the shared
// buffer can be reused immediately.
func (g *Game) NetSync() {
	g.msgs.SerializeMsg(packet.MsgUpdate, g.reg)
	if g.pending.Len() > 0 {
		g.msgs.Stream().WriteBytes(g.pending.Bytes())
	}
	buf := g.msgs.Bytes()
	g.Players.eachClient(func(c Client) {
		c.Send(buf)
	})

	g.reg.Flush()
	g.msgs.Reset()
	g.pending.Reset()
}

// SendMsg queues a message for every joined client in this tick's batch.
func (g *Game) SendMsg(t packet.MsgType, msg packet.Serializer) {
	g.pending.SerializeMsg(t, msg)
}

// SendTo writes one message straight to c, outside the tick batch.
func (g *Game) SendTo(c Client, t packet.MsgType, msg packet.Serializer) {
	g.direct.SerializeMsg(t, msg)
	c.Send(g.direct.Bytes())
	g.direct.Reset()
}

// Resync makes the next Update carry every live object in full.
func (g *Game) Resync() {
	g.reg.FullResync()
}

// CanJoin reports whether a new player would be accepted.
func (g *Game) CanJoin() bool {
	if g.stopped {
		return false
	}
	return g.maxPlayers <= 0 || g.Players.AliveCount() < g.maxPlayers
}

// Stop ends the match and closes every client.
func (g *Game) Stop() {
	if g.stopped {
		return
	}
	g.stopped = true
	g.Players.eachClient(func(c Client) {
		g.SendTo(c, packet.MsgDisconnect, &packet.DisconnectMsg{Reason: "game_over"})
		if f, ok := c.(flusher); ok {
			f.FlushOutput()
		}
		c.Close()
	})
	g.log.Info("game stopped", zap.Uint64("ticks", g.tick))
}

func (g *Game) Register() *world.Register { return g.reg }
func (g *Game) Types() *packet.Types      { return g.types }
func (g *Game) Defs() *data.DefTable      { return g.defs }
func (g *Game) Map() *data.MapDef         { return g.mapDef }
func (g *Game) Bus() *event.Bus           { return g.bus }
func (g *Game) Tick() uint64              { return g.tick }
func (g *Game) Stopped() bool             { return g.stopped }
func (g *Game) TickRate() int             { return g.cfg.TickRate }

// Stats summarizes the match for the console and perf lines.
type Stats struct {
	Tick    uint64
	Players int
	Alive   int
	Loot    int
	Smokes  int
	world.Stats
}

func (g *Game) Stats() Stats {
	return Stats{
		Tick:    g.tick,
		Players: g.Players.Count(),
		Alive:   g.Players.AliveCount(),
		Loot:    g.Loot.Count(),
		Smokes:  g.Smokes.Count(),
		Stats:   g.reg.Stats(),
	}
}
