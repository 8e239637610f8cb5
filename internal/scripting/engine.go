package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/arenasync/server/internal/core/event"
	"github.com/arenasync/server/internal/game"
	"github.com/arenasync/server/internal/geom"
	"github.com/arenasync/server/internal/world"
)

// Hook names scripts can register with arena.on.
const (
	HookGameCreated  = "game_created"
	HookPlayerJoined = "player_joined"
	HookPlayerLeft   = "player_left"
	HookPlayerKilled = "player_killed"
)

var knownHooks = map[string]bool{
	HookGameCreated:  true,
	HookPlayerJoined: true,
	HookPlayerLeft:   true,
	HookPlayerKilled: true,
}

// Engine wraps a single gopher-lua VM for match plugins.
// Single-goroutine access only (game loop): hooks fire from bus dispatch.
type Engine struct {
	vm    *lua.LState
	game  *game.Game
	hooks map[string][]*lua.LFunction
	log   *zap.Logger
}

// NewEngine creates a Lua engine bound to g and loads all scripts from the
// given directory. Call Start once the match is ready.
func NewEngine(scriptsDir string, g *game.Game, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{
		vm:    vm,
		game:  g,
		hooks: make(map[string][]*lua.LFunction),
		log:   log.With(zap.String("component", "lua")),
	}
	vm.SetGlobal("arena", e.module())

	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}

	bus := g.Bus()
	event.Subscribe(bus, func(ev event.PlayerJoined) {
		t := vm.NewTable()
		t.RawSetString("id", lua.LNumber(ev.PlayerID))
		t.RawSetString("name", lua.LString(ev.Name))
		e.fire(HookPlayerJoined, t)
	})
	event.Subscribe(bus, func(ev event.PlayerLeft) {
		t := vm.NewTable()
		t.RawSetString("id", lua.LNumber(ev.PlayerID))
		e.fire(HookPlayerLeft, t)
	})
	event.Subscribe(bus, func(ev event.PlayerKilled) {
		t := vm.NewTable()
		t.RawSetString("target", lua.LNumber(ev.TargetID))
		t.RawSetString("target_name", lua.LString(ev.TargetName))
		t.RawSetString("killer", lua.LNumber(ev.KillerID))
		t.RawSetString("killer_name", lua.LString(ev.KillerName))
		t.RawSetString("killer_kills", lua.LNumber(ev.KillerKills))
		t.RawSetString("damage_type", lua.LNumber(ev.DamageType))
		t.RawSetString("source", lua.LString(ev.ItemSource))
		e.fire(HookPlayerKilled, t)
	})
	return e, nil
}

// loadDir loads all .lua files in a directory in name order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Start fires game_created. The map is spawned by then.
func (e *Engine) Start() {
	m := e.game.Map()
	t := e.vm.NewTable()
	t.RawSetString("map", lua.LString(m.Name))
	t.RawSetString("width", lua.LNumber(m.Width))
	t.RawSetString("height", lua.LNumber(m.Height))
	t.RawSetString("seed", lua.LNumber(m.Seed))
	e.fire(HookGameCreated, t)
}

// HookCount returns the number of Lua callbacks registered for name.
func (e *Engine) HookCount(name string) int { return len(e.hooks[name]) }

func (e *Engine) fire(name string, arg lua.LValue) {
	for _, fn := range e.hooks[name] {
		if err := e.vm.CallByParam(lua.P{
			Fn:      fn,
			NRet:    0,
			Protect: true,
		}, arg); err != nil {
			e.log.Error("lua hook error", zap.String("hook", name), zap.Error(err))
		}
	}
}

// module builds the arena table exposed to scripts.
func (e *Engine) module() *lua.LTable {
	return e.vm.SetFuncs(e.vm.NewTable(), map[string]lua.LGFunction{
		"on":               e.luaOn,
		"log":              e.luaLog,
		"spawn_loot":       e.luaSpawnLoot,
		"spawn_smoke":      e.luaSpawnSmoke,
		"kill_player":      e.luaKillPlayer,
		"destroy_obstacle": e.luaDestroyObstacle,
		"resync":           e.luaResync,
		"player_count":     e.luaPlayerCount,
		"alive_count":      e.luaAliveCount,
		"tick":             e.luaTick,
	})
}

// arena.on(name, fn)
func (e *Engine) luaOn(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	if !knownHooks[name] {
		L.ArgError(1, "unknown hook "+name)
		return 0
	}
	e.hooks[name] = append(e.hooks[name], fn)
	return 0
}

// arena.log(msg)
func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info(L.CheckString(1))
	return 0
}

// arena.spawn_loot(item, x, y [, count]) -> message or nil, err
func (e *Engine) luaSpawnLoot(L *lua.LState) int {
	return e.run(L, game.SpawnLoot{
		Item:  L.CheckString(1),
		Pos:   checkVec(L, 2),
		Count: L.OptInt(4, 1),
	})
}

// arena.spawn_smoke(x, y)
func (e *Engine) luaSpawnSmoke(L *lua.LState) int {
	return e.run(L, game.SpawnSmoke{Pos: checkVec(L, 1)})
}

// arena.kill_player(target [, killer])
func (e *Engine) luaKillPlayer(L *lua.LState) int {
	return e.run(L, game.KillPlayer{
		Target: world.ObjectID(L.CheckInt(1)),
		Killer: world.ObjectID(L.OptInt(2, 0)),
	})
}

// arena.destroy_obstacle(id)
func (e *Engine) luaDestroyObstacle(L *lua.LState) int {
	return e.run(L, game.DestroyObstacle{ID: world.ObjectID(L.CheckInt(1))})
}

func (e *Engine) luaResync(L *lua.LState) int {
	return e.run(L, game.Resync{})
}

func (e *Engine) luaPlayerCount(L *lua.LState) int {
	L.Push(lua.LNumber(e.game.Players.Count()))
	return 1
}

func (e *Engine) luaAliveCount(L *lua.LState) int {
	L.Push(lua.LNumber(e.game.Players.AliveCount()))
	return 1
}

func (e *Engine) luaTick(L *lua.LState) int {
	L.Push(lua.LNumber(e.game.Tick()))
	return 1
}

// run executes cmd and returns (result) or (nil, error) to Lua.
func (e *Engine) run(L *lua.LState, cmd game.Command) int {
	out, err := cmd.Run(e.game)
	if err != nil {
		e.log.Warn("lua command failed", zap.String("cmd", cmd.Name()), zap.Error(err))
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(out))
	return 1
}

func checkVec(L *lua.LState, at int) geom.Vec2 {
	return geom.V(float64(L.CheckNumber(at)), float64(L.CheckNumber(at+1)))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
