package game

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/arenasync/server/internal/data"
	"github.com/arenasync/server/internal/geom"
	"github.com/arenasync/server/internal/world"
)

var ErrBadCommand = errors.New("game: bad command")

// Command is an operator action against a running match. Commands run on
// the game loop goroutine; other goroutines hand them over via a
// CommandQueue.
type Command interface {
	Name() string
	Run(g *Game) (string, error)
}

// SpawnLoot drops Count of Item at Pos. Ammo beyond one stack is split.
type SpawnLoot struct {
	Item  string
	Pos   geom.Vec2
	Count int
}

func (SpawnLoot) Name() string { return "loot" }

func (c SpawnLoot) Run(g *Game) (string, error) {
	def := g.defs.Get(c.Item)
	if def == nil {
		return "", fmt.Errorf("%s: %w", c.Item, ErrUnknownItem)
	}
	count := max(c.Count, 1)
	if def.Class == data.ClassAmmo && count > lootStackSize {
		if err := g.Loot.SplitUpLoot(c.Item, c.Pos, 0, count, geom.Vec2{}); err != nil {
			return "", err
		}
		return fmt.Sprintf("split %d %s into stacks", count, c.Item), nil
	}
	o, err := g.Loot.AddLoot(c.Item, c.Pos, 0, count, LootOpts{PushSpeed: lootDefaultPush})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("loot %d: %d %s", o.ID, count, c.Item), nil
}

type SpawnSmoke struct {
	Pos geom.Vec2
}

func (SpawnSmoke) Name() string { return "smoke" }

func (c SpawnSmoke) Run(g *Game) (string, error) {
	o, err := g.Smokes.AddSmoke(c.Pos, 0, 0)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("smoke %d", o.ID), nil
}

type KillPlayer struct {
	Target world.ObjectID
	Killer world.ObjectID
}

func (KillPlayer) Name() string { return "kill" }

func (c KillPlayer) Run(g *Game) (string, error) {
	if err := g.KillPlayer(c.Target, c.Killer, 0, ""); err != nil {
		return "", err
	}
	return fmt.Sprintf("killed %d", c.Target), nil
}

type DestroyObstacle struct {
	ID world.ObjectID
}

func (DestroyObstacle) Name() string { return "destroy" }

func (c DestroyObstacle) Run(g *Game) (string, error) {
	if err := g.DamageObstacle(c.ID, 1e9); err != nil {
		return "", err
	}
	return fmt.Sprintf("destroyed %d", c.ID), nil
}

type Resync struct{}

func (Resync) Name() string { return "resync" }

func (Resync) Run(g *Game) (string, error) {
	g.Resync()
	return fmt.Sprintf("full resync of %d objects", g.reg.Len()), nil
}

type ShowStats struct{}

func (ShowStats) Name() string { return "stats" }

func (ShowStats) Run(g *Game) (string, error) {
	st := g.Stats()
	return fmt.Sprintf("tick=%d players=%d alive=%d loot=%d smokes=%d live=%d pool=%d",
		st.Tick, st.Players, st.Alive, st.Loot, st.Smokes, st.Live, st.PoolSlots), nil
}

type StopGame struct{}

func (StopGame) Name() string { return "stop" }

func (StopGame) Run(g *Game) (string, error) {
	g.Stop()
	return "game stopped", nil
}

// ParseCommand parses one console line, e.g. "loot 9mm 100 120 30".
func ParseCommand(line string) (Command, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty line: %w", ErrBadCommand)
	}
	name := strings.ToLower(parts[0])
	args := parts[1:]

	switch name {
	case "loot":
		if len(args) < 3 {
			return nil, fmt.Errorf("usage: loot <item> <x> <y> [count]: %w", ErrBadCommand)
		}
		pos, err := parseVec(args[1], args[2])
		if err != nil {
			return nil, err
		}
		count := 1
		if len(args) > 3 {
			if count, err = strconv.Atoi(args[3]); err != nil {
				return nil, fmt.Errorf("count %q: %w", args[3], ErrBadCommand)
			}
		}
		return SpawnLoot{Item: args[0], Pos: pos, Count: count}, nil
	case "smoke":
		if len(args) < 2 {
			return nil, fmt.Errorf("usage: smoke <x> <y>: %w", ErrBadCommand)
		}
		pos, err := parseVec(args[0], args[1])
		if err != nil {
			return nil, err
		}
		return SpawnSmoke{Pos: pos}, nil
	case "kill":
		if len(args) < 1 {
			return nil, fmt.Errorf("usage: kill <player> [killer]: %w", ErrBadCommand)
		}
		target, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		var killer world.ObjectID
		if len(args) > 1 {
			if killer, err = parseID(args[1]); err != nil {
				return nil, err
			}
		}
		return KillPlayer{Target: target, Killer: killer}, nil
	case "destroy":
		if len(args) < 1 {
			return nil, fmt.Errorf("usage: destroy <obstacle>: %w", ErrBadCommand)
		}
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return DestroyObstacle{ID: id}, nil
	case "resync":
		return Resync{}, nil
	case "stats":
		return ShowStats{}, nil
	case "stop":
		return StopGame{}, nil
	default:
		return nil, fmt.Errorf("unknown command %q: %w", name, ErrBadCommand)
	}
}

func parseVec(xs, ys string) (geom.Vec2, error) {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return geom.Vec2{}, fmt.Errorf("x %q: %w", xs, ErrBadCommand)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return geom.Vec2{}, fmt.Errorf("y %q: %w", ys, ErrBadCommand)
	}
	return geom.V(x, y), nil
}

func parseID(s string) (world.ObjectID, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("id %q: %w", s, ErrBadCommand)
	}
	return world.ObjectID(n), nil
}
