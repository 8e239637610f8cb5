package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/arenasync/server/internal/config"
	"github.com/arenasync/server/internal/core/event"
	coresys "github.com/arenasync/server/internal/core/system"
	"github.com/arenasync/server/internal/data"
	"github.com/arenasync/server/internal/game"
	"github.com/arenasync/server/internal/handler"
	gonet "github.com/arenasync/server/internal/net"
	"github.com/arenasync/server/internal/net/packet"
	"github.com/arenasync/server/internal/persist"
	"github.com/arenasync/server/internal/scripting"
	"github.com/arenasync/server/internal/system"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var numbers = message.NewPrinter(language.English)

func printBanner(serverName string, maxPlayers int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            arenasync  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      authoritative world sync server      \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(max players: %d)\033[0m\n\n", serverName, maxPlayers)
}

func printSection(title string) {
	lineLen := max(46-utf8.RuneCountInString(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := numbers.Sprintf("%d", count)
	dotsLen := max(42-utf8.RuneCountInString(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path("config/server.toml"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.MaxPlayers)

	// 3. Static data
	printSection("data")
	defs, err := data.LoadDefTable(cfg.Game.DefsFile)
	if err != nil {
		return fmt.Errorf("item defs: %w", err)
	}
	printStat("item definitions", defs.Count())
	mapDef, err := data.LoadMapDef(cfg.Game.MapFile)
	if err != nil {
		return fmt.Errorf("map: %w", err)
	}
	printStat("obstacles", len(mapDef.Obstacles))
	printStat("buildings", len(mapDef.Buildings))
	printStat("placed loot", len(mapDef.Loot))
	types := data.BuildTypes(defs, mapDef)
	printStat("wire type names", types.Game.Len()+types.Map.Len())
	fmt.Println()

	// 4. Match
	printSection("match")
	bus := event.NewBus()
	g, err := game.New(game.Options{
		Config:     cfg.Game,
		MaxPlayers: cfg.Server.MaxPlayers,
		Defs:       defs,
		Map:        mapDef,
		Types:      types,
		Bus:        bus,
		Log:        log,
	})
	if err != nil {
		return fmt.Errorf("game: %w", err)
	}
	printOK(fmt.Sprintf("map %q %gx%g seed %d", mapDef.Name, mapDef.Width, mapDef.Height, mapDef.Seed))
	printStat("live objects", g.Register().Len())

	var luaEngine *scripting.Engine
	if cfg.Scripting.Enabled {
		luaEngine, err = scripting.NewEngine(cfg.Scripting.Dir, g, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer luaEngine.Close()
		for _, h := range []string{scripting.HookGameCreated, scripting.HookPlayerJoined, scripting.HookPlayerLeft, scripting.HookPlayerKilled} {
			printStat("lua "+h+" hooks", luaEngine.HookCount(h))
		}
	}
	fmt.Println()

	// 5. Optional match archive
	var archive system.KillArchive
	var match *persist.Match
	if cfg.Database.DSN != "" {
		printSection("database")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")

		match, err = persist.NewMatchRepo(db).StartMatch(ctx, cfg.Server.Name, mapDef.Name, int64(mapDef.Seed))
		if err != nil {
			return fmt.Errorf("match archive: %w", err)
		}
		archive = match
		printOK(fmt.Sprintf("archiving as match %d", match.ID))
		fmt.Println()
	}

	// 6. Handlers and network server
	pktReg := packet.NewRegistry(types, log)
	handler.RegisterAll(pktReg, &handler.Deps{Game: g, Log: log})

	netServer, err := gonet.NewServer(cfg.Network, cfg.RateLimit, log)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go netServer.AcceptLoop()

	// 7. Create systems and register with runner
	tick := cfg.Game.TickPeriod()
	store := gonet.NewSessionStore()
	cmds := game.NewCommandQueue(64)

	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(netServer, pktReg, store, g, cfg.Game.MaxInputsPerTick, log))
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewCommandSystem(cmds, g, log))
	runner.Register(system.NewUpdateSystem(g))
	runner.Register(system.NewOutputSystem(g, store))
	var persistSys *system.PersistenceSystem
	if archive != nil {
		persistSys = system.NewPersistenceSystem(bus, archive, log, int(cfg.Database.FlushEvery/tick))
		runner.Register(persistSys)
	}
	runner.Register(system.NewCleanupSystem(store))

	if luaEngine != nil {
		luaEngine.Start()
	}
	go game.ReadConsole(os.Stdin, cmds, log)

	// 8. Start game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	printSection("ready")
	printReady(fmt.Sprintf("listening on ws://%s%s", netServer.Addr().String(), cfg.Network.Path))
	printReady(fmt.Sprintf("game loop started (tick: %s, %d systems)", tick, runner.Len()))
	fmt.Println()

	perf := game.NewPerf(cfg.Game.PerfLogEnabled, cfg.Game.PerfLogEvery, tick, log)
	peak := 0

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			runner.Tick(tick)
			perf.Record(time.Since(start), tick)
			peak = max(peak, g.Players.Count())
			if g.Stopped() && store.Count() == 0 {
				log.Info("match over, all clients gone")
				shutdown(g, netServer, persistSys, match, peak, log)
				return nil
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			shutdown(g, netServer, persistSys, match, peak, log)
			return nil
		}
	}
}

// shutdown stops the match, flushes the archive and closes the listener.
func shutdown(g *game.Game, srv *gonet.Server, ps *system.PersistenceSystem, match *persist.Match, peak int, log *zap.Logger) {
	if !g.Stopped() {
		g.Stop()
	}
	srv.Shutdown()
	if ps != nil {
		ps.Flush()
	}
	if match != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := match.End(ctx, g.Tick(), peak); err != nil {
			log.Error("close match archive", zap.Error(err))
		}
	}
	log.Info("server stopped", zap.Uint64("ticks", g.Tick()))
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
