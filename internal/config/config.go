package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath overrides the config file location.
const EnvPath = "ARENA_CONFIG"

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Network   NetworkConfig   `toml:"network"`
	Game      GameConfig      `toml:"game"`
	Scripting ScriptingConfig `toml:"scripting"`
	Logging   LoggingConfig   `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

type ServerConfig struct {
	Name       string `toml:"name"`
	MaxPlayers int    `toml:"max_players"`
	StartTime  int64  // set at boot, not from config
}

// DatabaseConfig is optional: an empty DSN disables the match archive.
type DatabaseConfig struct {
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	FlushEvery      time.Duration `toml:"flush_every"` // kill batch interval
}

type NetworkConfig struct {
	BindAddress  string        `toml:"bind_address"`
	Path         string        `toml:"path"`
	InQueueSize  int           `toml:"in_queue_size"`
	OutQueueSize int           `toml:"out_queue_size"`
	MaxMsgSize   int64         `toml:"max_msg_size"`
	WriteTimeout time.Duration `toml:"write_timeout"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
}

type GameConfig struct {
	TickRate         int           `toml:"tick_rate"` // ticks per second
	GridCellSize     float64       `toml:"grid_cell_size"`
	MapFile          string        `toml:"map_file"`
	DefsFile         string        `toml:"defs_file"`
	MaxInputsPerTick int           `toml:"max_inputs_per_tick"`
	PerfLogEnabled   bool          `toml:"perf_log_enabled"`
	PerfLogEvery     time.Duration `toml:"perf_log_every"`
	LootMaxObjects   int           `toml:"loot_max_objects"` // quadtree leaf capacity
	LootMaxLevels    int           `toml:"loot_max_levels"`
	SmokeGrowRate    float64       `toml:"smoke_grow_rate"` // radius units per second
}

type ScriptingConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type RateLimitConfig struct {
	Enabled          bool `toml:"enabled"`
	PacketsPerSecond int  `toml:"packets_per_second"`
	Burst            int  `toml:"burst"`
	JoinsPerMinute   int  `toml:"joins_per_minute"`
}

// TickPeriod is the target duration of one simulation tick.
func (g GameConfig) TickPeriod() time.Duration {
	if g.TickRate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(g.TickRate)
}

// Path returns the config file to load: $ARENA_CONFIG, else def.
func Path(def string) string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return def
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Game.TickRate <= 0 || c.Game.TickRate > 255 {
		return fmt.Errorf("game.tick_rate %d out of range 1..255", c.Game.TickRate)
	}
	if c.Game.GridCellSize <= 0 {
		return fmt.Errorf("game.grid_cell_size must be positive")
	}
	if c.Network.OutQueueSize <= 0 || c.Network.InQueueSize <= 0 {
		return fmt.Errorf("network queue sizes must be positive")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q: want json or console", c.Logging.Format)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:       "arenasync",
			MaxPlayers: 80,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			FlushEvery:      5 * time.Second,
		},
		Network: NetworkConfig{
			BindAddress:  "0.0.0.0:8001",
			Path:         "/play",
			InQueueSize:  64,
			OutQueueSize: 32,
			MaxMsgSize:   4096,
			WriteTimeout: 5 * time.Second,
			ReadTimeout:  30 * time.Second,
		},
		Game: GameConfig{
			TickRate:         30,
			GridCellSize:     16,
			MapFile:          "data/maps/main.yaml",
			DefsFile:         "data/defs/loot.yaml",
			MaxInputsPerTick: 8,
			PerfLogEnabled:   true,
			PerfLogEvery:     10 * time.Second,
			LootMaxObjects:   10,
			LootMaxLevels:    4,
			SmokeGrowRate:    2,
		},
		Scripting: ScriptingConfig{
			Enabled: true,
			Dir:     "scripts",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		RateLimit: RateLimitConfig{
			Enabled:          true,
			PacketsPerSecond: 60,
			Burst:            20,
			JoinsPerMinute:   10,
		},
	}
}
