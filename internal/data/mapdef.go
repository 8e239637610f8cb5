package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/arenasync/server/internal/geom"
)

// ObstacleType describes a kind of static obstacle. Exactly one of Radius
// (circle) or HalfExtents (box) is set.
type ObstacleType struct {
	Radius      float64    `yaml:"radius"`
	HalfExtents [2]float64 `yaml:"half_extents"`
	Health      float64    `yaml:"health"`
	Collidable  *bool      `yaml:"collidable"`
	Loot        []LootDrop `yaml:"loot"`
}

// IsCollidable defaults to true when the field is omitted.
func (o *ObstacleType) IsCollidable() bool {
	return o.Collidable == nil || *o.Collidable
}

// Collider returns the world space collider of an instance at pos.
func (o *ObstacleType) Collider(pos geom.Vec2, scale float64) geom.Collider {
	if o.Radius > 0 {
		return geom.CircleCollider(pos, o.Radius*scale)
	}
	ext := geom.V(o.HalfExtents[0]*scale, o.HalfExtents[1]*scale)
	return geom.BoxCollider(geom.Extents(pos, ext))
}

// Extent is the half size of the bounding box at scale.
func (o *ObstacleType) Extent(scale float64) geom.Vec2 {
	if o.Radius > 0 {
		return geom.V(o.Radius*scale, o.Radius*scale)
	}
	return geom.V(o.HalfExtents[0]*scale, o.HalfExtents[1]*scale)
}

// LootDrop is an item an obstacle leaves behind when destroyed.
type LootDrop struct {
	Type  string `yaml:"type"`
	Count int    `yaml:"count"`
}

type BuildingType struct {
	HalfExtents [2]float64 `yaml:"half_extents"`
}

// Placement is one static object on the map.
type Placement struct {
	Type  string     `yaml:"type"`
	Pos   [2]float64 `yaml:"pos"`
	Ori   uint8      `yaml:"ori"`
	Scale float64    `yaml:"scale"`
}

func (p Placement) Vec() geom.Vec2 { return geom.V(p.Pos[0], p.Pos[1]) }

// LootSpawn is loot placed on the ground at match start.
type LootSpawn struct {
	Type  string     `yaml:"type"`
	Pos   [2]float64 `yaml:"pos"`
	Count int        `yaml:"count"`
}

// MapDef is the static map: dimensions, type tables and placements.
type MapDef struct {
	Name          string                   `yaml:"name"`
	Seed          uint32                   `yaml:"seed"`
	Width         float64                  `yaml:"width"`
	Height        float64                  `yaml:"height"`
	SpawnPoints   [][2]float64             `yaml:"spawn_points"`
	ObstacleTypes map[string]*ObstacleType `yaml:"obstacle_types"`
	BuildingTypes map[string]*BuildingType `yaml:"building_types"`
	Obstacles     []Placement              `yaml:"obstacles"`
	Buildings     []Placement              `yaml:"buildings"`
	Loot          []LootSpawn              `yaml:"loot"`
}

// LoadMapDef loads and validates a map file.
func LoadMapDef(path string) (*MapDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	return ParseMapDef(raw)
}

func ParseMapDef(raw []byte) (*MapDef, error) {
	var m MapDef
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse map: %w", err)
	}
	if m.Width <= 0 || m.Height <= 0 {
		return nil, fmt.Errorf("map %q: width and height must be positive", m.Name)
	}
	for i := range m.Obstacles {
		p := &m.Obstacles[i]
		if _, ok := m.ObstacleTypes[p.Type]; !ok {
			return nil, fmt.Errorf("map %q: obstacle %d has unknown type %q", m.Name, i, p.Type)
		}
		if p.Scale == 0 {
			p.Scale = 1
		}
	}
	for i, p := range m.Buildings {
		if _, ok := m.BuildingTypes[p.Type]; !ok {
			return nil, fmt.Errorf("map %q: building %d has unknown type %q", m.Name, i, p.Type)
		}
	}
	return &m, nil
}

// Bounds is the playable area.
func (m *MapDef) Bounds() geom.AABB {
	return geom.AABB{Max: geom.V(m.Width, m.Height)}
}

// MapTypeNames returns every obstacle and building type name, sorted.
func (m *MapDef) MapTypeNames() []string {
	names := make([]string, 0, len(m.ObstacleTypes)+len(m.BuildingTypes))
	for n := range m.ObstacleTypes {
		names = append(names, n)
	}
	for n := range m.BuildingTypes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks loot references against the item table.
func (m *MapDef) Validate(defs *DefTable) error {
	for i, l := range m.Loot {
		if defs.Get(l.Type) == nil {
			return fmt.Errorf("map %q: loot %d has unknown item %q", m.Name, i, l.Type)
		}
	}
	for name, ot := range m.ObstacleTypes {
		for _, d := range ot.Loot {
			if defs.Get(d.Type) == nil {
				return fmt.Errorf("map %q: obstacle type %q drops unknown item %q", m.Name, name, d.Type)
			}
		}
	}
	return nil
}
