package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Item classes. Loot radius and ammo spawning depend on the class.
const (
	ClassGun    = "gun"
	ClassAmmo   = "ammo"
	ClassHeal   = "heal"
	ClassBoost  = "boost"
	ClassThrow  = "throwable"
	ClassMelee  = "melee"
	ClassOutfit = "outfit"
	ClassPack   = "backpack"
)

// ItemDef is one entry of the game object vocabulary.
type ItemDef struct {
	Name           string `yaml:"name"`
	Class          string `yaml:"class"`
	Ammo           string `yaml:"ammo"`             // guns only
	AmmoSpawnCount int    `yaml:"ammo_spawn_count"` // guns only
	MaxStack       int    `yaml:"max_stack"`
}

type defsFile struct {
	LootRadius map[string]float64 `yaml:"loot_radius"`
	Items      []ItemDef          `yaml:"items"`
}

// DefTable holds item definitions keyed by name.
type DefTable struct {
	items      map[string]*ItemDef
	lootRadius map[string]float64
}

// LoadDefTable loads the item definition file.
func LoadDefTable(path string) (*DefTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read item defs: %w", err)
	}
	return ParseDefTable(raw)
}

// ParseDefTable builds a table from YAML bytes.
func ParseDefTable(raw []byte) (*DefTable, error) {
	var f defsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse item defs: %w", err)
	}
	t := &DefTable{
		items:      make(map[string]*ItemDef, len(f.Items)),
		lootRadius: f.LootRadius,
	}
	if t.lootRadius == nil {
		t.lootRadius = map[string]float64{}
	}
	for i := range f.Items {
		d := &f.Items[i]
		if d.Name == "" {
			return nil, fmt.Errorf("item defs: entry %d has no name", i)
		}
		if _, dup := t.items[d.Name]; dup {
			return nil, fmt.Errorf("item defs: duplicate item %q", d.Name)
		}
		t.items[d.Name] = d
	}
	for _, d := range t.items {
		if d.Class == ClassGun && d.Ammo != "" {
			if _, ok := t.items[d.Ammo]; !ok {
				return nil, fmt.Errorf("item defs: gun %q uses unknown ammo %q", d.Name, d.Ammo)
			}
		}
	}
	return t, nil
}

// Get returns the definition for name, or nil.
func (t *DefTable) Get(name string) *ItemDef {
	return t.items[name]
}

// LootRadius is the pickup radius of a dropped item of name's class.
func (t *DefTable) LootRadius(name string) float64 {
	if d := t.items[name]; d != nil {
		if r, ok := t.lootRadius[d.Class]; ok {
			return r
		}
	}
	return 1
}

// Names returns every item name, sorted.
func (t *DefTable) Names() []string {
	names := make([]string, 0, len(t.items))
	for n := range t.items {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (t *DefTable) Count() int {
	return len(t.items)
}
