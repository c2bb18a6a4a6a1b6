package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// PrimaryEquipSlot is the inventory slot whose item drives melee damage.
const PrimaryEquipSlot = "inventory-equip-1"

const (
	AttackMelee = "melee"
	AttackMagic = "magic"
)

type Catalogs struct {
	Characters map[string]CharacterModel
	Weapons    map[string]Weapon

	// Digest of the raw source, empty for built-in defaults.
	Digest string
}

type CharacterModel struct {
	Name      string            `yaml:"name" json:"name"`
	Stats     Stats             `yaml:"stats" json:"stats"`
	Inventory map[string]string `yaml:"inventory" json:"inventory"`
	Attack    Attack            `yaml:"attack" json:"attack"`
}

type Stats struct {
	Health     float64 `yaml:"health" json:"health" msgpack:"health"`
	Strength   float64 `yaml:"strength" json:"strength" msgpack:"strength"`
	Wisdomness float64 `yaml:"wisdomness" json:"wisdomness" msgpack:"wisdomness"`
}

type Attack struct {
	Type     string  `yaml:"type" json:"type"`
	Range    float64 `yaml:"range" json:"range"`
	Timing   float64 `yaml:"timing" json:"timing"`     // seconds until the hit lands
	Cooldown float64 `yaml:"cooldown" json:"cooldown"` // seconds the action occupies
}

type Weapon struct {
	Name   string  `yaml:"name" json:"name"`
	Damage float64 `yaml:"damage" json:"damage"`
}

type file struct {
	Characters map[string]CharacterModel `yaml:"characters"`
	Weapons    map[string]Weapon         `yaml:"weapons"`
}

// Load reads characters.yaml from configDir.
func Load(configDir string) (*Catalogs, error) {
	path := filepath.Join(configDir, "characters.yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalogs, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("characters.yaml: %w", err)
	}
	if len(f.Characters) == 0 {
		return nil, fmt.Errorf("characters.yaml: no characters")
	}
	for id, m := range f.Characters {
		if err := m.validate(); err != nil {
			return nil, fmt.Errorf("characters.yaml: %s: %w", id, err)
		}
	}
	c := &Catalogs{
		Characters: f.Characters,
		Weapons:    f.Weapons,
		Digest:     sha256Hex(raw),
	}
	if c.Weapons == nil {
		c.Weapons = map[string]Weapon{}
	}
	return c, nil
}

func (m CharacterModel) validate() error {
	if m.Stats.Health <= 0 {
		return fmt.Errorf("stats.health must be positive")
	}
	switch m.Attack.Type {
	case AttackMelee, AttackMagic:
	default:
		return fmt.Errorf("unknown attack type %q", m.Attack.Type)
	}
	if m.Attack.Cooldown <= 0 || m.Attack.Timing < 0 || m.Attack.Timing > m.Attack.Cooldown {
		return fmt.Errorf("attack timing %.2f must fall within cooldown %.2f", m.Attack.Timing, m.Attack.Cooldown)
	}
	return nil
}

// Model returns the character model for class.
func (c *Catalogs) Model(class string) (CharacterModel, bool) {
	m, ok := c.Characters[class]
	return m, ok
}

// Classes returns all character classes, sorted.
func (c *Catalogs) Classes() []string {
	out := make([]string, 0, len(c.Characters))
	for k := range c.Characters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Defaults is the built-in roster used when no characters.yaml is present.
func Defaults() *Catalogs {
	return &Catalogs{
		Characters: map[string]CharacterModel{
			"paladin": {
				Name:      "Paladin",
				Stats:     Stats{Health: 200, Strength: 50, Wisdomness: 5},
				Inventory: map[string]string{PrimaryEquipSlot: "weapon-sword1"},
				Attack:    Attack{Type: AttackMelee, Range: 10, Timing: 0.7, Cooldown: 1.0},
			},
			"sorceror": {
				Name:      "Sorceror",
				Stats:     Stats{Health: 100, Strength: 10, Wisdomness: 200},
				Inventory: map[string]string{},
				Attack:    Attack{Type: AttackMagic, Range: 40, Timing: 0.35, Cooldown: 1.5},
			},
			"warrok": {
				Name:      "Warrok",
				Stats:     Stats{Health: 125, Strength: 30, Wisdomness: 5},
				Inventory: map[string]string{},
				Attack:    Attack{Type: AttackMelee, Range: 10, Timing: 1.25, Cooldown: 3.5},
			},
			"zombie": {
				Name:      "Zombie",
				Stats:     Stats{Health: 50, Strength: 12, Wisdomness: 2},
				Inventory: map[string]string{},
				Attack:    Attack{Type: AttackMelee, Range: 10, Timing: 0.6, Cooldown: 2.0},
			},
		},
		Weapons: map[string]Weapon{
			"weapon-axe1":   {Name: "Axe", Damage: 3},
			"weapon-sword1": {Name: "Sword", Damage: 2},
			"weapon-hammer": {Name: "Hammer", Damage: 4},
		},
	}
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
