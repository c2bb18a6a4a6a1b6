package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds every world tunable. Zero values are replaced by Defaults()
// when the file is loaded, so a partial tuning.yaml is valid.
type Tuning struct {
	// Scheduler.
	TickMinDelayMs int     `yaml:"tick_min_delay_ms"`
	MaxTickDelta   float64 `yaml:"max_tick_delta"` // seconds; 0 disables the clamp
	SyncInterval   float64 `yaml:"sync_interval"`  // seconds between AOI broadcasts

	// Radii (world units).
	AOIRadius         float64 `yaml:"aoi_radius"`
	ChatRadius        float64 `yaml:"chat_radius"`
	InventoryRadius   float64 `yaml:"inventory_radius"`
	AttackQueryRadius float64 `yaml:"attack_query_radius"`
	ClientSize        float64 `yaml:"client_size"`

	// Lifecycle (seconds).
	PlayerTimeout   float64 `yaml:"player_timeout"`
	MobileTimeout   float64 `yaml:"mobile_timeout"`
	MobileDeathTime float64 `yaml:"mobile_death_time"`

	AI AI `yaml:"ai"`

	Grid    Grid    `yaml:"grid"`
	Terrain Terrain `yaml:"terrain"`
	Spawns  Spawns  `yaml:"spawns"`
	Login   Login   `yaml:"login"`
}

type AI struct {
	ScanInterval   float64 `yaml:"scan_interval"`
	ScanRadius     float64 `yaml:"scan_radius"`
	MoveSpeed      float64 `yaml:"move_speed"`
	AttackDistance float64 `yaml:"attack_distance"`
	GiveUpDistance float64 `yaml:"give_up_distance"`
}

type Grid struct {
	Min  [2]float64 `yaml:"min"`
	Max  [2]float64 `yaml:"max"`
	Dims [2]int     `yaml:"dims"`
}

type Terrain struct {
	Seed        int64   `yaml:"seed"`
	Octaves     int     `yaml:"octaves"`
	Persistence float64 `yaml:"persistence"`
	Lacunarity  float64 `yaml:"lacunarity"`
	Scale       float64 `yaml:"scale"`
	Height      float64 `yaml:"height"`
	Exponent    float64 `yaml:"exponent"`
}

type Spawns struct {
	Seed        int64    `yaml:"seed"`
	GridExtent  int      `yaml:"grid_extent"`
	GridSpacing float64  `yaml:"grid_spacing"`
	Probability float64  `yaml:"probability"`
	Classes     []string `yaml:"classes"`
}

type Login struct {
	Classes []string   `yaml:"classes"`
	Center  [2]float64 `yaml:"center"`
	Spread  float64    `yaml:"spread"`
}

func Defaults() Tuning {
	var t Tuning
	t.ApplyDefaults()
	return t
}

func (t *Tuning) ApplyDefaults() {
	if t.TickMinDelayMs <= 0 {
		t.TickMinDelayMs = 1
	}
	if t.MaxTickDelta < 0 {
		t.MaxTickDelta = 0
	}
	if t.SyncInterval <= 0 {
		t.SyncInterval = 0.1
	}
	if t.AOIRadius <= 0 {
		t.AOIRadius = 500
	}
	if t.ChatRadius <= 0 {
		t.ChatRadius = 50
	}
	if t.InventoryRadius <= 0 {
		t.InventoryRadius = 50
	}
	if t.AttackQueryRadius <= 0 {
		t.AttackQueryRadius = 50
	}
	if t.ClientSize <= 0 {
		t.ClientSize = 10
	}
	if t.PlayerTimeout <= 0 {
		t.PlayerTimeout = 600
	}
	if t.MobileTimeout <= 0 {
		t.MobileTimeout = 1000
	}
	if t.MobileDeathTime <= 0 {
		t.MobileDeathTime = 30
	}

	if t.AI.ScanInterval <= 0 {
		t.AI.ScanInterval = 5
	}
	if t.AI.ScanRadius <= 0 {
		t.AI.ScanRadius = 50
	}
	if t.AI.MoveSpeed <= 0 {
		t.AI.MoveSpeed = 10
	}
	if t.AI.AttackDistance <= 0 {
		t.AI.AttackDistance = 10
	}
	if t.AI.GiveUpDistance <= 0 {
		t.AI.GiveUpDistance = 100
	}

	if t.Grid.Min == ([2]float64{}) && t.Grid.Max == ([2]float64{}) {
		t.Grid.Min = [2]float64{-4000, -4000}
		t.Grid.Max = [2]float64{4000, 4000}
	}
	if t.Grid.Dims[0] <= 0 || t.Grid.Dims[1] <= 0 {
		t.Grid.Dims = [2]int{1000, 1000}
	}

	if t.Spawns.GridExtent <= 0 {
		t.Spawns.GridExtent = 40
	}
	if t.Spawns.GridSpacing <= 0 {
		t.Spawns.GridSpacing = 75
	}
	if t.Spawns.Probability <= 0 {
		t.Spawns.Probability = 0.1
	}
	if len(t.Spawns.Classes) == 0 {
		t.Spawns.Classes = []string{"warrok", "zombie"}
	}

	if len(t.Login.Classes) == 0 {
		t.Login.Classes = []string{"sorceror", "paladin"}
	}
	if t.Login.Center == ([2]float64{}) {
		t.Login.Center = [2]float64{-60, 0}
	}
	if t.Login.Spread <= 0 {
		t.Login.Spread = 20
	}
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.ApplyDefaults()
	return t, nil
}
