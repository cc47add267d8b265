package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ProviderBlockDisplay     = "fake_block_display"
	ProviderBlockDisplayLine = "fake_block_display_line"
	ProviderShulkerBullet    = "fake_shulker_bullet"
	ProviderBlock            = "fake_block"
	ProviderAntiCheatCompat  = "fake_block_anti_cheat_compat"
)

// KnownProviders lists the built-in visualization families.
var KnownProviders = []string{
	ProviderBlockDisplay,
	ProviderBlockDisplayLine,
	ProviderShulkerBullet,
	ProviderBlock,
	ProviderAntiCheatCompat,
}

type Tuning struct {
	TickRateHz     int         `yaml:"tick_rate_hz"`
	DefaultWorldID string      `yaml:"default_world_id"`
	Worlds         []WorldSpec `yaml:"worlds"`
	BlocksPath     string      `yaml:"blocks_path,omitempty"`

	Visualization Visualization `yaml:"visualization"`
	Floor         Floor         `yaml:"floor"`
}

type WorldSpec struct {
	ID           string `yaml:"id"`
	SeedOffset   int64  `yaml:"seed_offset"`
	MinHeight    int    `yaml:"min_height"`
	MaxHeight    int    `yaml:"max_height"`
	ViewDistance int    `yaml:"view_distance"` // chunks
}

type Visualization struct {
	DefaultProvider string `yaml:"default_provider"`
	AutoExpireTicks int    `yaml:"auto_expire_ticks"`
	ApplyDelayTicks int    `yaml:"apply_delay_ticks"`
	DedupDistanceSq int    `yaml:"dedup_distance_sq"`

	Block  Markers `yaml:"block"`
	Entity Markers `yaml:"entity"`
	Line   Lines   `yaml:"line"`
}

type Markers struct {
	Step          int `yaml:"step"`
	DisplayRadius int `yaml:"display_radius"`
}

type Lines struct {
	Step2D int `yaml:"step_2d"`
	Step3D int `yaml:"step_3d"`
	// DisplayRadius 0 means the world's view distance in blocks.
	DisplayRadius int `yaml:"display_radius"`
}

type Floor struct {
	SearchBelow int `yaml:"search_below"`
	SearchAbove int `yaml:"search_above"`
	CacheSize   int `yaml:"cache_size"`
	TwoDHeight  int `yaml:"two_d_height"`
}

// Load reads a viz.yaml. An empty path yields the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		t.Normalize()
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("viz.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("viz.yaml: %w", err)
	}
	return t, nil
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:     20,
		DefaultWorldID: "OVERWORLD",
		Worlds: []WorldSpec{
			{ID: "OVERWORLD", MinHeight: -64, MaxHeight: 320, ViewDistance: 8},
		},
		Visualization: Visualization{
			DefaultProvider: ProviderBlockDisplay,
			AutoExpireTicks: 1200,
			ApplyDelayTicks: 1,
			DedupDistanceSq: 165,
			Block:           Markers{Step: 10, DisplayRadius: 75},
			Entity:          Markers{Step: 10, DisplayRadius: 128},
			Line:            Lines{Step2D: 16, Step3D: 16},
		},
		Floor: Floor{
			SearchBelow: 80,
			SearchAbove: 64,
			CacheSize:   1024,
			TwoDHeight:  2147483647,
		},
	}
}

// Normalize fills zero values that have an obvious default.
func (t *Tuning) Normalize() {
	if t == nil {
		return
	}
	t.Visualization.DefaultProvider = strings.TrimSpace(t.Visualization.DefaultProvider)
	if t.Visualization.DefaultProvider == "" {
		t.Visualization.DefaultProvider = ProviderBlockDisplay
	}
	if t.Visualization.ApplyDelayTicks <= 0 {
		t.Visualization.ApplyDelayTicks = 1
	}
	if t.Floor.TwoDHeight == 0 {
		t.Floor.TwoDHeight = 2147483647
	}
	for i := range t.Worlds {
		if t.Worlds[i].ViewDistance <= 0 {
			t.Worlds[i].ViewDistance = 8
		}
	}
	if strings.TrimSpace(t.DefaultWorldID) == "" && len(t.Worlds) > 0 {
		t.DefaultWorldID = t.Worlds[0].ID
	}
}

func (t Tuning) Validate() error {
	t.Normalize()
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0")
	}
	if len(t.Worlds) == 0 {
		return fmt.Errorf("worlds must not be empty")
	}
	seen := map[string]bool{}
	for _, w := range t.Worlds {
		if strings.TrimSpace(w.ID) == "" {
			return fmt.Errorf("world id must not be empty")
		}
		if seen[w.ID] {
			return fmt.Errorf("duplicate world id: %s", w.ID)
		}
		seen[w.ID] = true
		if w.MaxHeight <= w.MinHeight {
			return fmt.Errorf("world %s max_height must be > min_height", w.ID)
		}
	}
	if !seen[t.DefaultWorldID] {
		return fmt.Errorf("default_world_id %q is not a configured world", t.DefaultWorldID)
	}

	v := t.Visualization
	if !KnownProvider(v.DefaultProvider) {
		return fmt.Errorf("unknown default_provider: %s", v.DefaultProvider)
	}
	if v.AutoExpireTicks <= 0 {
		return fmt.Errorf("auto_expire_ticks must be > 0")
	}
	if v.DedupDistanceSq < 0 {
		return fmt.Errorf("dedup_distance_sq must be >= 0")
	}
	for name, m := range map[string]Markers{"block": v.Block, "entity": v.Entity} {
		if m.Step <= 0 {
			return fmt.Errorf("visualization.%s.step must be > 0", name)
		}
		if m.DisplayRadius <= 0 {
			return fmt.Errorf("visualization.%s.display_radius must be > 0", name)
		}
	}
	if v.Line.Step2D <= 0 || v.Line.Step3D <= 0 {
		return fmt.Errorf("visualization.line steps must be > 0")
	}
	if v.Line.DisplayRadius < 0 {
		return fmt.Errorf("visualization.line.display_radius must be >= 0")
	}

	if t.Floor.SearchBelow <= 0 || t.Floor.SearchAbove <= 0 {
		return fmt.Errorf("floor search bounds must be > 0")
	}
	if t.Floor.CacheSize <= 0 {
		return fmt.Errorf("floor.cache_size must be > 0")
	}
	return nil
}

func KnownProvider(key string) bool {
	for _, k := range KnownProviders {
		if k == key {
			return true
		}
	}
	return false
}

func (t Tuning) World(id string) (WorldSpec, bool) {
	for _, w := range t.Worlds {
		if w.ID == id {
			return w, true
		}
	}
	return WorldSpec{}, false
}

// LineRadius resolves the line family's display radius for a world.
func (t Tuning) LineRadius(w WorldSpec) int {
	if t.Visualization.Line.DisplayRadius > 0 {
		return t.Visualization.Line.DisplayRadius
	}
	return w.ViewDistance * 16
}
