package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	v := cfg.Visualization
	if v.AutoExpireTicks != 1200 || v.DedupDistanceSq != 165 || v.ApplyDelayTicks != 1 {
		t.Fatalf("lifecycle defaults: %+v", v)
	}
	if v.Block.Step != 10 || v.Block.DisplayRadius != 75 || v.Entity.DisplayRadius != 128 {
		t.Fatalf("marker defaults: %+v %+v", v.Block, v.Entity)
	}
	w, ok := cfg.World("OVERWORLD")
	if !ok || cfg.LineRadius(w) != 128 {
		t.Fatalf("line radius should follow view distance")
	}
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "viz.yaml")
	body := `
tick_rate_hz: 10
default_world_id: NETHER
worlds:
  - id: NETHER
    min_height: 0
    max_height: 128
visualization:
  default_provider: fake_block
  line:
    display_radius: 64
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TickRateHz != 10 || cfg.Visualization.DefaultProvider != ProviderBlock {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.Worlds) != 1 || cfg.DefaultWorldID != "NETHER" {
		t.Fatalf("worlds list replaces defaults: %+v", cfg.Worlds)
	}
	if cfg.Visualization.AutoExpireTicks != 1200 {
		t.Fatalf("unset keys keep defaults")
	}
	w, _ := cfg.World("NETHER")
	if w.ViewDistance != 8 || cfg.LineRadius(w) != 64 {
		t.Fatalf("world normalize: %+v radius=%d", w, cfg.LineRadius(w))
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Tuning){
		"unknown provider": func(c *Tuning) { c.Visualization.DefaultProvider = "laser" },
		"zero step":        func(c *Tuning) { c.Visualization.Block.Step = 0 },
		"zero radius":      func(c *Tuning) { c.Visualization.Entity.DisplayRadius = 0 },
		"zero expire":      func(c *Tuning) { c.Visualization.AutoExpireTicks = 0 },
		"bad heights":      func(c *Tuning) { c.Worlds[0].MaxHeight = c.Worlds[0].MinHeight },
		"missing default":  func(c *Tuning) { c.DefaultWorldID = "END" },
		"dup world":        func(c *Tuning) { c.Worlds = append(c.Worlds, c.Worlds[0]) },
	}
	for name, mut := range cases {
		cfg := Defaults()
		mut(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadBadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "viz.yaml")
	if err := os.WriteFile(path, []byte("visualization: [1, 2"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "viz.yaml") {
		t.Fatalf("expected wrapped yaml error, got %v", err)
	}
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("could not locate go.mod from %s", dir)
		}
		dir = parent
	}
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join(findRepoRoot(t), "configs", "viz.yaml"))
	if err != nil {
		t.Fatalf("load shipped config: %v", err)
	}
	if len(cfg.Worlds) != 3 || cfg.DefaultWorldID != "OVERWORLD" {
		t.Fatalf("worlds: %+v", cfg.Worlds)
	}
	if w, ok := cfg.World("NETHER"); !ok || w.ViewDistance != 6 || w.MaxHeight != 128 {
		t.Fatalf("nether: %+v", w)
	}
}
