package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8080" {
		t.Errorf("Listen = %q", cfg.Listen)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config perms = %o, want 600", perm)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Style.CellWidth != 270 || again.Style.Color1 != "#B9DBFF" {
		t.Errorf("style not round-tripped: %+v", again.Style)
	}
	if len(again.Style.Legend) != 1 || again.Style.Legend[0].Tag != "Viloma Cala Cala" {
		t.Errorf("legend not round-tripped: %+v", again.Style.Legend)
	}
}

func TestLoadYAMLNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
listen: ":9000"
storage:
  driver: cassandra
cache:
  driver: redis
  addr: "localhost:6379"
style:
  locale: fr
  cell_width: 200
  legend:
    - tag: Asamblea
      color: "#FF0000"
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":9000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Storage.Driver != "file" {
		t.Errorf("unknown storage driver should fall back to file, got %q", cfg.Storage.Driver)
	}
	if cfg.Cache.Driver != "redis" || cfg.Cache.TTLMinutes != 60 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Style.Locale != "es" {
		t.Errorf("unknown locale should fall back to es, got %q", cfg.Style.Locale)
	}
	if cfg.Style.CellWidth != 200 || cfg.Style.CellHeight != 210 {
		t.Errorf("cell size = %vx%v", cfg.Style.CellWidth, cfg.Style.CellHeight)
	}
	if cfg.Style.MeasureAtDrawSize == nil || !*cfg.Style.MeasureAtDrawSize {
		t.Error("measure_at_draw_size should default to true")
	}
	if len(cfg.Style.Legend) != 1 || cfg.Style.Legend[0].Tag != "Asamblea" {
		t.Errorf("legend = %+v", cfg.Style.Legend)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := []byte(`
listen = ":7000"
refresh = "0 * * * *"

[storage]
driver = "memory"

[style]
locale = "en"
flow_stacking = true
measure_at_draw_size = false
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":7000" || cfg.RefreshCron != "0 * * * *" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.Style.Locale != "en" || !cfg.Style.FlowStacking {
		t.Errorf("style = %+v", cfg.Style)
	}
	if cfg.Style.MeasureAtDrawSize == nil || *cfg.Style.MeasureAtDrawSize {
		t.Error("explicit measure_at_draw_size=false must be kept")
	}
}

func TestSaveTOMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.ICS.SummaryPrefix = ""
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.BasicAuth == nil || got.BasicAuth.Username != "admin" {
		t.Errorf("basic auth = %+v", got.BasicAuth)
	}
	if got.ICS.SummaryPrefix != "" {
		t.Errorf("empty summary prefix should survive, got %q", got.ICS.SummaryPrefix)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("expected error for empty path")
	}
}
