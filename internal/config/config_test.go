package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/imkarma/streak/internal/board"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

// --- DefaultConfig / Rules tests ---

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestRules_ConvertsPoints(t *testing.T) {
	r := DefaultConfig().Rules()
	if r.Points[board.PriorityUrgent] != 40 {
		t.Fatalf("expected urgent = 40, got %d", r.Points[board.PriorityUrgent])
	}
	if len(r.Tiers) != 4 || r.Tiers[0].Name != "bronze" {
		t.Fatalf("unexpected tiers %v", r.Tiers)
	}
}

func TestRules_DoesNotAliasTiers(t *testing.T) {
	cfg := DefaultConfig()
	r := cfg.Rules()
	r.Tiers[0].Name = "changed"
	if cfg.Tiers[0].Name != "bronze" {
		t.Fatal("Rules should copy tiers")
	}
}

// --- Load / Save / Validate tests ---

func TestLoad_Valid(t *testing.T) {
	p := writeConfig(t, `version: 1
storage:
  kv_file: state.json
  db_file: objects.db
  quota_bytes: 5000000
points:
  low: 1
  urgent: 100
tiers:
  - name: novice
    min_points: 0
    theme: meadow
  - name: expert
    min_points: 50
    theme: ember
`)

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.KVFile != "state.json" || cfg.Storage.DBFile != "objects.db" {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Storage.QuotaBytes != 5000000 {
		t.Fatalf("expected quota 5000000, got %d", cfg.Storage.QuotaBytes)
	}
	if cfg.Points["urgent"] != 100 {
		t.Fatalf("expected urgent = 100, got %d", cfg.Points["urgent"])
	}
	// Priorities left out keep their defaults.
	if cfg.Points["medium"] != 10 {
		t.Fatalf("expected medium default 10, got %d", cfg.Points["medium"])
	}
	if len(cfg.Tiers) != 2 || cfg.Tiers[1].Theme != "ember" {
		t.Fatalf("unexpected tiers %v", cfg.Tiers)
	}
}

func TestLoad_PartialUsesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "version: 1\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage.KVFile != "local.json" {
		t.Fatalf("expected default kv file, got %q", cfg.Storage.KVFile)
	}
	if len(cfg.Tiers) != 4 {
		t.Fatalf("expected default tiers, got %d", len(cfg.Tiers))
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"unknown priority", "points:\n  critical: 5\n", "unknown priority"},
		{"negative points", "points:\n  low: -1\n", "negative"},
		{"first tier not zero", "tiers:\n  - {name: a, min_points: 5, theme: x}\n", "start at 0"},
		{"tiers not ascending", "tiers:\n  - {name: a, min_points: 0, theme: x}\n  - {name: b, min_points: 0, theme: y}\n", "greater"},
		{"missing theme", "tiers:\n  - {name: a, min_points: 0}\n", "theme is required"},
		{"duplicate tier", "tiers:\n  - {name: a, min_points: 0, theme: x}\n  - {name: a, min_points: 9, theme: y}\n", "duplicate"},
		{"empty tiers", "tiers: []\n", "at least one tier"},
		{"empty kv file", "storage:\n  kv_file: \"\"\n", "kv_file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.data))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "tiers: [unclosed\n"))
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSave_And_Reload(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Points["high"] = 25
	cfg.Storage.QuotaBytes = 1024

	if err := Save(p, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(p)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Points["high"] != 25 {
		t.Fatalf("expected high = 25, got %d", loaded.Points["high"])
	}
	if loaded.Storage.QuotaBytes != 1024 {
		t.Fatalf("expected quota 1024, got %d", loaded.Storage.QuotaBytes)
	}
	if len(loaded.Tiers) != len(cfg.Tiers) {
		t.Fatalf("expected %d tiers, got %d", len(cfg.Tiers), len(loaded.Tiers))
	}
}
