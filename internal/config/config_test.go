package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/TorontoBikeTraffic/BT-Backend/internal/config"
)

const validYAML = `
server:
  port: 5050
  timeout_seconds: 30
database:
  path: ./data/db.sqlite3
snapshots:
  dir: ./data
  daily_file: daily_counts.parquet
  fifteen_min_file: fifteen_min_counts.parquet
opendata:
  base_url: https://ckan0.cf.opendata.inter.prod-toronto.ca
  package_id: ff7e7369-cbba-4545-9e26-e5a5ef6a123c
  requests_per_sec: 2
  burst: 4
  resources:
    locations: locations_geojson
    daily: daily-counts-2024.json
    fifteen_min:
      - 15min-counts-1994-2009.json
      - 15min-counts-2010-2019.json
aggregation:
  typical_day_cutoff: "2023-01-01"
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 5050 {
		t.Errorf("expected port 5050, got %d", cfg.Server.Port)
	}
	if len(cfg.OpenData.Resources.FifteenMin) != 2 {
		t.Errorf("expected 2 fifteen-min resources, got %d", len(cfg.OpenData.Resources.FifteenMin))
	}
	if cfg.Grouping.FoldCase {
		t.Error("expected fold_case to default to false")
	}
	if cfg.Aggregation.TypicalDayCutoff != "2023-01-01" {
		t.Errorf("unexpected cutoff %q", cfg.Aggregation.TypicalDayCutoff)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DB_PATH", "/tmp/override.sqlite3")
	t.Setenv("DATA_DIR", "/tmp/snapshots")

	cfg, err := config.Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected PORT override, got %d", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/override.sqlite3" {
		t.Errorf("expected DB_PATH override, got %q", cfg.Database.Path)
	}
	if cfg.Snapshots.Dir != "/tmp/snapshots" {
		t.Errorf("expected DATA_DIR override, got %q", cfg.Snapshots.Dir)
	}
}

func TestLoad_InvalidPortEnv(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	if _, err := config.Load(writeConfig(t, validYAML)); err == nil {
		t.Fatal("expected error for non-numeric PORT")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	missingCutoff := `
server:
  port: 5050
database:
  path: ./db.sqlite3
snapshots:
  dir: ./data
  daily_file: d.parquet
  fifteen_min_file: f.parquet
opendata:
  base_url: https://example.com
  package_id: pkg
  requests_per_sec: 1
  burst: 1
  resources:
    locations: loc
    daily: daily
    fifteen_min: [a]
`
	if _, err := config.Load(writeConfig(t, missingCutoff)); err == nil {
		t.Fatal("expected validation error for missing typical_day_cutoff")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
