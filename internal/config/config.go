package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

type ServerConfig struct {
	Port           int `yaml:"port" validate:"gt=0"`
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"gte=0"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type SnapshotConfig struct {
	Dir            string `yaml:"dir" validate:"required"`
	DailyFile      string `yaml:"daily_file" validate:"required"`
	FifteenMinFile string `yaml:"fifteen_min_file" validate:"required"`
}

type ResourcesConfig struct {
	Locations  string   `yaml:"locations" validate:"required"`
	Daily      string   `yaml:"daily" validate:"required"`
	FifteenMin []string `yaml:"fifteen_min" validate:"required,min=1"`
}

type OpenDataConfig struct {
	BaseURL        string          `yaml:"base_url" validate:"required,url"`
	PackageID      string          `yaml:"package_id" validate:"required"`
	RequestsPerSec float64         `yaml:"requests_per_sec" validate:"gt=0"`
	Burst          int             `yaml:"burst" validate:"gt=0"`
	Resources      ResourcesConfig `yaml:"resources" validate:"required"`
}

type GroupingConfig struct {
	// Extra normalization applied on top of stripping the retirement
	// suffix. Off by default: upstream names only ever differ by the
	// literal " (retired)" marker.
	FoldCase           bool `yaml:"fold_case"`
	CollapseWhitespace bool `yaml:"collapse_whitespace"`
}

type AggregationConfig struct {
	// Bins before this date are excluded from the typical-day curves.
	TypicalDayCutoff string `yaml:"typical_day_cutoff" validate:"required,datetime=2006-01-02"`
}

type Config struct {
	Server      ServerConfig      `yaml:"server" validate:"required"`
	Database    DatabaseConfig    `yaml:"database" validate:"required"`
	Snapshots   SnapshotConfig    `yaml:"snapshots" validate:"required"`
	OpenData    OpenDataConfig    `yaml:"opendata" validate:"required"`
	Grouping    GroupingConfig    `yaml:"grouping"`
	Aggregation AggregationConfig `yaml:"aggregation" validate:"required"`
}

// Load reads the YAML config at path, applies environment overrides
// (PORT, DB_PATH, DATA_DIR) and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.Server.Port = p
	}
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		cfg.Snapshots.Dir = dataDir
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}
