package counters

import "github.com/TorontoBikeTraffic/BT-Backend/internal/models"

// Raw records, as delivered by the open-data portal. The pipeline owns the
// raw tables; everything below them is recomputed in full on each run.
// DailyCount and FifteenMinCount are defined in internal/models (query
// needs them without importing this package) and aliased here.

type CounterLocation struct {
	ID                     int64   `gorm:"primaryKey" json:"id"`
	BinSize                string  `json:"bin_size"`
	CentrelineID           int64   `json:"centreline_id"`
	DateDecommissioned     *string `json:"date_decommissioned"`
	Direction              string  `gorm:"index" json:"direction"`
	FirstActive            string  `json:"first_active"`
	LastActive             string  `json:"last_active"`
	LatestCalibrationStudy *string `json:"latest_calibration_study"`
	LinearNameFull         string  `json:"linear_name_full"`
	LocationDirID          int64   `gorm:"index" json:"location_dir_id"`
	LocationName           string  `json:"location_name"`
	SideStreet             string  `json:"side_street"`
	Technology             string  `json:"technology"`
	GeomType               string  `json:"geom_type"`
	Coordinates            string  `json:"coordinates"` // JSON-encoded [lon, lat]
}

type DailyCount = models.DailyCount

type FifteenMinCount = models.FifteenMinCount

// LocationGroup merges retired and active counter identities that share a
// display name. Recomputed from bicycle_counters on every pipeline run.
type LocationGroup struct {
	LocationName   string `gorm:"primaryKey" json:"location_name"`
	LocationDirIDs string `json:"location_dir_ids"` // JSON-encoded sorted int array
	GeomType       string `json:"geom_type"`
	Coordinates    string `json:"coordinates"` // from the most recently active member
	LastActive     string `json:"last_active"`
}

// Rollups. Natural keys are the primary keys; ordering of rows is part of
// the API contract and is fixed by the aggregation engine.

type HourlyCount struct {
	Date          string `gorm:"primaryKey;index" json:"date"`
	Hour          string `gorm:"primaryKey" json:"hour"`
	LocationDirID int64  `gorm:"primaryKey;index" json:"location_dir_id"`
	Volume        int64  `gorm:"index" json:"volume"`
}

type MonthlyCount struct {
	Year          string `gorm:"primaryKey;index" json:"year"`
	Month         string `gorm:"primaryKey;index" json:"month"`
	LocationDirID int64  `gorm:"primaryKey;index" json:"location_dir_id"`
	Volume        int64  `gorm:"index" json:"volume"`
}

type AnnualCount struct {
	Year          string `gorm:"primaryKey;index" json:"year"`
	LocationDirID int64  `gorm:"primaryKey;index" json:"location_dir_id"`
	LocationName  string `json:"location_name"`
	Volume        int64  `gorm:"index" json:"volume"`
}

// FifteenMinMonthlyAvg is the typical-day curve: the average volume for a
// time of day, per counter, per calendar month.
type FifteenMinMonthlyAvg struct {
	LocationDirID string  `gorm:"primaryKey;index" json:"location_dir_id"`
	Year          string  `gorm:"primaryKey" json:"year"`
	Month         string  `gorm:"primaryKey" json:"month"`
	Time          string  `gorm:"primaryKey" json:"time"` // HH:MM:SS
	AvgVolume     float64 `json:"avg_vol"`
}

// GroupStats is the per-group summary shared by the overall, yearly,
// monthly and weekly stats tables.
type GroupStats struct {
	LocationName    string  `gorm:"primaryKey" json:"location_name"`
	LocationDirIDs  string  `json:"location_dir_ids"`
	FirstActive     string  `json:"first_active"`
	LastActive      string  `json:"last_active"`
	DaysBwFirstLast int64   `gorm:"column:days_bw_first_last" json:"days_bw_first_last"`
	DaysActive      int64   `json:"days_active"`
	PrctActiveDays  float64 `gorm:"column:prct_active_days" json:"prct_active_days"`
	TotalVol        int64   `json:"total_vol"`
	AvgDailyVol     float64 `json:"avg_daily_vol"`
}

type GroupStatsOverall struct {
	GroupStats `gorm:"embedded"`
}

type GroupStatsYearly struct {
	GroupStats `gorm:"embedded"`
	Year       string `gorm:"primaryKey" json:"year"`
}

type GroupStatsMonthly struct {
	GroupStats `gorm:"embedded"`
	Year       string `gorm:"primaryKey" json:"year"`
	Month      string `gorm:"primaryKey" json:"month"`
}

type GroupStatsWeekly struct {
	GroupStats `gorm:"embedded"`
	Year       string `gorm:"primaryKey" json:"year"`
	Month      string `gorm:"primaryKey" json:"month"`
	Week       string `gorm:"primaryKey" json:"week"`
}

func (CounterLocation) TableName() string {
	return "bicycle_counters"
}

func (LocationGroup) TableName() string {
	return "location_groups"
}

func (HourlyCount) TableName() string {
	return "hourly_bicycle_counts"
}

func (MonthlyCount) TableName() string {
	return "monthly_bicycle_counts"
}

func (AnnualCount) TableName() string {
	return "annual_bicycle_counts"
}

func (FifteenMinMonthlyAvg) TableName() string {
	return "fifteen_min_counts_by_year_and_month"
}

func (GroupStatsOverall) TableName() string {
	return "location_group_stats_overall"
}

func (GroupStatsYearly) TableName() string {
	return "location_group_stats_yearly"
}

func (GroupStatsMonthly) TableName() string {
	return "location_group_stats_monthly"
}

func (GroupStatsWeekly) TableName() string {
	return "location_group_stats_weekly"
}
