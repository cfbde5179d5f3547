// Package models holds the raw count records shared by the counters and
// query packages. Definitions live here so query can consume them without
// importing counters; counters re-exports them under the original names
// via type aliases.
package models

type DailyCount struct {
	RecordID       int64  `gorm:"primaryKey" json:"record_id"`
	LocationDirID  string `gorm:"index;not null" json:"location_dir_id"`
	LocationName   string `json:"location_name"`
	Direction      string `gorm:"index" json:"direction"`
	LinearNameFull string `json:"linear_name_full"`
	SideStreet     string `json:"side_street"`
	Dt             string `gorm:"index" json:"dt"` // YYYY-MM-DD
	DailyVolume    int64  `json:"daily_volume"`
}

type FifteenMinCount struct {
	RecordID      int64  `json:"record_id"`
	LocationDirID string `gorm:"primaryKey;index;not null" json:"location_dir_id"`
	DatetimeBin   string `gorm:"primaryKey;index" json:"datetime_bin"` // YYYY-MM-DD HH:MM:SS
	BinVolume     int64  `json:"bin_volume"`
}

func (DailyCount) TableName() string {
	return "daily_bicycle_counts"
}

func (FifteenMinCount) TableName() string {
	return "fifteen_min_bicycle_counts"
}
