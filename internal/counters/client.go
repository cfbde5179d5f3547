package counters

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/TorontoBikeTraffic/BT-Backend/internal/config"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/opendata"
)

// Client fetches the bicycle-counter resources from the open-data portal
// and decodes them into raw records. A failed or empty resource is logged
// and treated as no data so a partial outage never fails the whole run.
type Client struct {
	od  *opendata.Client
	cfg config.OpenDataConfig
	log *zap.Logger
}

func NewClient(od *opendata.Client, cfg config.OpenDataConfig, log *zap.Logger) *Client {
	return &Client{od: od, cfg: cfg, log: log}
}

// flexString decodes a JSON value that upstream serves inconsistently as
// either a string or a number.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	trimmed := strings.Trim(string(b), `"`)
	if trimmed == "null" {
		trimmed = ""
	}
	*s = flexString(trimmed)
	return nil
}

type featureCollection struct {
	Features []struct {
		ID       int64 `json:"id"`
		Geometry struct {
			Type        string          `json:"type"`
			Coordinates json.RawMessage `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			BinSize                string  `json:"bin_size"`
			CentrelineID           int64   `json:"centreline_id"`
			DateDecommissioned     *string `json:"date_decommissioned"`
			Direction              string  `json:"direction"`
			FirstActive            string  `json:"first_active"`
			LastActive             string  `json:"last_active"`
			LatestCalibrationStudy *string `json:"latest_calibration_study"`
			LinearNameFull         string  `json:"linear_name_full"`
			LocationDirID          int64   `json:"location_dir_id"`
			LocationName           string  `json:"location_name"`
			SideStreet             string  `json:"side_street"`
			Technology             string  `json:"technology"`
		} `json:"properties"`
	} `json:"features"`
}

// CounterLocations fetches the locations GeoJSON resource.
func (c *Client) CounterLocations(ctx context.Context) []CounterLocation {
	body := c.fetch(ctx, c.cfg.Resources.Locations)
	if body == nil {
		return nil
	}

	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		c.log.Warn("failed to decode counter locations, treating as empty",
			zap.String("resource", c.cfg.Resources.Locations), zap.Error(err))
		return nil
	}

	locs := make([]CounterLocation, 0, len(fc.Features))
	for _, f := range fc.Features {
		locs = append(locs, CounterLocation{
			ID:                     f.ID,
			BinSize:                f.Properties.BinSize,
			CentrelineID:           f.Properties.CentrelineID,
			DateDecommissioned:     f.Properties.DateDecommissioned,
			Direction:              f.Properties.Direction,
			FirstActive:            f.Properties.FirstActive,
			LastActive:             f.Properties.LastActive,
			LatestCalibrationStudy: f.Properties.LatestCalibrationStudy,
			LinearNameFull:         f.Properties.LinearNameFull,
			LocationDirID:          f.Properties.LocationDirID,
			LocationName:           f.Properties.LocationName,
			SideStreet:             f.Properties.SideStreet,
			Technology:             f.Properties.Technology,
			GeomType:               f.Geometry.Type,
			Coordinates:            string(f.Geometry.Coordinates),
		})
	}
	return locs
}

type dailyRecord struct {
	RecordID       int64      `json:"_id"`
	LocationDirID  flexString `json:"location_dir_id"`
	LocationName   string     `json:"location_name"`
	Direction      string     `json:"direction"`
	LinearNameFull string     `json:"linear_name_full"`
	SideStreet     string     `json:"side_street"`
	Dt             string     `json:"dt"`
	DailyVolume    int64      `json:"daily_volume"`
}

// DailyCounts fetches and normalizes the daily counts resource.
func (c *Client) DailyCounts(ctx context.Context) []DailyCount {
	body := c.fetch(ctx, c.cfg.Resources.Daily)
	if body == nil {
		return nil
	}

	var records []dailyRecord
	if err := json.Unmarshal(body, &records); err != nil {
		c.log.Warn("failed to decode daily counts, treating as empty",
			zap.String("resource", c.cfg.Resources.Daily), zap.Error(err))
		return nil
	}

	counts := make([]DailyCount, 0, len(records))
	for _, rec := range records {
		dt := normalizeDate(rec.Dt)
		if dt == "" || rec.DailyVolume < 0 {
			c.log.Warn("dropping malformed daily record",
				zap.Int64("record_id", rec.RecordID), zap.String("dt", rec.Dt))
			continue
		}
		counts = append(counts, DailyCount{
			RecordID:       rec.RecordID,
			LocationDirID:  string(rec.LocationDirID),
			LocationName:   rec.LocationName,
			Direction:      rec.Direction,
			LinearNameFull: rec.LinearNameFull,
			SideStreet:     rec.SideStreet,
			Dt:             dt,
			DailyVolume:    rec.DailyVolume,
		})
	}
	return counts
}

type fifteenMinRecord struct {
	RecordID      int64      `json:"_id"`
	LocationDirID flexString `json:"location_dir_id"`
	DatetimeBin   string     `json:"datetime_bin"`
	BinVolume     int64      `json:"bin_volume"`
}

// FifteenMinCounts fetches every 15-minute resource (the portal splits
// them by year range) and appends them in order.
func (c *Client) FifteenMinCounts(ctx context.Context) []FifteenMinCount {
	var counts []FifteenMinCount
	for _, resource := range c.cfg.Resources.FifteenMin {
		body := c.fetch(ctx, resource)
		if body == nil {
			continue
		}

		var records []fifteenMinRecord
		if err := json.Unmarshal(body, &records); err != nil {
			c.log.Warn("failed to decode 15-min counts, treating as empty",
				zap.String("resource", resource), zap.Error(err))
			continue
		}

		for _, rec := range records {
			bin := normalizeDatetime(rec.DatetimeBin)
			if bin == "" || rec.BinVolume < 0 {
				c.log.Warn("dropping malformed 15-min record",
					zap.Int64("record_id", rec.RecordID), zap.String("datetime_bin", rec.DatetimeBin))
				continue
			}
			counts = append(counts, FifteenMinCount{
				RecordID:      rec.RecordID,
				LocationDirID: string(rec.LocationDirID),
				DatetimeBin:   bin,
				BinVolume:     rec.BinVolume,
			})
		}
	}
	return counts
}

func (c *Client) fetch(ctx context.Context, resource string) []byte {
	body, err := c.od.ResourceData(ctx, c.cfg.PackageID, resource)
	if err != nil {
		c.log.Warn("resource fetch failed, treating as empty",
			zap.String("resource", resource), zap.Error(err))
		return nil
	}
	return body
}

// normalizeDate reduces an upstream date or datetime string to YYYY-MM-DD.
func normalizeDate(value string) string {
	if len(value) < 10 {
		return ""
	}
	return value[:10]
}

// normalizeDatetime turns an upstream timestamp into "YYYY-MM-DD HH:MM:SS".
func normalizeDatetime(value string) string {
	if len(value) < 19 {
		if len(value) == 16 { // no seconds
			value += ":00"
		} else {
			return ""
		}
	}
	return value[:10] + " " + value[11:19]
}
