// Package query filters and re-aggregates snapshot rows by date range for
// the API. All functions are pure over their inputs; ordering of returned
// slices is part of the response contract.
package query

import (
	"errors"
	"sort"
	"time"

	"github.com/TorontoBikeTraffic/BT-Backend/internal/models"
)

// ErrInvalidRange is returned for missing or malformed date parameters.
var ErrInvalidRange = errors.New("invalid date range")

// DateRange is an inclusive [start, end] range of calendar days.
type DateRange struct {
	Start string // YYYY-MM-DD
	End   string
}

// ParseRange validates start and end query parameters. Both are required
// and must be YYYY-MM-DD.
func ParseRange(start, end string) (DateRange, error) {
	if start == "" || end == "" {
		return DateRange{}, ErrInvalidRange
	}
	for _, value := range []string{start, end} {
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return DateRange{}, ErrInvalidRange
		}
	}
	return DateRange{Start: start, End: end}, nil
}

// MultiDay reports whether the range spans more than a single instant.
func (r DateRange) MultiDay() bool {
	return r.Start < r.End
}

// VolumeAtLocation is one raw daily observation in a date-keyed response.
type VolumeAtLocation struct {
	DailyVolume   int64  `json:"daily_volume"`
	LocationDirID string `json:"location_dir_id"`
}

// httpDate formats a date the way the frontend has always consumed it.
func httpDate(dt string) string {
	t, err := time.Parse("2006-01-02", dt)
	if err != nil {
		return dt
	}
	return t.Format("Mon, 02 Jan 2006 15:04:05") + " GMT"
}

// DailyByDate returns the raw daily rows inside the range, nested under
// their date.
func DailyByDate(rows []models.DailyCount, r DateRange) map[string][]VolumeAtLocation {
	grouped := make(map[string][]VolumeAtLocation)
	for _, row := range rows {
		if row.Dt < r.Start || row.Dt > r.End {
			continue
		}
		key := httpDate(row.Dt)
		grouped[key] = append(grouped[key], VolumeAtLocation{
			DailyVolume:   row.DailyVolume,
			LocationDirID: row.LocationDirID,
		})
	}
	return grouped
}

// BinAverage is the average volume for one counter at one time of day.
type BinAverage struct {
	LocationDirID string  `json:"location_dir_id"`
	TimeBin       string  `json:"time_bin"`
	AvgBinVolume  float64 `json:"avg_bin_volume"`
}

// FifteenMinAverages averages bin volumes per (counter, time-of-day) over
// bins between midnight of start and midnight of end.
func FifteenMinAverages(rows []models.FifteenMinCount, r DateRange) []BinAverage {
	startInstant := r.Start + " 00:00:00"
	endInstant := r.End + " 00:00:00"

	type key struct {
		id  string
		bin string
	}
	type acc struct {
		sum   int64
		count int64
	}
	accs := make(map[key]*acc)
	for _, row := range rows {
		if row.DatetimeBin < startInstant || row.DatetimeBin > endInstant {
			continue
		}
		if len(row.DatetimeBin) < 19 {
			continue
		}
		k := key{id: row.LocationDirID, bin: row.DatetimeBin[11:19]}
		entry, ok := accs[k]
		if !ok {
			entry = &acc{}
			accs[k] = entry
		}
		entry.sum += row.BinVolume
		entry.count++
	}

	out := make([]BinAverage, 0, len(accs))
	for k, entry := range accs {
		out = append(out, BinAverage{
			LocationDirID: k.id,
			TimeBin:       k.bin,
			AvgBinVolume:  float64(entry.sum) / float64(entry.count),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationDirID != out[j].LocationDirID {
			return out[i].LocationDirID < out[j].LocationDirID
		}
		return out[i].TimeBin < out[j].TimeBin
	})
	return out
}

// LocationAverage is the averaged daily volume for one counter.
type LocationAverage struct {
	LocationDirID  string  `json:"location_dir_id"`
	AvgDailyVolume float64 `json:"avg_daily_volume"`
}

// AvgDailyVolume returns one averaged row per counter for a multi-day
// range, or the raw per-location rows when the range is a single day.
func AvgDailyVolume(rows []models.DailyCount, r DateRange) []LocationAverage {
	var filtered []models.DailyCount
	for _, row := range rows {
		if row.Dt >= r.Start && row.Dt <= r.End {
			filtered = append(filtered, row)
		}
	}
	if len(filtered) == 0 {
		return []LocationAverage{}
	}

	if !r.MultiDay() {
		out := make([]LocationAverage, 0, len(filtered))
		for _, row := range filtered {
			out = append(out, LocationAverage{
				LocationDirID:  row.LocationDirID,
				AvgDailyVolume: float64(row.DailyVolume),
			})
		}
		return out
	}

	type acc struct {
		sum   int64
		count int64
	}
	accs := make(map[string]*acc)
	for _, row := range filtered {
		entry, ok := accs[row.LocationDirID]
		if !ok {
			entry = &acc{}
			accs[row.LocationDirID] = entry
		}
		entry.sum += row.DailyVolume
		entry.count++
	}

	out := make([]LocationAverage, 0, len(accs))
	for id, entry := range accs {
		out = append(out, LocationAverage{
			LocationDirID:  id,
			AvgDailyVolume: float64(entry.sum) / float64(entry.count),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocationDirID < out[j].LocationDirID })
	return out
}
