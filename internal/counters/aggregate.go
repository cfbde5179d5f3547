package counters

import (
	"sort"
	"strconv"

	"go.uber.org/zap"
)

// Aggregator derives every rollup from the raw count tables. Each method
// is a pure function of its input: re-running on identical rows yields
// identical output, values and order included.
type Aggregator struct {
	// Bins before this date (YYYY-MM-DD) are excluded from typical-day
	// curves; early deployments used incompatible bin conventions.
	TypicalDayCutoff string

	log *zap.Logger
}

func NewAggregator(typicalDayCutoff string, log *zap.Logger) *Aggregator {
	return &Aggregator{TypicalDayCutoff: typicalDayCutoff, log: log}
}

// numericID normalizes a raw location_dir_id to its numeric form for sort
// ordering. Non-numeric ids cannot be keyed consistently across tables,
// so the row is dropped with a warning.
func (a *Aggregator) numericID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		a.log.Warn("dropping row with non-numeric location_dir_id", zap.String("location_dir_id", raw))
		return 0, false
	}
	return id, true
}

// HourlyRollup sums 15-minute bins into (date, hour, location) buckets.
// The hour is the truncation of the bin timestamp.
func (a *Aggregator) HourlyRollup(bins []FifteenMinCount) []HourlyCount {
	type key struct {
		id   int64
		date string
		hour string
	}
	sums := make(map[key]int64)
	for _, bin := range bins {
		if len(bin.DatetimeBin) < 13 {
			a.log.Warn("dropping 15-min row with malformed datetime_bin", zap.String("datetime_bin", bin.DatetimeBin))
			continue
		}
		id, ok := a.numericID(bin.LocationDirID)
		if !ok {
			continue
		}
		sums[key{id: id, date: bin.DatetimeBin[:10], hour: bin.DatetimeBin[11:13]}] += bin.BinVolume
	}

	rows := make([]HourlyCount, 0, len(sums))
	for k, vol := range sums {
		rows = append(rows, HourlyCount{Date: k.date, Hour: k.hour, LocationDirID: k.id, Volume: vol})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].LocationDirID != rows[j].LocationDirID {
			return rows[i].LocationDirID < rows[j].LocationDirID
		}
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].Hour < rows[j].Hour
	})
	return rows
}

// MonthlyRollup sums daily volumes into (year, month, location) buckets.
func (a *Aggregator) MonthlyRollup(days []DailyCount) []MonthlyCount {
	type key struct {
		id    int64
		year  string
		month string
	}
	sums := make(map[key]int64)
	for _, day := range days {
		if len(day.Dt) < 10 {
			a.log.Warn("dropping daily row with malformed dt", zap.String("dt", day.Dt))
			continue
		}
		id, ok := a.numericID(day.LocationDirID)
		if !ok {
			continue
		}
		sums[key{id: id, year: day.Dt[:4], month: day.Dt[5:7]}] += day.DailyVolume
	}

	rows := make([]MonthlyCount, 0, len(sums))
	for k, vol := range sums {
		rows = append(rows, MonthlyCount{Year: k.year, Month: k.month, LocationDirID: k.id, Volume: vol})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].LocationDirID != rows[j].LocationDirID {
			return rows[i].LocationDirID < rows[j].LocationDirID
		}
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		return rows[i].Month < rows[j].Month
	})
	return rows
}

// AnnualRollup sums daily volumes into (year, location) buckets, carrying
// the location display name for presentation.
func (a *Aggregator) AnnualRollup(days []DailyCount) []AnnualCount {
	type key struct {
		id   int64
		year string
		name string
	}
	sums := make(map[key]int64)
	for _, day := range days {
		if len(day.Dt) < 10 {
			a.log.Warn("dropping daily row with malformed dt", zap.String("dt", day.Dt))
			continue
		}
		id, ok := a.numericID(day.LocationDirID)
		if !ok {
			continue
		}
		sums[key{id: id, year: day.Dt[:4], name: day.LocationName}] += day.DailyVolume
	}

	rows := make([]AnnualCount, 0, len(sums))
	for k, vol := range sums {
		rows = append(rows, AnnualCount{Year: k.year, LocationDirID: k.id, LocationName: k.name, Volume: vol})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].LocationName != rows[j].LocationName {
			return rows[i].LocationName < rows[j].LocationName
		}
		if rows[i].LocationDirID != rows[j].LocationDirID {
			return rows[i].LocationDirID < rows[j].LocationDirID
		}
		return rows[i].Year < rows[j].Year
	})
	return rows
}

// TypicalDayRollup averages bin volumes by time of day, per counter and
// calendar month, over bins on or after the cutoff date.
func (a *Aggregator) TypicalDayRollup(bins []FifteenMinCount) []FifteenMinMonthlyAvg {
	type key struct {
		id    string
		year  string
		month string
		tod   string
	}
	type acc struct {
		sum   int64
		count int64
	}
	accs := make(map[key]*acc)
	for _, bin := range bins {
		if len(bin.DatetimeBin) < 19 {
			a.log.Warn("dropping 15-min row with malformed datetime_bin", zap.String("datetime_bin", bin.DatetimeBin))
			continue
		}
		// ISO date strings compare correctly as plain strings.
		if bin.DatetimeBin[:10] < a.TypicalDayCutoff {
			continue
		}
		k := key{
			id:    bin.LocationDirID,
			year:  bin.DatetimeBin[:4],
			month: bin.DatetimeBin[5:7],
			tod:   bin.DatetimeBin[11:19],
		}
		entry, ok := accs[k]
		if !ok {
			entry = &acc{}
			accs[k] = entry
		}
		entry.sum += bin.BinVolume
		entry.count++
	}

	rows := make([]FifteenMinMonthlyAvg, 0, len(accs))
	for k, entry := range accs {
		rows = append(rows, FifteenMinMonthlyAvg{
			LocationDirID: k.id,
			Year:          k.year,
			Month:         k.month,
			Time:          k.tod,
			AvgVolume:     float64(entry.sum) / float64(entry.count),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].LocationDirID != rows[j].LocationDirID {
			return rows[i].LocationDirID < rows[j].LocationDirID
		}
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		if rows[i].Month != rows[j].Month {
			return rows[i].Month < rows[j].Month
		}
		return rows[i].Time < rows[j].Time
	})
	return rows
}
