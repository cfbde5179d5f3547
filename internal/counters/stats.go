package counters

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// ErrNoActiveDays is returned when a stats bucket ends up with zero
// distinct active days. The average daily volume is undefined there and
// must never be persisted as NaN.
var ErrNoActiveDays = errors.New("group has no active days")

// statsBucket is the time bucket a daily row falls into. Empty fields are
// unused by coarser rollups.
type statsBucket struct {
	year  string
	month string
	week  string
}

type statsAcc struct {
	memberIDs   map[int64]struct{}
	activeDays  map[string]struct{}
	firstActive string
	lastActive  string
	totalVol    int64
}

type statsKey struct {
	name   string
	bucket statsBucket
}

// mondayWeek returns the week-of-year number with Monday as the first day
// of the week; days before the year's first Monday fall in week 00.
func mondayWeek(t time.Time) int {
	yday := t.YearDay() - 1
	wday := (int(t.Weekday()) + 6) % 7 // Monday = 0
	return (yday + 7 - wday) / 7
}

// accumulateStats buckets daily rows by canonical group name plus the
// bucket derived by bucketFor, and folds each row into its accumulator.
func (a *Aggregator) accumulateStats(days []DailyCount, bucketFor func(t time.Time) statsBucket) map[statsKey]*statsAcc {
	accs := make(map[statsKey]*statsAcc)
	for _, day := range days {
		t, err := time.Parse("2006-01-02", day.Dt)
		if err != nil {
			a.log.Warn("dropping daily row with malformed dt", zap.String("dt", day.Dt))
			continue
		}
		id, ok := a.numericID(day.LocationDirID)
		if !ok {
			continue
		}
		name := CanonicalName(day.LocationName)

		k := statsKey{name: name, bucket: bucketFor(t)}
		acc, ok := accs[k]
		if !ok {
			acc = &statsAcc{
				memberIDs:   make(map[int64]struct{}),
				activeDays:  make(map[string]struct{}),
				firstActive: day.Dt,
				lastActive:  day.Dt,
			}
			accs[k] = acc
		}
		acc.memberIDs[id] = struct{}{}
		acc.activeDays[day.Dt] = struct{}{}
		if day.Dt < acc.firstActive {
			acc.firstActive = day.Dt
		}
		if day.Dt > acc.lastActive {
			acc.lastActive = day.Dt
		}
		acc.totalVol += day.DailyVolume
	}
	return accs
}

// finalize turns an accumulator into a GroupStats row. Span is inclusive
// of both endpoints, so a single-day group has a span of one day.
func (acc *statsAcc) finalize(name string) (GroupStats, error) {
	daysActive := int64(len(acc.activeDays))
	if daysActive == 0 {
		return GroupStats{}, fmt.Errorf("%w: %s", ErrNoActiveDays, name)
	}

	first, _ := time.Parse("2006-01-02", acc.firstActive)
	last, _ := time.Parse("2006-01-02", acc.lastActive)
	span := int64(last.Sub(first).Hours()/24) + 1

	ids := make([]int64, 0, len(acc.memberIDs))
	for id := range acc.memberIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	encoded, _ := json.Marshal(ids)

	return GroupStats{
		LocationName:    name,
		LocationDirIDs:  string(encoded),
		FirstActive:     acc.firstActive,
		LastActive:      acc.lastActive,
		DaysBwFirstLast: span,
		DaysActive:      daysActive,
		PrctActiveDays:  float64(daysActive) / float64(span),
		TotalVol:        acc.totalVol,
		AvgDailyVol:     float64(acc.totalVol) / float64(daysActive),
	}, nil
}

// GroupStatsOverallRollup computes lifetime stats per location group,
// ordered by average daily volume descending.
func (a *Aggregator) GroupStatsOverallRollup(days []DailyCount) ([]GroupStatsOverall, error) {
	accs := a.accumulateStats(days, func(time.Time) statsBucket { return statsBucket{} })

	rows := make([]GroupStatsOverall, 0, len(accs))
	for k, acc := range accs {
		stats, err := acc.finalize(k.name)
		if err != nil {
			return nil, err
		}
		rows = append(rows, GroupStatsOverall{GroupStats: stats})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AvgDailyVol != rows[j].AvgDailyVol {
			return rows[i].AvgDailyVol > rows[j].AvgDailyVol
		}
		return rows[i].LocationName < rows[j].LocationName
	})
	return rows, nil
}

// GroupStatsYearlyRollup computes stats per group and year, ordered by
// name then year.
func (a *Aggregator) GroupStatsYearlyRollup(days []DailyCount) ([]GroupStatsYearly, error) {
	accs := a.accumulateStats(days, func(t time.Time) statsBucket {
		return statsBucket{year: t.Format("2006")}
	})

	rows := make([]GroupStatsYearly, 0, len(accs))
	for k, acc := range accs {
		stats, err := acc.finalize(k.name)
		if err != nil {
			return nil, err
		}
		rows = append(rows, GroupStatsYearly{GroupStats: stats, Year: k.bucket.year})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].LocationName != rows[j].LocationName {
			return rows[i].LocationName < rows[j].LocationName
		}
		return rows[i].Year < rows[j].Year
	})
	return rows, nil
}

// GroupStatsMonthlyRollup computes stats per group, year and month,
// ordered by name then period.
func (a *Aggregator) GroupStatsMonthlyRollup(days []DailyCount) ([]GroupStatsMonthly, error) {
	accs := a.accumulateStats(days, func(t time.Time) statsBucket {
		return statsBucket{year: t.Format("2006"), month: t.Format("01")}
	})

	rows := make([]GroupStatsMonthly, 0, len(accs))
	for k, acc := range accs {
		stats, err := acc.finalize(k.name)
		if err != nil {
			return nil, err
		}
		rows = append(rows, GroupStatsMonthly{GroupStats: stats, Year: k.bucket.year, Month: k.bucket.month})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].LocationName != rows[j].LocationName {
			return rows[i].LocationName < rows[j].LocationName
		}
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		return rows[i].Month < rows[j].Month
	})
	return rows, nil
}

// GroupStatsWeeklyRollup computes stats per group, year, month and
// Monday-based week number, ordered by name then period.
func (a *Aggregator) GroupStatsWeeklyRollup(days []DailyCount) ([]GroupStatsWeekly, error) {
	accs := a.accumulateStats(days, func(t time.Time) statsBucket {
		return statsBucket{
			year:  t.Format("2006"),
			month: t.Format("01"),
			week:  fmt.Sprintf("%02d", mondayWeek(t)),
		}
	})

	rows := make([]GroupStatsWeekly, 0, len(accs))
	for k, acc := range accs {
		stats, err := acc.finalize(k.name)
		if err != nil {
			return nil, err
		}
		rows = append(rows, GroupStatsWeekly{
			GroupStats: stats,
			Year:       k.bucket.year,
			Month:      k.bucket.month,
			Week:       k.bucket.week,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].LocationName != rows[j].LocationName {
			return rows[i].LocationName < rows[j].LocationName
		}
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		if rows[i].Month != rows[j].Month {
			return rows[i].Month < rows[j].Month
		}
		return rows[i].Week < rows[j].Week
	})
	return rows, nil
}
