// Package pipeline runs the batch recompute: fetch raw resources, load
// the raw tables, regroup locations, rebuild every rollup, rewrite the
// columnar snapshots. Fetches overlap in flight; everything after them is
// strictly serial. All operations are idempotent, so a failed run is
// simply re-triggered wholesale.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TorontoBikeTraffic/BT-Backend/internal/config"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/counters"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/snapshot"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/store"
)

// Fetcher is the pipeline's view of the open-data boundary. A fetch that
// fails upstream yields an empty slice, never an error: partial data is
// preferred over a failed run.
type Fetcher interface {
	CounterLocations(ctx context.Context) []counters.CounterLocation
	DailyCounts(ctx context.Context) []counters.DailyCount
	FifteenMinCounts(ctx context.Context) []counters.FifteenMinCount
}

// Pipeline holds the injected fetch and persistence capabilities.
type Pipeline struct {
	fetcher Fetcher
	store   *store.Store
	grouper *counters.Grouper
	agg     *counters.Aggregator
	snaps   config.SnapshotConfig
	log     *zap.Logger
}

func New(fetcher Fetcher, st *store.Store, grouper *counters.Grouper, agg *counters.Aggregator, snaps config.SnapshotConfig, log *zap.Logger) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		store:   st,
		grouper: grouper,
		agg:     agg,
		snaps:   snaps,
		log:     log,
	}
}

// Run executes one full recompute.
func (p *Pipeline) Run(ctx context.Context) error {
	runID := uuid.NewString()
	log := p.log.With(zap.String("run_id", runID))
	started := time.Now()
	log.Info("starting pipeline run")

	var (
		wg         sync.WaitGroup
		locations  []counters.CounterLocation
		daily      []counters.DailyCount
		fifteenMin []counters.FifteenMinCount
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		locations = p.fetcher.CounterLocations(ctx)
	}()
	go func() {
		defer wg.Done()
		daily = p.fetcher.DailyCounts(ctx)
	}()
	go func() {
		defer wg.Done()
		fifteenMin = p.fetcher.FifteenMinCounts(ctx)
	}()
	wg.Wait()

	log.Info("fetched raw records",
		zap.Int("locations", len(locations)),
		zap.Int("daily", len(daily)),
		zap.Int("fifteen_min", len(fifteenMin)))

	if err := p.loadRaw(ctx, log, locations, daily, fifteenMin); err != nil {
		return err
	}
	if err := p.loadGroups(ctx, log, locations); err != nil {
		return err
	}
	if err := p.loadRollups(ctx, log, daily, fifteenMin); err != nil {
		return err
	}
	if err := p.writeSnapshots(log, daily, fifteenMin); err != nil {
		return err
	}

	log.Info("pipeline run complete", zap.Duration("elapsed", time.Since(started)))
	return nil
}

func (p *Pipeline) loadRaw(ctx context.Context, log *zap.Logger, locations []counters.CounterLocation, daily []counters.DailyCount, fifteenMin []counters.FifteenMinCount) error {
	if err := p.store.Upsert(ctx, "bicycle_counters", locations); err != nil {
		return err
	}
	if err := p.store.Upsert(ctx, "daily_bicycle_counts", daily); err != nil {
		return err
	}
	if err := p.store.Upsert(ctx, "fifteen_min_bicycle_counts", fifteenMin); err != nil {
		return err
	}
	log.Info("loaded raw tables")
	return nil
}

func (p *Pipeline) loadGroups(ctx context.Context, log *zap.Logger, locations []counters.CounterLocation) error {
	groups := p.grouper.GroupLocations(locations)
	if err := p.store.Replace(ctx, "location_groups", counters.LocationGroupRows(groups)); err != nil {
		return err
	}
	log.Info("rebuilt location groups", zap.Int("groups", len(groups)))
	return nil
}

func (p *Pipeline) loadRollups(ctx context.Context, log *zap.Logger, daily []counters.DailyCount, fifteenMin []counters.FifteenMinCount) error {
	if err := p.store.Replace(ctx, "hourly_bicycle_counts", p.agg.HourlyRollup(fifteenMin)); err != nil {
		return err
	}
	if err := p.store.Replace(ctx, "monthly_bicycle_counts", p.agg.MonthlyRollup(daily)); err != nil {
		return err
	}
	if err := p.store.Replace(ctx, "annual_bicycle_counts", p.agg.AnnualRollup(daily)); err != nil {
		return err
	}
	if err := p.store.Replace(ctx, "fifteen_min_counts_by_year_and_month", p.agg.TypicalDayRollup(fifteenMin)); err != nil {
		return err
	}

	overall, err := p.agg.GroupStatsOverallRollup(daily)
	if err != nil {
		return fmt.Errorf("overall group stats: %w", err)
	}
	if err := p.store.Replace(ctx, "location_group_stats_overall", overall); err != nil {
		return err
	}

	yearly, err := p.agg.GroupStatsYearlyRollup(daily)
	if err != nil {
		return fmt.Errorf("yearly group stats: %w", err)
	}
	if err := p.store.Replace(ctx, "location_group_stats_yearly", yearly); err != nil {
		return err
	}

	monthly, err := p.agg.GroupStatsMonthlyRollup(daily)
	if err != nil {
		return fmt.Errorf("monthly group stats: %w", err)
	}
	if err := p.store.Replace(ctx, "location_group_stats_monthly", monthly); err != nil {
		return err
	}

	weekly, err := p.agg.GroupStatsWeeklyRollup(daily)
	if err != nil {
		return fmt.Errorf("weekly group stats: %w", err)
	}
	if err := p.store.Replace(ctx, "location_group_stats_weekly", weekly); err != nil {
		return err
	}

	log.Info("rebuilt rollup tables")
	return nil
}

func (p *Pipeline) writeSnapshots(log *zap.Logger, daily []counters.DailyCount, fifteenMin []counters.FifteenMinCount) error {
	dailyPath := filepath.Join(p.snaps.Dir, p.snaps.DailyFile)
	if err := snapshot.WriteDailyCounts(dailyPath, daily, true); err != nil {
		return err
	}
	fifteenPath := filepath.Join(p.snaps.Dir, p.snaps.FifteenMinFile)
	if err := snapshot.WriteFifteenMinCounts(fifteenPath, fifteenMin, true); err != nil {
		return err
	}
	log.Info("wrote snapshot files",
		zap.String("daily", dailyPath),
		zap.String("fifteen_min", fifteenPath))
	return nil
}
