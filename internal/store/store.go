// Package store writes raw tables and rollup relations to the relational
// store. Relation names are validated against a registry before any write;
// rollup writes replace the whole relation inside one transaction so a
// re-run either fully lands or leaves the prior rows untouched.
package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/TorontoBikeTraffic/BT-Backend/internal/counters"
)

// ErrUnknownRelation is returned for a relation name not in the registry.
var ErrUnknownRelation = errors.New("unknown relation")

// relations maps relation names to a prototype of their row model.
var relations = map[string]any{
	"bicycle_counters":                     &counters.CounterLocation{},
	"daily_bicycle_counts":                 &counters.DailyCount{},
	"fifteen_min_bicycle_counts":           &counters.FifteenMinCount{},
	"location_groups":                      &counters.LocationGroup{},
	"hourly_bicycle_counts":                &counters.HourlyCount{},
	"monthly_bicycle_counts":               &counters.MonthlyCount{},
	"annual_bicycle_counts":                &counters.AnnualCount{},
	"fifteen_min_counts_by_year_and_month": &counters.FifteenMinMonthlyAvg{},
	"location_group_stats_overall":         &counters.GroupStatsOverall{},
	"location_group_stats_yearly":          &counters.GroupStatsYearly{},
	"location_group_stats_monthly":         &counters.GroupStatsMonthly{},
	"location_group_stats_weekly":          &counters.GroupStatsWeekly{},
}

// Allowed reports whether name is a known relation.
func Allowed(name string) bool {
	_, ok := relations[name]
	return ok
}

const batchSize = 1000

// Store is the relational persistence adapter.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates every registered table and its indexes.
func (s *Store) Migrate() error {
	models := make([]any, 0, len(relations))
	for _, model := range relations {
		models = append(models, model)
	}
	return s.db.AutoMigrate(models...)
}

// Upsert inserts rows into the named relation, replacing rows that share
// the natural key. Used for the raw tables, which accumulate across runs.
func (s *Store) Upsert(ctx context.Context, name string, rows any) error {
	model, ok := relations[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRelation, name)
	}
	if rowCount(rows) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Model(model).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(rows, batchSize).Error
	if err != nil {
		return fmt.Errorf("upsert %s: %w", name, err)
	}
	return nil
}

// Replace swaps the entire named relation for the given rows atomically.
// Insert order is preserved, so a sorted input stays sorted on read-back.
func (s *Store) Replace(ctx context.Context, name string, rows any) error {
	model, ok := relations[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRelation, name)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return err
		}
		if rowCount(rows) == 0 {
			return nil
		}
		return tx.Model(model).CreateInBatches(rows, batchSize).Error
	})
	if err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func rowCount(rows any) int {
	v := reflect.ValueOf(rows)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() == reflect.Slice {
		return v.Len()
	}
	return 1
}
