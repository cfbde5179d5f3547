package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/TorontoBikeTraffic/BT-Backend/internal/counters"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/store"
)

// TestReplace_UnknownRelation verifies an invalid relation name is
// rejected before any write is attempted.
func TestReplace_UnknownRelation(t *testing.T) {
	s := store.New(nil)

	err := s.Replace(context.Background(), "users; drop table users", []counters.HourlyCount{})
	if !errors.Is(err, store.ErrUnknownRelation) {
		t.Errorf("expected ErrUnknownRelation, got %v", err)
	}
}

func TestUpsert_UnknownRelation(t *testing.T) {
	s := store.New(nil)

	err := s.Upsert(context.Background(), "not_a_table", []counters.DailyCount{})
	if !errors.Is(err, store.ErrUnknownRelation) {
		t.Errorf("expected ErrUnknownRelation, got %v", err)
	}
}

func TestAllowed(t *testing.T) {
	known := []string{
		"bicycle_counters",
		"daily_bicycle_counts",
		"fifteen_min_bicycle_counts",
		"location_groups",
		"hourly_bicycle_counts",
		"monthly_bicycle_counts",
		"annual_bicycle_counts",
		"fifteen_min_counts_by_year_and_month",
		"location_group_stats_overall",
		"location_group_stats_yearly",
		"location_group_stats_monthly",
		"location_group_stats_weekly",
	}
	for _, name := range known {
		if !store.Allowed(name) {
			t.Errorf("expected %q to be a known relation", name)
		}
	}
	if store.Allowed("weekly_widgets") {
		t.Error("unexpected relation allowed")
	}
}
