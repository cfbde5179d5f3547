package counters_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/TorontoBikeTraffic/BT-Backend/internal/counters"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/snapshot"
)

// newTestRouter writes snapshot files into a temp dir and mounts the API
// routes over them, so range endpoints run the real parquet read path.
func newTestRouter(t *testing.T, daily []counters.DailyCount, fifteen []counters.FifteenMinCount) http.Handler {
	t.Helper()

	dir := t.TempDir()
	dailyPath := filepath.Join(dir, "counts_daily.parquet")
	fifteenPath := filepath.Join(dir, "counts_15m.parquet")
	if err := snapshot.WriteDailyCounts(dailyPath, daily, true); err != nil {
		t.Fatalf("write daily snapshot: %v", err)
	}
	if err := snapshot.WriteFifteenMinCounts(fifteenPath, fifteen, true); err != nil {
		t.Fatalf("write 15-min snapshot: %v", err)
	}

	h := counters.NewHandler(snapshot.NewCache(dailyPath, fifteenPath))
	return counters.SetupRoutes(h, 5*time.Second)
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// TestRangeEndpoints_MissingParams verifies missing date parameters
// produce a 400 with a JSON error body.
func TestRangeEndpoints_MissingParams(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	for _, target := range []string{
		"/avg-daily-vol-for-date-range",
		"/daily-counts-in-date-range?start=2024-01-01",
		"/fifteen-min-counts-for-date-range?end=2024-01-01",
	} {
		rec := get(t, router, target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: body is not JSON: %v", target, err)
		}
		if body["error"] == "" {
			t.Errorf("%s: expected an error field, got %q", target, rec.Body.String())
		}
	}
}

// TestRangeEndpoints_InvalidDate verifies a malformed date produces a 400.
func TestRangeEndpoints_InvalidDate(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rec := get(t, router, "/avg-daily-vol-for-date-range?start=01/02/2024&end=2024-01-31")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

// TestAvgDailyVol_SingleDayVsRange verifies the raw-vs-averaged split on
// the average endpoint.
func TestAvgDailyVol_SingleDayVsRange(t *testing.T) {
	daily := []counters.DailyCount{
		{RecordID: 1, LocationDirID: "1", Dt: "2024-01-01", DailyVolume: 10},
		{RecordID: 2, LocationDirID: "1", Dt: "2024-01-02", DailyVolume: 20},
	}
	router := newTestRouter(t, daily, nil)

	rec := get(t, router, "/avg-daily-vol-for-date-range?start=2024-01-01&end=2024-01-01")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var singleDay []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &singleDay); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(singleDay) != 1 || singleDay[0]["avg_daily_volume"].(float64) != 10 {
		t.Errorf("expected one raw row with volume 10, got %v", singleDay)
	}

	rec = get(t, router, "/avg-daily-vol-for-date-range?start=2024-01-01&end=2024-01-31")
	var averaged []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &averaged); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(averaged) != 1 || averaged[0]["avg_daily_volume"].(float64) != 15 {
		t.Errorf("expected one averaged row with volume 15, got %v", averaged)
	}
}

// TestDailyCountsInDateRange_Empty verifies an empty result is a 200 with
// an empty collection.
func TestDailyCountsInDateRange_Empty(t *testing.T) {
	daily := []counters.DailyCount{
		{RecordID: 1, LocationDirID: "1", Dt: "2020-01-01", DailyVolume: 10},
	}
	router := newTestRouter(t, daily, nil)

	rec := get(t, router, "/daily-counts-in-date-range?start=2024-01-01&end=2024-01-31")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "[]\n" {
		t.Errorf("expected empty collection, got %q", rec.Body.String())
	}
}

// TestDailyCountsInDateRange_GroupsByDate verifies response nesting.
func TestDailyCountsInDateRange_GroupsByDate(t *testing.T) {
	daily := []counters.DailyCount{
		{RecordID: 1, LocationDirID: "1", Dt: "2024-01-01", DailyVolume: 10},
		{RecordID: 2, LocationDirID: "2", Dt: "2024-01-01", DailyVolume: 20},
	}
	router := newTestRouter(t, daily, nil)

	rec := get(t, router, "/daily-counts-in-date-range?start=2024-01-01&end=2024-01-02")
	var grouped map[string][]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &grouped); err != nil {
		t.Fatalf("decode: %v", err)
	}
	rows := grouped["Mon, 01 Jan 2024 00:00:00 GMT"]
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows under Jan 1, got %v", grouped)
	}
}

// TestFifteenMinCountsForDateRange verifies the per-time-bin averages.
func TestFifteenMinCountsForDateRange(t *testing.T) {
	fifteen := []counters.FifteenMinCount{
		{RecordID: 1, LocationDirID: "1", DatetimeBin: "2024-01-01 08:00:00", BinVolume: 10},
		{RecordID: 2, LocationDirID: "1", DatetimeBin: "2024-01-02 08:00:00", BinVolume: 20},
	}
	router := newTestRouter(t, nil, fifteen)

	rec := get(t, router, "/fifteen-min-counts-for-date-range?start=2024-01-01&end=2024-01-03")
	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 bin, got %d", len(out))
	}
	if out[0]["time_bin"] != "08:00:00" || out[0]["avg_bin_volume"].(float64) != 15 {
		t.Errorf("unexpected bin average: %v", out[0])
	}
}

func TestHiHandler(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rec := get(t, router, "/hi")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body)
	}
}
