package counters_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/TorontoBikeTraffic/BT-Backend/internal/config"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/counters"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/opendata"
)

func newCountersClient(t *testing.T, resources map[string]string) *counters.Client {
	t.Helper()

	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/package_show", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success": true, "result": {"resources": [`)
		first := true
		for name := range resources {
			if !first {
				fmt.Fprint(w, ",")
			}
			first = false
			fmt.Fprintf(w, `{"name": %q, "url": %q}`, name, server.URL+"/download/"+name)
		}
		fmt.Fprint(w, `]}}`)
	})
	mux.HandleFunc("/download/", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path[len("/download/"):]
		body, ok := resources[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := config.OpenDataConfig{
		BaseURL:   server.URL,
		PackageID: "pkg-1",
		Resources: config.ResourcesConfig{
			Locations:  "locations_geojson",
			Daily:      "daily.json",
			FifteenMin: []string{"15min_a.json", "15min_b.json"},
		},
	}
	od := opendata.NewClient(server.URL, 100, 10)
	return counters.NewClient(od, cfg, zap.NewNop())
}

// TestDailyCounts_NormalizesAndDrops verifies timestamp dates normalize
// to YYYY-MM-DD and malformed records are dropped, not fatal.
func TestDailyCounts_NormalizesAndDrops(t *testing.T) {
	client := newCountersClient(t, map[string]string{
		"daily.json": `[
			{"_id": 1, "location_dir_id": "7", "location_name": "Bloor St", "dt": "2024-01-01T00:00:00", "daily_volume": 10},
			{"_id": 2, "location_dir_id": 8, "location_name": "College St", "dt": "2024-01-02", "daily_volume": 20},
			{"_id": 3, "location_dir_id": "9", "location_name": "Broken", "dt": "bad", "daily_volume": 5},
			{"_id": 4, "location_dir_id": "9", "location_name": "Negative", "dt": "2024-01-03", "daily_volume": -1}
		]`,
	})

	counts := client.DailyCounts(context.Background())

	if len(counts) != 2 {
		t.Fatalf("expected 2 surviving records, got %d", len(counts))
	}
	if counts[0].Dt != "2024-01-01" {
		t.Errorf("expected normalized date, got %q", counts[0].Dt)
	}
	if counts[1].LocationDirID != "8" {
		t.Errorf("expected numeric id coerced to string, got %q", counts[1].LocationDirID)
	}
}

// TestFifteenMinCounts_AppendsResources verifies all split resources are
// fetched and a missing one is skipped without failing the rest.
func TestFifteenMinCounts_AppendsResources(t *testing.T) {
	client := newCountersClient(t, map[string]string{
		"15min_a.json": `[{"_id": 1, "location_dir_id": "1", "datetime_bin": "2024-01-01T08:00:00", "bin_volume": 3}]`,
		// 15min_b.json is absent from the portal.
	})

	counts := client.FifteenMinCounts(context.Background())

	if len(counts) != 1 {
		t.Fatalf("expected 1 record, got %d", len(counts))
	}
	if counts[0].DatetimeBin != "2024-01-01 08:00:00" {
		t.Errorf("expected space-separated bin, got %q", counts[0].DatetimeBin)
	}
}

// TestCounterLocations_DecodesGeoJSON verifies feature decoding including
// raw geometry passthrough.
func TestCounterLocations_DecodesGeoJSON(t *testing.T) {
	client := newCountersClient(t, map[string]string{
		"locations_geojson": `{"type": "FeatureCollection", "features": [
			{"type": "Feature", "id": 1,
			 "geometry": {"type": "Point", "coordinates": [-79.41, 43.66]},
			 "properties": {"location_dir_id": 7, "location_name": "Bloor St", "last_active": "2024-06-01", "direction": "EB"}}
		]}`,
	})

	locs := client.CounterLocations(context.Background())

	if len(locs) != 1 {
		t.Fatalf("expected 1 location, got %d", len(locs))
	}
	if locs[0].LocationDirID != 7 || locs[0].GeomType != "Point" {
		t.Errorf("unexpected location: %+v", locs[0])
	}
	if locs[0].Coordinates != "[-79.41, 43.66]" {
		t.Errorf("expected raw coordinates preserved, got %q", locs[0].Coordinates)
	}
}

// TestFetchFailure_TreatedAsEmpty verifies an unreachable portal yields
// empty data rather than an error.
func TestFetchFailure_TreatedAsEmpty(t *testing.T) {
	cfg := config.OpenDataConfig{
		BaseURL:   "http://127.0.0.1:1", // nothing listens here
		PackageID: "pkg-1",
		Resources: config.ResourcesConfig{
			Locations:  "locations_geojson",
			Daily:      "daily.json",
			FifteenMin: []string{"15min.json"},
		},
	}
	od := opendata.NewClient(cfg.BaseURL, 100, 10)
	client := counters.NewClient(od, cfg, zap.NewNop())

	if got := client.DailyCounts(context.Background()); len(got) != 0 {
		t.Errorf("expected empty daily counts, got %d", len(got))
	}
	if got := client.CounterLocations(context.Background()); len(got) != 0 {
		t.Errorf("expected empty locations, got %d", len(got))
	}
}
