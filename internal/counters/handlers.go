package counters

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/TorontoBikeTraffic/BT-Backend/internal/db"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/query"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/snapshot"
)

// Handler serves the read-only API. Table dumps come from the relational
// store; range queries come from the parquet snapshots through the cache.
type Handler struct {
	Snapshots *snapshot.Cache
}

func NewHandler(cache *snapshot.Cache) *Handler {
	return &Handler{Snapshots: cache}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) HiHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "hello from toronto-bike-traffic API",
	})
}

// dumpTables are the relations exposed as full-table dumps.
var dumpTables = map[string]struct{}{
	"bicycle_counters":       {},
	"daily_bicycle_counts":   {},
	"monthly_bicycle_counts": {},
	"annual_bicycle_counts":  {},
}

func (h *Handler) tableDump(w http.ResponseWriter, r *http.Request, table string) {
	if _, ok := dumpTables[table]; !ok {
		respondError(w, http.StatusBadRequest, "Invalid table name: "+table)
		return
	}

	var items []map[string]any
	if err := db.Session(r.Context()).Table(table).Find(&items).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if items == nil {
		items = []map[string]any{}
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handler) BicycleCountersHandler(w http.ResponseWriter, r *http.Request) {
	h.tableDump(w, r, "bicycle_counters")
}

func (h *Handler) DailyCountsHandler(w http.ResponseWriter, r *http.Request) {
	h.tableDump(w, r, "daily_bicycle_counts")
}

func (h *Handler) MonthlyCountsHandler(w http.ResponseWriter, r *http.Request) {
	h.tableDump(w, r, "monthly_bicycle_counts")
}

func (h *Handler) AnnualCountsHandler(w http.ResponseWriter, r *http.Request) {
	h.tableDump(w, r, "annual_bicycle_counts")
}

func parseRange(w http.ResponseWriter, r *http.Request) (query.DateRange, bool) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" || end == "" {
		respondError(w, http.StatusBadRequest, "Missing start or end date")
		return query.DateRange{}, false
	}
	rng, err := query.ParseRange(start, end)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD.")
		return query.DateRange{}, false
	}
	return rng, true
}

func (h *Handler) DailyCountsInDateRangeHandler(w http.ResponseWriter, r *http.Request) {
	rng, ok := parseRange(w, r)
	if !ok {
		return
	}

	rows, err := h.Snapshots.DailyCounts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load daily counts: "+err.Error())
		return
	}

	grouped := query.DailyByDate(rows, rng)
	if len(grouped) == 0 {
		respondJSON(w, http.StatusOK, []any{})
		return
	}
	respondJSON(w, http.StatusOK, grouped)
}

func (h *Handler) FifteenMinCountsForDateRangeHandler(w http.ResponseWriter, r *http.Request) {
	rng, ok := parseRange(w, r)
	if !ok {
		return
	}

	rows, err := h.Snapshots.FifteenMinCounts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load 15-min counts: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, query.FifteenMinAverages(rows, rng))
}

func (h *Handler) AvgDailyVolForDateRangeHandler(w http.ResponseWriter, r *http.Request) {
	rng, ok := parseRange(w, r)
	if !ok {
		return
	}

	rows, err := h.Snapshots.DailyCounts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load daily counts: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, query.AvgDailyVolume(rows, rng))
}

// CounterLocationsHandler returns counter geometry, optionally filtered
// to a single location_dir_id.
func (h *Handler) CounterLocationsHandler(w http.ResponseWriter, r *http.Request) {
	session := db.Session(r.Context())
	if idStr := r.URL.Query().Get("location_dir_id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid location_dir_id")
			return
		}
		session = session.Where("location_dir_id = ?", id)
	}

	var locs []CounterLocation
	if err := session.Find(&locs).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch counter locations: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, locs)
}

// LocationGroupsHandler returns group geometry, optionally filtered to
// groups containing a given location_dir_id.
func (h *Handler) LocationGroupsHandler(w http.ResponseWriter, r *http.Request) {
	var groups []LocationGroup
	if err := db.Session(r.Context()).Find(&groups).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch location groups: "+err.Error())
		return
	}

	idStr := r.URL.Query().Get("location_dir_id")
	if idStr == "" {
		respondJSON(w, http.StatusOK, groups)
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid location_dir_id")
		return
	}

	filtered := make([]LocationGroup, 0)
	for _, group := range groups {
		var members []int64
		if err := json.Unmarshal([]byte(group.LocationDirIDs), &members); err != nil {
			continue
		}
		for _, member := range members {
			if member == id {
				filtered = append(filtered, group)
				break
			}
		}
	}
	respondJSON(w, http.StatusOK, filtered)
}
