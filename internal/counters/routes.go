package counters

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func SetupRoutes(h *Handler, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Get("/hi", h.HiHandler)

	r.Get("/bicycle_counters", h.BicycleCountersHandler)
	r.Get("/daily_counts", h.DailyCountsHandler)
	r.Get("/monthly_counts", h.MonthlyCountsHandler)
	r.Get("/annual_counts", h.AnnualCountsHandler)

	r.Get("/counter-locations", h.CounterLocationsHandler)
	r.Get("/location-groups", h.LocationGroupsHandler)

	// Snapshot scans can be large; bound them per request.
	r.Group(func(r chi.Router) {
		if timeout > 0 {
			r.Use(chimiddleware.Timeout(timeout))
		}
		r.Get("/daily-counts-in-date-range", h.DailyCountsInDateRangeHandler)
		r.Get("/fifteen-min-counts-for-date-range", h.FifteenMinCountsForDateRangeHandler)
		r.Get("/avg-daily-vol-for-date-range", h.AvgDailyVolForDateRangeHandler)
	})

	return r
}
