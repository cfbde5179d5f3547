package middleware

import (
	"net/http"
)

var allowed = map[string]struct{}{
	"http://localhost:3000":                   {},
	"https://localhost:3000":                  {},
	"http://127.0.0.1:5050":                   {},
	"https://toronto-bike-traffic.vercel.app": {},
	"http://www.torontobiketraffic.ca":        {},
	"https://www.torontobiketraffic.ca":       {},
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Echo the origin back only if it’s on our allow-list
		if _, ok := allowed[origin]; ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin") // important for caches
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
