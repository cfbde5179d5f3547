package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/TorontoBikeTraffic/BT-Backend/internal/config"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/counters"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/db"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/middleware"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/snapshot"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/store"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	db.Connect(cfg.Database.Path)
	if err := store.New(db.DB).Migrate(); err != nil {
		log.Fatal("Failed to migrate tables: ", err)
	}

	cache := snapshot.NewCache(
		filepath.Join(cfg.Snapshots.Dir, cfg.Snapshots.DailyFile),
		filepath.Join(cfg.Snapshots.Dir, cfg.Snapshots.FifteenMinFile),
	)
	handler := counters.NewHandler(cache)

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Get("/", RootHandler)

	timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
	r.Mount("/api/v1", counters.SetupRoutes(handler, timeout))

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)
	fmt.Printf("Server listening on port :%d...\n", cfg.Server.Port)

	http.ListenAndServe(addr, r)
}
