package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/TorontoBikeTraffic/BT-Backend/internal/config"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/counters"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/db"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/opendata"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/pipeline"
	"github.com/TorontoBikeTraffic/BT-Backend/internal/store"
)

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

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to create logger: ", err)
	}
	defer logger.Sync()

	db.Connect(cfg.Database.Path)
	st := store.New(db.DB)
	if err := st.Migrate(); err != nil {
		logger.Fatal("failed to migrate tables", zap.Error(err))
	}

	od := opendata.NewClient(cfg.OpenData.BaseURL, cfg.OpenData.RequestsPerSec, cfg.OpenData.Burst)
	fetcher := counters.NewClient(od, cfg.OpenData, logger)
	grouper := counters.NewGrouper(counters.GroupingOptions{
		FoldCase:           cfg.Grouping.FoldCase,
		CollapseWhitespace: cfg.Grouping.CollapseWhitespace,
	}, logger)
	agg := counters.NewAggregator(cfg.Aggregation.TypicalDayCutoff, logger)

	p := pipeline.New(fetcher, st, grouper, agg, cfg.Snapshots, logger)
	if err := p.Run(context.Background()); err != nil {
		logger.Fatal("pipeline run failed", zap.Error(err))
	}
}
