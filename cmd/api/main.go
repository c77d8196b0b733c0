package main

import (
	"log/slog"
	"os"

	"rustedcrab/trainset/configs"
	"rustedcrab/trainset/internal/api"
	"rustedcrab/trainset/internal/balancer"
	"rustedcrab/trainset/internal/features"
	"rustedcrab/trainset/internal/labeler"
	"rustedcrab/trainset/internal/pipeline"
	"rustedcrab/trainset/internal/storage"
)

func main() {
	appConfig := configs.AppLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	store, err := storage.NewClickHouseStorage(appConfig.DBDSN)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	pcfg := appConfig.Pipeline
	calc := features.NewCalculator(features.Config{
		BarIntervalMS: pcfg.BarIntervalMS,
		RSIWindow:     pcfg.RSIWindow,
		VolWindow:     pcfg.VolWindow,
	}, logger)
	lab := labeler.New(labeler.Config{
		Horizon:       pcfg.BarrierHorizon,
		Multiplier:    pcfg.BarrierMultiplier,
		FloorFraction: pcfg.BarrierFloorFraction,
	})
	bal := balancer.New(balancer.Config{
		HoldCapMultiplier: pcfg.HoldCapMultiplier,
	}, nil)

	pipe := pipeline.New(store, calc, lab, bal, logger, pipeline.Config{Workers: pcfg.Workers})

	datasetService := api.NewDatasetService(pipe, store, logger)
	datasetHandler := api.NewDatasetHandler(datasetService)

	router := api.NewRouter(&api.RouterConfig{
		DatasetHandler: datasetHandler,
	})

	logger.Info("API server starting", "addr", appConfig.APIAddr)
	if err := router.Run(appConfig.APIAddr); err != nil {
		logger.Error("API server stopped", "error", err)
		os.Exit(1)
	}
}
