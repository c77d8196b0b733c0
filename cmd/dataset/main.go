package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"rustedcrab/trainset/configs"
	"rustedcrab/trainset/internal/balancer"
	"rustedcrab/trainset/internal/dataset"
	"rustedcrab/trainset/internal/features"
	"rustedcrab/trainset/internal/labeler"
	"rustedcrab/trainset/internal/pipeline"
	"rustedcrab/trainset/internal/storage"
)

func main() {
	sourceName := flag.String("source", "clickhouse", "data source: clickhouse or postgres")
	format := flag.String("format", "parquet", "output format: parquet, csv, or json")
	out := flag.String("out", "", "output path (default: training_data.<ext>)")
	seed := flag.Int64("seed", 0, "balancer seed, 0 uses a time-based seed")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	appConfig := configs.AppLoad()

	writer := dataset.NewWriter(*format)
	if writer == nil {
		logger.Error("Unsupported output format", "format", *format)
		os.Exit(1)
	}

	src, err := openSource(*sourceName, appConfig)
	if err != nil {
		logger.Error("Failed to open data source", "source", *sourceName, "error", err)
		os.Exit(1)
	}
	defer src.Close()

	var rng *rand.Rand
	if *seed != 0 {
		rng = rand.New(rand.NewSource(*seed))
	}

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
	}, rng)

	pipe := pipeline.New(src, calc, lab, bal, logger, pipeline.Config{Workers: pcfg.Workers})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	samples, err := pipe.Run(ctx)
	if err != nil {
		logger.Error("Dataset build failed", "error", err)
		os.Exit(1)
	}
	if len(samples) == 0 {
		logger.Warn("No samples produced, nothing to write")
		return
	}

	path := *out
	if path == "" {
		path = fmt.Sprintf("training_data.%s", writer.Extension())
	}

	if err := writer.Write(samples, path); err != nil {
		logger.Error("Failed to write dataset", "path", path, "error", err)
		os.Exit(1)
	}

	logger.Info("Dataset written", "path", path, "samples", len(samples))
}

// closableSource is a pipeline source backed by a database connection.
type closableSource interface {
	pipeline.Source
	Close() error
}

func openSource(name string, cfg *configs.AppConfig) (closableSource, error) {
	switch name {
	case "clickhouse":
		return storage.NewClickHouseStorage(cfg.DBDSN)
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is not set")
		}
		return storage.NewPostgresSource(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown source %q", name)
	}
}
