package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"rustedcrab/trainset/configs"
	"rustedcrab/trainset/internal/collector"
	"rustedcrab/trainset/internal/metrics"
)

func main() {
	kind := flag.String("kind", "all", "what to collect: trades, depth, or all")
	flag.Parse()

	appConfig := configs.AppLoad()
	logger := collector.NewLogger()

	slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *kind != "trades" && *kind != "depth" && *kind != "all" {
		logger.Fatalf("Unknown -kind %q (use: trades, depth, all)", *kind)
	}
	if len(appConfig.Collector.Symbols) == 0 {
		logger.Fatal("No symbols configured, set COLLECTOR_SYMBOLS")
	}

	metricsServer := metrics.Serve(appConfig.MetricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	workers := 0

	if *kind == "trades" || *kind == "all" {
		tradeProducer := collector.NewProducer(appConfig.KafkaTrades.Broker, appConfig.KafkaTrades.Topic, logger)
		defer tradeProducer.Close()

		tradeStream := collector.NewTradeStream(appConfig.Collector.WSBaseURL, tradeProducer, logger)
		chunks := collector.ChunkSymbols(appConfig.Collector.Symbols, appConfig.Collector.MaxSubsPerConnection)
		for _, chunk := range chunks {
			wg.Add(1)
			go tradeStream.RunWorker(ctx, chunk, &wg)
			workers++
		}
	}

	if *kind == "depth" || *kind == "all" {
		depthProducer := collector.NewProducer(appConfig.KafkaDepth.Broker, appConfig.KafkaDepth.Topic, logger)
		defer depthProducer.Close()

		depthPoller := collector.NewDepthPoller(
			appConfig.Collector.RESTBaseURL,
			appConfig.Collector.DepthLimit,
			appConfig.Collector.DepthRequestsPerSecond,
			depthProducer,
			slogger,
		)
		for _, symbol := range appConfig.Collector.Symbols {
			wg.Add(1)
			go depthPoller.RunWorker(ctx, symbol, &wg)
			workers++
		}
	}

	logger.Infof("Collector started: kind=%s, %d symbols, %d workers", *kind, len(appConfig.Collector.Symbols), workers)

	<-ctx.Done()
	logger.Info("Received shutdown signal, gracefully shutting down...")

	wg.Wait()
	metricsServer.Close()
	logger.Info("Collector shutdown complete")
}
