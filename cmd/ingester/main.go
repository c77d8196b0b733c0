package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"gorm.io/driver/clickhouse"
	"gorm.io/gorm"

	"rustedcrab/trainset/configs"
	"rustedcrab/trainset/internal/ingester"
	"rustedcrab/trainset/internal/metrics"
	"rustedcrab/trainset/internal/storage"
)

func newReader(broker, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{broker},
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: 0,    // Important: We handle commits manually in Ingester!
	})
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	appConfig := configs.AppLoad()

	db, err := gorm.Open(clickhouse.Open(appConfig.DBDSN), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to connect to DB", "error", err)
		os.Exit(1)
	}

	tradeReader := newReader(appConfig.KafkaTrades.Broker, appConfig.KafkaTrades.Topic, appConfig.KafkaTrades.GroupID)
	defer tradeReader.Close()

	depthReader := newReader(appConfig.KafkaDepth.Broker, appConfig.KafkaDepth.Topic, appConfig.KafkaDepth.GroupID)
	defer depthReader.Close()

	cfg := ingester.Config{
		BatchSize:    appConfig.Ingester.BatchSize,
		BatchTimeout: time.Duration(appConfig.Ingester.BatchTimeoutSeconds) * time.Second,
	}

	tradeIngester := ingester.NewTradeIngester(tradeReader, storage.NewGormTradeWriter(db), logger, cfg)
	bookIngester := ingester.NewBookIngester(depthReader, storage.NewGormBookWriter(db), logger, cfg)

	metricsServer := metrics.Serve(appConfig.MetricsAddr)

	// Run with Graceful Shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Ingester started successfully")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := tradeIngester.Start(ctx); err != nil {
			logger.Error("Trade ingester stopped with error", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := bookIngester.Start(ctx); err != nil {
			logger.Error("Book ingester stopped with error", "error", err)
		}
	}()

	wg.Wait()
	metricsServer.Close()
	logger.Info("Ingester shutdown complete")
}
