// Package ingester provides Kafka-to-ClickHouse data ingestion.
// This file handles aggTrade ingestion only.
package ingester

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"rustedcrab/trainset/internal/metrics"
	"rustedcrab/trainset/internal/models"
	"rustedcrab/trainset/internal/storage"

	"github.com/segmentio/kafka-go"
)

// Config holds shared ingester batch settings.
type Config struct {
	BatchSize    int
	BatchTimeout time.Duration
}

// TradeIngester consumes aggTrades from Kafka and writes to storage.
type TradeIngester struct {
	reader *kafka.Reader
	writer storage.TradeWriter
	logger *slog.Logger
	cfg    Config
}

// NewTradeIngester creates a new trade ingester.
func NewTradeIngester(reader *kafka.Reader, writer storage.TradeWriter, logger *slog.Logger, cfg Config) *TradeIngester {
	return &TradeIngester{
		reader: reader,
		writer: writer,
		logger: logger,
		cfg:    cfg,
	}
}

// Start runs the trade ingestion loop until context is cancelled.
func (ti *TradeIngester) Start(ctx context.Context) error {
	ti.logger.Info("Starting Trade Ingester", "batch_size", ti.cfg.BatchSize)

	batch := make([]*models.AggTrade, 0, ti.cfg.BatchSize)
	msgs := make([]kafka.Message, 0, ti.cfg.BatchSize)

	ticker := time.NewTicker(ti.cfg.BatchTimeout)
	defer ticker.Stop()

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		for {
			if err := ti.writer.CreateAggTrades(ctx, batch); err != nil {
				ti.logger.Error("DB insert failed, retrying", "error", err, "count", len(batch))
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(2 * time.Second):
					continue
				}
			}
			break
		}

		if err := ti.reader.CommitMessages(ctx, msgs...); err != nil {
			ti.logger.Warn("Failed to commit offsets", "error", err)
		}

		metrics.TradesIngested.Add(float64(len(batch)))
		ti.logger.Debug("Flushed trades", "count", len(batch))
		batch = batch[:0]
		msgs = msgs[:0]
		ticker.Reset(ti.cfg.BatchTimeout)
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return flush()

		case <-ticker.C:
			if err := flush(); err != nil {
				return err
			}

		default:
			fetchCtx, cancel := context.WithTimeout(ctx, ti.cfg.BatchTimeout)
			m, err := ti.reader.FetchMessage(fetchCtx)
			cancel()

			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				if errors.Is(err, context.Canceled) {
					return nil
				}
				ti.logger.Error("Kafka fetch error", "error", err)
				select {
				case <-ctx.Done():
					return flush()
				case <-time.After(time.Second):
				}
				continue
			}

			trade, err := parseTradeMessage(m)
			if err != nil {
				metrics.RecordsRejected.WithLabelValues("trade").Inc()
				ti.logger.Debug("Parse error", "error", err)
				continue
			}

			batch = append(batch, trade)
			msgs = append(msgs, m)

			if len(batch) >= ti.cfg.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
}

// parseTradeMessage deserializes and validates a Kafka trade message.
func parseTradeMessage(msg kafka.Message) (*models.AggTrade, error) {
	var t models.AggTrade
	if err := json.Unmarshal(msg.Value, &t); err != nil {
		return nil, fmt.Errorf("decoding trade: %w", err)
	}

	if t.Symbol == "" {
		return nil, fmt.Errorf("missing symbol")
	}
	if t.Time <= 0 {
		return nil, fmt.Errorf("invalid time")
	}
	if math.IsNaN(t.Price) || math.IsInf(t.Price, 0) ||
		math.IsNaN(t.Quantity) || math.IsInf(t.Quantity, 0) {
		return nil, fmt.Errorf("corrupted numeric data")
	}
	if t.Price <= 0 || t.Quantity <= 0 {
		return nil, fmt.Errorf("invalid price or quantity")
	}

	return &t, nil
}
