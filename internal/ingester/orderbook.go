// This file handles orderbook snapshot ingestion only.
package ingester

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rustedcrab/trainset/internal/metrics"
	"rustedcrab/trainset/internal/models"
	"rustedcrab/trainset/internal/storage"

	"github.com/segmentio/kafka-go"
)

// BookIngester consumes orderbook snapshots from Kafka and writes to
// storage.
type BookIngester struct {
	reader *kafka.Reader
	writer storage.BookWriter
	logger *slog.Logger
	cfg    Config
}

// NewBookIngester creates a new orderbook snapshot ingester.
func NewBookIngester(reader *kafka.Reader, writer storage.BookWriter, logger *slog.Logger, cfg Config) *BookIngester {
	return &BookIngester{
		reader: reader,
		writer: writer,
		logger: logger,
		cfg:    cfg,
	}
}

// Start runs the snapshot ingestion loop until context is cancelled.
func (bi *BookIngester) Start(ctx context.Context) error {
	bi.logger.Info("Starting Book Ingester", "batch_size", bi.cfg.BatchSize)

	batch := make([]*models.OrderBookSnapshot, 0, bi.cfg.BatchSize)
	msgs := make([]kafka.Message, 0, bi.cfg.BatchSize)

	ticker := time.NewTicker(bi.cfg.BatchTimeout)
	defer ticker.Stop()

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		for {
			if err := bi.writer.CreateOrderBookSnapshots(ctx, batch); err != nil {
				bi.logger.Error("DB insert failed, retrying", "error", err, "count", len(batch))
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(2 * time.Second):
					continue
				}
			}
			break
		}

		if err := bi.reader.CommitMessages(ctx, msgs...); err != nil {
			bi.logger.Warn("Failed to commit offsets", "error", err)
		}

		metrics.SnapshotsIngested.Add(float64(len(batch)))
		bi.logger.Debug("Flushed snapshots", "count", len(batch))
		batch = batch[:0]
		msgs = msgs[:0]
		ticker.Reset(bi.cfg.BatchTimeout)
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
			fetchCtx, cancel := context.WithTimeout(ctx, bi.cfg.BatchTimeout)
			m, err := bi.reader.FetchMessage(fetchCtx)
			cancel()

			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				if errors.Is(err, context.Canceled) {
					return nil
				}
				bi.logger.Error("Kafka fetch error", "error", err)
				select {
				case <-ctx.Done():
					return flush()
				case <-time.After(time.Second):
				}
				continue
			}

			snap, err := parseBookMessage(m)
			if err != nil {
				metrics.RecordsRejected.WithLabelValues("snapshot").Inc()
				bi.logger.Debug("Parse error", "error", err)
				continue
			}

			batch = append(batch, snap)
			msgs = append(msgs, m)

			if len(batch) >= bi.cfg.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
}

// parseBookMessage deserializes and validates a Kafka snapshot message.
// Both side blobs must decode; empty sides are valid.
func parseBookMessage(msg kafka.Message) (*models.OrderBookSnapshot, error) {
	var snap models.OrderBookSnapshot
	if err := json.Unmarshal(msg.Value, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	if snap.Symbol == "" {
		return nil, fmt.Errorf("missing symbol")
	}
	if snap.Time <= 0 {
		return nil, fmt.Errorf("invalid time")
	}
	if _, err := models.DecodeLevels(snap.Bids); err != nil {
		return nil, fmt.Errorf("bids: %w", err)
	}
	if _, err := models.DecodeLevels(snap.Asks); err != nil {
		return nil, fmt.Errorf("asks: %w", err)
	}

	return &snap, nil
}
