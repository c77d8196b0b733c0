package storage

import (
	"context"

	"rustedcrab/trainset/internal/models"

	"gorm.io/gorm"
)

// TradeWriter is the write-side interface the trade ingester needs.
type TradeWriter interface {
	CreateAggTrades(ctx context.Context, trades []*models.AggTrade) error
}

// BookWriter is the write-side interface the depth ingester needs.
type BookWriter interface {
	CreateOrderBookSnapshots(ctx context.Context, snaps []*models.OrderBookSnapshot) error
}

type gormTradeWriter struct {
	db *gorm.DB
}

// NewGormTradeWriter creates a GORM-backed trade writer.
func NewGormTradeWriter(db *gorm.DB) TradeWriter {
	return &gormTradeWriter{db: db}
}

func (w *gormTradeWriter) CreateAggTrades(ctx context.Context, trades []*models.AggTrade) error {
	if len(trades) == 0 {
		return nil
	}
	return w.db.WithContext(ctx).Create(trades).Error
}

type gormBookWriter struct {
	db *gorm.DB
}

// NewGormBookWriter creates a GORM-backed orderbook snapshot writer.
func NewGormBookWriter(db *gorm.DB) BookWriter {
	return &gormBookWriter{db: db}
}

func (w *gormBookWriter) CreateOrderBookSnapshots(ctx context.Context, snaps []*models.OrderBookSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	return w.db.WithContext(ctx).Create(snaps).Error
}
