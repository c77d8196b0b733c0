// Package storage provides database implementations for raw market data.
package storage

import (
	"context"
	"fmt"
	"time"

	"rustedcrab/trainset/internal/models"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Storage defines the interface for persisting and reading back aggregated
// trades and orderbook snapshots. Implementations must be safe for
// concurrent use.
type Storage interface {
	// CreateAggTrades inserts a batch of trades.
	CreateAggTrades(ctx context.Context, trades []*models.AggTrade) error

	// CreateOrderBookSnapshots inserts a batch of depth snapshots.
	CreateOrderBookSnapshots(ctx context.Context, snaps []*models.OrderBookSnapshot) error

	// Symbols lists the distinct symbols present in agg_trades.
	Symbols(ctx context.Context) ([]string, error)

	// AggTrades returns one symbol's trades ordered by time.
	AggTrades(ctx context.Context, symbol string) ([]models.AggTrade, error)

	// OrderBookSnapshots returns one symbol's snapshots ordered by time.
	OrderBookSnapshots(ctx context.Context, symbol string) ([]models.OrderBookSnapshot, error)

	// Close releases database connection resources.
	Close() error
}

// clickhouseStorage implements Storage using the native ClickHouse driver.
// Uses batch inserts for high-throughput ingestion and streaming selects
// for the per-symbol pipeline reads.
type clickhouseStorage struct {
	conn driver.Conn
}

// NewClickHouseStorage creates a new ClickHouse storage connection.
// It parses the DSN, opens a connection, and verifies connectivity with a
// ping. Returns an error if connection cannot be established within 5
// seconds.
func NewClickHouseStorage(dsn string) (Storage, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}

	// Test connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		return nil, err
	}

	return &clickhouseStorage{conn: conn}, nil
}

// CreateAggTrades inserts trades using ClickHouse batch insert.
// Batch insert is significantly faster than individual inserts for
// ClickHouse.
func (s *clickhouseStorage) CreateAggTrades(ctx context.Context, trades []*models.AggTrade) error {
	if len(trades) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO agg_trades (
			time, symbol, agg_trade_id,
			price, quantity,
			first_trade_id, last_trade_id, is_buyer_maker
		)
	`)
	if err != nil {
		return err
	}

	for _, t := range trades {
		err := batch.Append(
			t.Time,
			t.Symbol,
			t.AggTradeID,
			t.Price,
			t.Quantity,
			t.FirstTradeID,
			t.LastTradeID,
			t.IsBuyerMaker,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

// CreateOrderBookSnapshots inserts snapshots using ClickHouse batch insert.
func (s *clickhouseStorage) CreateOrderBookSnapshots(ctx context.Context, snaps []*models.OrderBookSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO order_books (
			time, symbol, bids, asks
		)
	`)
	if err != nil {
		return err
	}

	for _, b := range snaps {
		err := batch.Append(
			b.Time,
			b.Symbol,
			string(b.Bids),
			string(b.Asks),
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

// Symbols lists the distinct symbols seen in agg_trades.
func (s *clickhouseStorage) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT symbol FROM agg_trades ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("querying symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, err
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// AggTrades streams one symbol's trades in time order.
func (s *clickhouseStorage) AggTrades(ctx context.Context, symbol string) ([]models.AggTrade, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT time, symbol, agg_trade_id, price, quantity,
		       first_trade_id, last_trade_id, is_buyer_maker
		FROM agg_trades
		WHERE symbol = ?
		ORDER BY time
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("querying agg_trades for %s: %w", symbol, err)
	}
	defer rows.Close()

	var trades []models.AggTrade
	for rows.Next() {
		var t models.AggTrade
		if err := rows.Scan(
			&t.Time, &t.Symbol, &t.AggTradeID, &t.Price, &t.Quantity,
			&t.FirstTradeID, &t.LastTradeID, &t.IsBuyerMaker,
		); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// OrderBookSnapshots streams one symbol's snapshots in time order.
func (s *clickhouseStorage) OrderBookSnapshots(ctx context.Context, symbol string) ([]models.OrderBookSnapshot, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT time, symbol, bids, asks
		FROM order_books
		WHERE symbol = ?
		ORDER BY time
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("querying order_books for %s: %w", symbol, err)
	}
	defer rows.Close()

	var snaps []models.OrderBookSnapshot
	for rows.Next() {
		var snap models.OrderBookSnapshot
		var bids, asks string
		if err := rows.Scan(&snap.Time, &snap.Symbol, &bids, &asks); err != nil {
			return nil, err
		}
		snap.Bids = []byte(bids)
		snap.Asks = []byte(asks)
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Close closes the ClickHouse connection.
func (s *clickhouseStorage) Close() error {
	return s.conn.Close()
}
