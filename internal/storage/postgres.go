package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rustedcrab/trainset/internal/models"

	_ "github.com/lib/pq" // Postgres driver
)

// PostgresSource is a read-only alternate source for the dataset builder,
// for deployments whose collection store is Postgres rather than
// ClickHouse. Table layout matches agg_trades/order_books, with the book
// sides stored as bytea in the same packed float32 layout.
type PostgresSource struct {
	db *sql.DB
}

// NewPostgresSource opens and pings a Postgres connection.
func NewPostgresSource(dsn string) (*PostgresSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresSource{db: db}, nil
}

// Symbols lists the distinct symbols seen in agg_trades.
func (s *PostgresSource) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM agg_trades ORDER BY symbol`)
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

// AggTrades returns one symbol's trades ordered by time.
func (s *PostgresSource) AggTrades(ctx context.Context, symbol string) ([]models.AggTrade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT "time", symbol, agg_trade_id, price, quantity,
		       first_trade_id, last_trade_id, is_buyer_maker
		FROM agg_trades
		WHERE symbol = $1
		ORDER BY "time"
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

// OrderBookSnapshots returns one symbol's snapshots ordered by time.
func (s *PostgresSource) OrderBookSnapshots(ctx context.Context, symbol string) ([]models.OrderBookSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT "time", symbol, bids, asks
		FROM order_books
		WHERE symbol = $1
		ORDER BY "time"
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("querying order_books for %s: %w", symbol, err)
	}
	defer rows.Close()

	var snaps []models.OrderBookSnapshot
	for rows.Next() {
		var snap models.OrderBookSnapshot
		if err := rows.Scan(&snap.Time, &snap.Symbol, &snap.Bids, &snap.Asks); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Close closes the underlying connection pool.
func (s *PostgresSource) Close() error {
	return s.db.Close()
}
