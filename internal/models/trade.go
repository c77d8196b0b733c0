// Package models defines the domain models shared by the collector,
// ingester, storage, and pipeline packages.
package models

// AggTrade represents a single aggregated trade record in the agg_trades
// table. This is the canonical format, normalized from the exchange
// aggTrade payload received via Kafka.
type AggTrade struct {
	// Time is the trade timestamp as unix seconds (fractional part kept).
	Time float64 `json:"time"`

	// Symbol is the instrument identifier (e.g., "BTCUSDT").
	Symbol string `json:"symbol"`

	// AggTradeID is the exchange-assigned aggregate trade id.
	AggTradeID int64 `json:"agg_trade_id"`

	// Price is the trade price in quote currency.
	Price float64 `json:"price"`

	// Quantity is the traded base amount.
	Quantity float64 `json:"quantity"`

	// FirstTradeID and LastTradeID delimit the raw trades folded into
	// this aggregate.
	FirstTradeID int64 `json:"first_trade_id"`
	LastTradeID  int64 `json:"last_trade_id"`

	// IsBuyerMaker is true when the buyer was the resting order, i.e.
	// the trade was initiated by a sell-side aggressor.
	IsBuyerMaker bool `json:"is_buyer_maker"`
}

// TableName maps the model onto the agg_trades table for GORM.
func (AggTrade) TableName() string { return "agg_trades" }
