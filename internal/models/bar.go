package models

// Bar is a fixed-interval OHLC aggregation of trade prices for one symbol.
// Intervals with zero trades produce no Bar at all.
type Bar struct {
	// OpenTime is the bar bucket start in unix milliseconds.
	OpenTime int64

	Open  float64
	High  float64
	Low   float64
	Close float64

	// BuyVolume is the base volume of buy-initiated trades in the bar,
	// SellVolume the sell-initiated counterpart.
	BuyVolume  float64
	SellVolume float64
}

// FeatureRow is one bar with its full indicator set. Close, High, and Low
// are carried only for forward-looking labeling and are stripped before a
// row becomes a training feature vector.
type FeatureRow struct {
	// OpenTime is the bar bucket start in unix milliseconds.
	OpenTime int64

	RSI        float64
	OBI        float64
	TFI        float64
	Volatility float64

	Close float64
	High  float64
	Low   float64
}

// Label values of a labeled sample.
const (
	LabelHold = 0
	LabelBuy  = 1
	LabelSell = 2
)

// LabeledSample is one final training example: the four-feature vector and
// its triple-barrier outcome.
type LabeledSample struct {
	RSI        float64 `json:"rsi"`
	OBI        float64 `json:"obi"`
	TFI        float64 `json:"tfi"`
	Volatility float64 `json:"volatility"`

	// Label is LabelHold, LabelBuy, or LabelSell.
	Label int `json:"label"`
}
