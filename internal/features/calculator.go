// Package features turns one symbol's raw trade and orderbook series into
// an aligned sequence of indicator rows on a fixed bar grid.
package features

import (
	"log/slog"
	"math"
	"sort"

	"rustedcrab/trainset/internal/models"
)

// Config holds the indicator tunables. Zero values are replaced by the
// defaults from DefaultConfig.
type Config struct {
	// BarIntervalMS is the bar width in milliseconds.
	BarIntervalMS int64

	// RSIWindow is the RSI period over bar closes.
	RSIWindow int

	// VolWindow is the trailing window for the rolling close stddev.
	VolWindow int
}

// DefaultConfig returns the standard indicator configuration:
// 1-minute bars, RSI(14), 20-bar volatility.
func DefaultConfig() Config {
	return Config{
		BarIntervalMS: 60_000,
		RSIWindow:     14,
		VolWindow:     20,
	}
}

// Calculator computes feature rows for one symbol at a time. It holds no
// per-symbol state, so a single Calculator is safe to share across
// concurrent symbol workers.
type Calculator struct {
	cfg    Config
	logger *slog.Logger
}

// NewCalculator creates a Calculator, filling unset config fields with
// defaults.
func NewCalculator(cfg Config, logger *slog.Logger) *Calculator {
	def := DefaultConfig()
	if cfg.BarIntervalMS <= 0 {
		cfg.BarIntervalMS = def.BarIntervalMS
	}
	if cfg.RSIWindow <= 0 {
		cfg.RSIWindow = def.RSIWindow
	}
	if cfg.VolWindow <= 0 {
		cfg.VolWindow = def.VolWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{cfg: cfg, logger: logger}
}

// Compute derives the feature rows for one symbol's trades and snapshots.
// Both inputs must already be filtered to a single symbol and ordered by
// time. Rows with any undefined indicator are dropped; the returned rows
// are in chronological order. A symbol with no trades yields nil.
func (c *Calculator) Compute(trades []models.AggTrade, snapshots []models.OrderBookSnapshot) []models.FeatureRow {
	bars := c.Resample(trades)
	if len(bars) == 0 {
		return nil
	}

	rsi := rsiSeries(bars, c.cfg.RSIWindow)
	vol := stddevSeries(bars, c.cfg.VolWindow)
	obi := c.obiSeries(bars, snapshots)

	rows := make([]models.FeatureRow, 0, len(bars))
	for i, b := range bars {
		if math.IsNaN(rsi[i]) || math.IsNaN(vol[i]) {
			continue
		}
		rows = append(rows, models.FeatureRow{
			OpenTime:   b.OpenTime,
			RSI:        rsi[i],
			OBI:        obi[i],
			TFI:        tradeFlowImbalance(b),
			Volatility: vol[i],
			Close:      b.Close,
			High:       b.High,
			Low:        b.Low,
		})
	}
	return rows
}

// Resample buckets trades into fixed-width OHLC bars. Buckets with no
// trades produce no bar; gaps in trading produce gaps in the bar series.
func (c *Calculator) Resample(trades []models.AggTrade) []models.Bar {
	if len(trades) == 0 {
		return nil
	}

	byBucket := make(map[int64]*models.Bar)
	for _, t := range trades {
		bucket := c.bucketMS(t.Time)

		b, ok := byBucket[bucket]
		if !ok {
			b = &models.Bar{
				OpenTime: bucket,
				Open:     t.Price,
				High:     t.Price,
				Low:      t.Price,
			}
			byBucket[bucket] = b
		}

		if t.Price > b.High {
			b.High = t.Price
		}
		if t.Price < b.Low {
			b.Low = t.Price
		}
		b.Close = t.Price

		// false means the buyer was the aggressor.
		if t.IsBuyerMaker {
			b.SellVolume += t.Quantity
		} else {
			b.BuyVolume += t.Quantity
		}
	}

	bars := make([]models.Bar, 0, len(byBucket))
	for _, b := range byBucket {
		bars = append(bars, *b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].OpenTime < bars[j].OpenTime })
	return bars
}

func (c *Calculator) bucketMS(timeSec float64) int64 {
	ms := int64(timeSec * 1000)
	return ms - ms%c.cfg.BarIntervalMS
}

// tradeFlowImbalance normalizes buy-vs-sell aggressor volume. The
// denominator floors at 1 so a zero-volume bar yields 0 instead of a
// division fault.
func tradeFlowImbalance(b models.Bar) float64 {
	total := b.BuyVolume + b.SellVolume
	if total < 1 {
		total = 1
	}
	return (b.BuyVolume - b.SellVolume) / total
}

// rsiSeries computes Wilder-smoothed RSI over bar closes. Entries are NaN
// until `window` price changes have been observed.
func rsiSeries(bars []models.Bar, window int) []float64 {
	out := make([]float64, len(bars))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(bars) <= window {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= window; i++ {
		change := bars[i].Close - bars[i-1].Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(window)
	avgLoss /= float64(window)
	out[window] = rsiValue(avgGain, avgLoss)

	for i := window + 1; i < len(bars); i++ {
		change := bars[i].Close - bars[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(window-1) + gain) / float64(window)
		avgLoss = (avgLoss*float64(window-1) + loss) / float64(window)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// stddevSeries computes the trailing sample standard deviation of closes.
// Entries are NaN until the window is full.
func stddevSeries(bars []models.Bar, window int) []float64 {
	out := make([]float64, len(bars))
	for i := range out {
		out[i] = math.NaN()
	}
	if window < 2 || len(bars) < window {
		return out
	}

	for i := window - 1; i < len(bars); i++ {
		var mean float64
		for j := i - window + 1; j <= i; j++ {
			mean += bars[j].Close
		}
		mean /= float64(window)

		var variance float64
		for j := i - window + 1; j <= i; j++ {
			d := bars[j].Close - mean
			variance += d * d
		}
		variance /= float64(window - 1)
		out[i] = math.Sqrt(variance)
	}
	return out
}

// obiSeries aligns per-snapshot orderbook imbalance onto the bar grid:
// last snapshot value per bucket, forward-filled across snapshot-less
// bars, zero before the first observation. Malformed snapshots are
// skipped. With no usable snapshots every bar gets 0.
func (c *Calculator) obiSeries(bars []models.Bar, snapshots []models.OrderBookSnapshot) []float64 {
	type obs struct {
		bucket int64
		value  float64
	}

	points := make([]obs, 0, len(snapshots))
	for i := range snapshots {
		v, err := snapshots[i].Imbalance()
		if err != nil {
			c.logger.Debug("Skipping malformed orderbook snapshot",
				"symbol", snapshots[i].Symbol, "time", snapshots[i].Time, "error", err)
			continue
		}
		points = append(points, obs{bucket: c.bucketMS(snapshots[i].Time), value: v})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].bucket < points[j].bucket })

	out := make([]float64, len(bars))
	last := 0.0
	p := 0
	for i, b := range bars {
		for p < len(points) && points[p].bucket <= b.OpenTime {
			last = points[p].value
			p++
		}
		out[i] = last
	}
	return out
}
