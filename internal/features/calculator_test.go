package features

import (
	"math"
	"testing"

	"rustedcrab/trainset/internal/models"
)

func tradeAt(sec float64, price, qty float64, buyerMaker bool) models.AggTrade {
	return models.AggTrade{
		Time:         sec,
		Symbol:       "BTCUSDT",
		Price:        price,
		Quantity:     qty,
		IsBuyerMaker: buyerMaker,
	}
}

func TestResampleDropsEmptyIntervals(t *testing.T) {
	calc := NewCalculator(Config{}, nil)

	trades := []models.AggTrade{
		tradeAt(0, 100, 1, false),
		tradeAt(10, 105, 1, true),
		tradeAt(59, 102, 1, false),
		// minutes 1 and 2 have no trades
		tradeAt(180, 99, 2, true),
	}

	bars := calc.Resample(trades)
	if len(bars) != 2 {
		t.Fatalf("Expected 2 bars, got %d", len(bars))
	}

	first := bars[0]
	if first.OpenTime != 0 || first.Open != 100 || first.High != 105 || first.Low != 100 || first.Close != 102 {
		t.Errorf("Unexpected first bar: %+v", first)
	}
	if first.BuyVolume != 2 || first.SellVolume != 1 {
		t.Errorf("Expected buy/sell volume 2/1, got %f/%f", first.BuyVolume, first.SellVolume)
	}

	if bars[1].OpenTime != 180_000 {
		t.Errorf("Expected second bar at 180000ms, got %d", bars[1].OpenTime)
	}
}

func TestTradeFlowImbalance(t *testing.T) {
	tfi := tradeFlowImbalance(models.Bar{BuyVolume: 6, SellVolume: 2})
	if math.Abs(tfi-0.5) > 1e-9 {
		t.Errorf("Expected TFI 0.5, got %f", tfi)
	}

	// Zero-volume bar must floor the denominator, not divide by zero.
	if got := tradeFlowImbalance(models.Bar{}); got != 0 {
		t.Errorf("Expected TFI 0 for zero volume, got %f", got)
	}
}

func TestRSISeriesWarmup(t *testing.T) {
	bars := make([]models.Bar, 20)
	for i := range bars {
		bars[i].Close = 100 + float64(i)
	}

	rsi := rsiSeries(bars, 14)
	for i := 0; i < 14; i++ {
		if !math.IsNaN(rsi[i]) {
			t.Errorf("Expected NaN RSI at index %d, got %f", i, rsi[i])
		}
	}
	// Monotonically rising closes: all gain, no loss.
	if rsi[14] != 100 {
		t.Errorf("Expected RSI 100 for all-gain series, got %f", rsi[14])
	}
}

func TestStddevSeriesWarmup(t *testing.T) {
	bars := make([]models.Bar, 25)
	for i := range bars {
		bars[i].Close = 100
	}

	vol := stddevSeries(bars, 20)
	for i := 0; i < 19; i++ {
		if !math.IsNaN(vol[i]) {
			t.Errorf("Expected NaN volatility at index %d, got %f", i, vol[i])
		}
	}
	if vol[19] != 0 {
		t.Errorf("Expected 0 volatility for constant closes, got %f", vol[19])
	}
}

func TestOBISeriesForwardFill(t *testing.T) {
	calc := NewCalculator(Config{}, nil)

	bars := []models.Bar{
		{OpenTime: 0}, {OpenTime: 60_000}, {OpenTime: 120_000}, {OpenTime: 180_000},
	}
	// One snapshot in minute 1: all bid volume, OBI = 1.
	snapshots := []models.OrderBookSnapshot{
		{
			Time: 70,
			Bids: models.EncodeLevels([]models.Level{{Price: 100, Volume: 5}}),
		},
	}

	obi := calc.obiSeries(bars, snapshots)
	want := []float64{0, 1, 1, 1}
	for i := range want {
		if obi[i] != want[i] {
			t.Errorf("OBI at bar %d: expected %f, got %f", i, want[i], obi[i])
		}
	}
}

func TestOBISeriesNoSnapshots(t *testing.T) {
	calc := NewCalculator(Config{}, nil)
	bars := []models.Bar{{OpenTime: 0}, {OpenTime: 60_000}}

	obi := calc.obiSeries(bars, nil)
	for i, v := range obi {
		if v != 0 {
			t.Errorf("Expected OBI 0 at bar %d with no snapshots, got %f", i, v)
		}
	}
}

func TestOBISeriesSkipsMalformedSnapshot(t *testing.T) {
	calc := NewCalculator(Config{}, nil)
	bars := []models.Bar{{OpenTime: 0}}

	snapshots := []models.OrderBookSnapshot{
		{Time: 1, Bids: make([]byte, 5)}, // truncated blob
	}

	obi := calc.obiSeries(bars, snapshots)
	if obi[0] != 0 {
		t.Errorf("Malformed snapshot must be skipped, got OBI %f", obi[0])
	}
}

func TestComputeDropsWarmupRows(t *testing.T) {
	calc := NewCalculator(Config{}, nil)

	// One trade per minute for 25 minutes.
	trades := make([]models.AggTrade, 25)
	for i := range trades {
		trades[i] = tradeAt(float64(i*60), 100+float64(i%5), 1, i%2 == 0)
	}

	rows := calc.Compute(trades, nil)
	// Volatility needs a full 20-bar window, so rows start at bar 19.
	if len(rows) != 6 {
		t.Fatalf("Expected 6 rows after warm-up, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].OpenTime <= rows[i-1].OpenTime {
			t.Errorf("Rows out of order at %d: %d after %d", i, rows[i].OpenTime, rows[i-1].OpenTime)
		}
	}
	for _, r := range rows {
		if math.IsNaN(r.RSI) || math.IsNaN(r.Volatility) {
			t.Errorf("Emitted row with undefined indicator: %+v", r)
		}
		if r.OBI != 0 {
			t.Errorf("Expected OBI 0 with no snapshots, got %f", r.OBI)
		}
	}
}

func TestComputeNoTrades(t *testing.T) {
	calc := NewCalculator(Config{}, nil)
	if rows := calc.Compute(nil, nil); rows != nil {
		t.Errorf("Expected nil rows for no trades, got %d", len(rows))
	}
}
