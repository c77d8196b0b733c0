// Package labeler assigns triple-barrier outcome labels to feature rows.
package labeler

import (
	"rustedcrab/trainset/internal/models"
)

// Config holds the barrier tunables. Zero values are replaced by the
// defaults from DefaultConfig.
type Config struct {
	// Horizon is how many bars forward a barrier touch is searched for.
	Horizon int

	// Multiplier scales the row's volatility into the barrier half-width.
	Multiplier float64

	// FloorFraction is the minimum half-width as a fraction of price,
	// guarding against spurious labels when measured volatility is near
	// zero.
	FloorFraction float64
}

// DefaultConfig returns the standard labeling configuration: 15-bar
// horizon, 2x volatility barriers, 0.2% minimum move.
func DefaultConfig() Config {
	return Config{
		Horizon:       15,
		Multiplier:    2.0,
		FloorFraction: 0.002,
	}
}

// Labeler produces labeled samples from a contiguous per-symbol run of
// feature rows. It is stateless and safe for concurrent use.
type Labeler struct {
	cfg Config
}

// New creates a Labeler, filling unset config fields with defaults.
func New(cfg Config) *Labeler {
	def := DefaultConfig()
	if cfg.Horizon <= 0 {
		cfg.Horizon = def.Horizon
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.FloorFraction <= 0 {
		cfg.FloorFraction = def.FloorFraction
	}
	return &Labeler{cfg: cfg}
}

// BarrierWidth returns the barrier half-width for a row: volatility times
// the multiplier, floored at FloorFraction of price.
func (l *Labeler) BarrierWidth(price, volatility float64) float64 {
	width := volatility * l.cfg.Multiplier
	if floor := price * l.cfg.FloorFraction; width < floor {
		width = floor
	}
	return width
}

// Label scans rows in chronological order and emits one sample per row
// that still has a full horizon of look-ahead; the output length is
// max(0, len(rows)-Horizon). For each row the first future bar touching
// either barrier decides the label: upper first means buy, lower first
// means sell, both within the same bar means the move was ambiguous and
// the sample stays hold, and an untouched horizon expires to hold.
func (l *Labeler) Label(rows []models.FeatureRow) []models.LabeledSample {
	if len(rows) <= l.cfg.Horizon {
		return nil
	}

	samples := make([]models.LabeledSample, 0, len(rows)-l.cfg.Horizon)
	for i := 0; i < len(rows)-l.cfg.Horizon; i++ {
		width := l.BarrierWidth(rows[i].Close, rows[i].Volatility)
		upper := rows[i].Close + width
		lower := rows[i].Close - width

		label := models.LabelHold
		for j := 1; j <= l.cfg.Horizon; j++ {
			touchedUpper := rows[i+j].High >= upper
			touchedLower := rows[i+j].Low <= lower

			if touchedUpper && touchedLower {
				// Whipsaw bar: both barriers in one interval is
				// no-signal, not a first touch.
				break
			}
			if touchedUpper {
				label = models.LabelBuy
				break
			}
			if touchedLower {
				label = models.LabelSell
				break
			}
		}

		samples = append(samples, models.LabeledSample{
			RSI:        rows[i].RSI,
			OBI:        rows[i].OBI,
			TFI:        rows[i].TFI,
			Volatility: rows[i].Volatility,
			Label:      label,
		})
	}
	return samples
}
