// Package balancer reshapes the label distribution of a labeled dataset
// while preserving the hard-negative hold samples.
package balancer

import (
	"math/rand"
	"time"

	"rustedcrab/trainset/internal/models"
)

// Config holds the balancing tunables.
type Config struct {
	// RSILow and RSIHigh bound the "neutral" RSI band. A hold sample
	// whose RSI falls outside the band is a confuser and is always kept.
	RSILow  float64
	RSIHigh float64

	// HoldCapMultiplier caps the retained non-confuser hold samples at
	// this multiple of the larger signal class.
	HoldCapMultiplier int
}

// DefaultConfig returns the standard balancing configuration:
// confusers outside RSI [30, 70], boring holds capped at 2x signals.
func DefaultConfig() Config {
	return Config{
		RSILow:            30,
		RSIHigh:           70,
		HoldCapMultiplier: 2,
	}
}

// Balancer downsamples the dominant hold class. The random source is
// injectable so callers can pin the sampling for tests; a nil source
// falls back to a time-seeded one.
type Balancer struct {
	cfg Config
	rng *rand.Rand
}

// New creates a Balancer, filling unset config fields with defaults.
func New(cfg Config, rng *rand.Rand) *Balancer {
	def := DefaultConfig()
	if cfg.RSILow == 0 && cfg.RSIHigh == 0 {
		cfg.RSILow, cfg.RSIHigh = def.RSILow, def.RSIHigh
	}
	if cfg.HoldCapMultiplier <= 0 {
		cfg.HoldCapMultiplier = def.HoldCapMultiplier
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Balancer{cfg: cfg, rng: rng}
}

// IsConfuser reports whether a hold-labeled sample's RSI alone would have
// suggested a directional signal.
func (b *Balancer) IsConfuser(s models.LabeledSample) bool {
	return s.RSI < b.cfg.RSILow || s.RSI > b.cfg.RSIHigh
}

// Balance keeps every buy, every sell, and every confuser hold, draws a
// uniform sample without replacement from the remaining holds capped at
// HoldCapMultiplier times the larger signal class, and shuffles the
// result. A dataset with no buy and no sell samples is returned as is,
// since there is no signal class to balance against.
func (b *Balancer) Balance(samples []models.LabeledSample) []models.LabeledSample {
	var buys, sells, confusers, boring []int
	for i, s := range samples {
		switch s.Label {
		case models.LabelBuy:
			buys = append(buys, i)
		case models.LabelSell:
			sells = append(sells, i)
		default:
			if b.IsConfuser(s) {
				confusers = append(confusers, i)
			} else {
				boring = append(boring, i)
			}
		}
	}

	nSignals := len(buys)
	if len(sells) > nSignals {
		nSignals = len(sells)
	}
	if nSignals == 0 {
		return samples
	}

	keepBoring := b.cfg.HoldCapMultiplier * nSignals
	if keepBoring > len(boring) {
		keepBoring = len(boring)
	}
	if keepBoring > 0 {
		b.rng.Shuffle(len(boring), func(i, j int) {
			boring[i], boring[j] = boring[j], boring[i]
		})
	}

	kept := make([]int, 0, len(buys)+len(sells)+len(confusers)+keepBoring)
	kept = append(kept, buys...)
	kept = append(kept, sells...)
	kept = append(kept, confusers...)
	kept = append(kept, boring[:keepBoring]...)

	b.rng.Shuffle(len(kept), func(i, j int) {
		kept[i], kept[j] = kept[j], kept[i]
	})

	out := make([]models.LabeledSample, len(kept))
	for i, idx := range kept {
		out[i] = samples[idx]
	}
	return out
}
