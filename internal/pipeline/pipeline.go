// Package pipeline fans feature extraction and labeling out across
// symbols and merges the results into one balanced dataset.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"rustedcrab/trainset/internal/balancer"
	"rustedcrab/trainset/internal/features"
	"rustedcrab/trainset/internal/labeler"
	"rustedcrab/trainset/internal/models"
)

// Source supplies the per-symbol raw series the pipeline consumes. Both
// record sets must be ordered by time within a symbol. Implementations
// must be safe for concurrent use across symbols.
type Source interface {
	Symbols(ctx context.Context) ([]string, error)
	AggTrades(ctx context.Context, symbol string) ([]models.AggTrade, error)
	OrderBookSnapshots(ctx context.Context, symbol string) ([]models.OrderBookSnapshot, error)
}

// Config holds the pipeline tunables.
type Config struct {
	// Workers bounds the number of symbols processed concurrently.
	Workers int
}

// Pipeline runs feature extraction and labeling per symbol, concatenates
// the per-symbol outputs, and balances the combined dataset once.
type Pipeline struct {
	src    Source
	calc   *features.Calculator
	lab    *labeler.Labeler
	bal    *balancer.Balancer
	logger *slog.Logger
	cfg    Config
}

// New wires a Pipeline from its stages.
func New(src Source, calc *features.Calculator, lab *labeler.Labeler, bal *balancer.Balancer, logger *slog.Logger, cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{src: src, calc: calc, lab: lab, bal: bal, logger: logger, cfg: cfg}
}

type symbolResult struct {
	symbol  string
	samples []models.LabeledSample
	err     error
}

// Run processes every symbol the source reports and returns the balanced
// dataset. A symbol whose derivation fails or yields no rows contributes
// nothing; only source-level failures abort the run. Sample order within
// a symbol is chronological, order across symbols is not specified.
func (p *Pipeline) Run(ctx context.Context) ([]models.LabeledSample, error) {
	symbols, err := p.src.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing symbols: %w", err)
	}
	if len(symbols) == 0 {
		p.logger.Warn("Source reported no symbols")
		return nil, nil
	}

	jobs := make(chan string)
	results := make(chan symbolResult, len(symbols))

	var wg sync.WaitGroup
	for w := 0; w < p.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				samples, err := p.processSymbol(ctx, symbol)
				results <- symbolResult{symbol: symbol, samples: samples, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, s := range symbols {
			select {
			case jobs <- s:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var all []models.LabeledSample
	for r := range results {
		if r.err != nil {
			p.logger.Error("Symbol processing failed, skipping", "symbol", r.symbol, "error", r.err)
			continue
		}
		p.logger.Info("Symbol processed", "symbol", r.symbol, "samples", len(r.samples))
		all = append(all, r.samples...)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hold, buy, sell := Distribution(all)
	p.logger.Info("Raw label distribution", "hold", hold, "buy", buy, "sell", sell)

	balanced := p.bal.Balance(all)

	hold, buy, sell = Distribution(balanced)
	p.logger.Info("Balanced label distribution", "hold", hold, "buy", buy, "sell", sell)

	return balanced, nil
}

// processSymbol runs the per-symbol stages. Failures are local to the
// symbol; the caller decides whether to continue.
func (p *Pipeline) processSymbol(ctx context.Context, symbol string) ([]models.LabeledSample, error) {
	trades, err := p.src.AggTrades(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("loading trades: %w", err)
	}
	snapshots, err := p.src.OrderBookSnapshots(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("loading orderbook snapshots: %w", err)
	}

	rows := p.calc.Compute(trades, snapshots)
	if len(rows) == 0 {
		p.logger.Debug("No feature rows for symbol", "symbol", symbol, "trades", len(trades))
		return nil, nil
	}

	return p.lab.Label(rows), nil
}

// Distribution counts samples per label.
func Distribution(samples []models.LabeledSample) (hold, buy, sell int) {
	for _, s := range samples {
		switch s.Label {
		case models.LabelBuy:
			buy++
		case models.LabelSell:
			sell++
		default:
			hold++
		}
	}
	return hold, buy, sell
}
