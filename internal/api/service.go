// Package api exposes the dataset builder over HTTP. It serves label
// distributions and sample previews computed from the stored market data.
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"rustedcrab/trainset/internal/models"
	"rustedcrab/trainset/internal/pipeline"
)

// DatasetService builds labeled samples on demand and caches the result.
// Building walks every stored symbol, so results are reused until they
// expire or a refresh is requested.
type DatasetService struct {
	pipe   *pipeline.Pipeline
	source pipeline.Source
	logger *slog.Logger

	mu      sync.Mutex
	samples []models.LabeledSample
	builtAt time.Time
	ttl     time.Duration
}

func NewDatasetService(pipe *pipeline.Pipeline, source pipeline.Source, logger *slog.Logger) *DatasetService {
	return &DatasetService{
		pipe:   pipe,
		source: source,
		logger: logger,
		ttl:    5 * time.Minute,
	}
}

// Samples returns the cached sample set, rebuilding when stale or when
// refresh is requested.
func (s *DatasetService) Samples(ctx context.Context, refresh bool) ([]models.LabeledSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !refresh && s.samples != nil && time.Since(s.builtAt) < s.ttl {
		return s.samples, nil
	}

	samples, err := s.pipe.Run(ctx)
	if err != nil {
		return nil, err
	}

	s.samples = samples
	s.builtAt = time.Now()
	return samples, nil
}

// Distribution returns per-label counts for the current sample set.
func (s *DatasetService) Distribution(ctx context.Context, refresh bool) (map[string]int, error) {
	samples, err := s.Samples(ctx, refresh)
	if err != nil {
		return nil, err
	}

	hold, buy, sell := pipeline.Distribution(samples)
	return map[string]int{
		"hold":  hold,
		"buy":   buy,
		"sell":  sell,
		"total": len(samples),
	}, nil
}

// Preview returns up to limit samples from the current sample set.
func (s *DatasetService) Preview(ctx context.Context, limit int, refresh bool) ([]models.LabeledSample, error) {
	samples, err := s.Samples(ctx, refresh)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(samples) {
		samples = samples[:limit]
	}
	return samples, nil
}

// Symbols lists the symbols available in storage.
func (s *DatasetService) Symbols(ctx context.Context) ([]string, error) {
	return s.source.Symbols(ctx)
}
