package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"rustedcrab/trainset/internal/metrics"
	"rustedcrab/trainset/internal/models"

	"golang.org/x/time/rate"
)

// depthPayload is the REST depth response. Levels arrive as
// [price, quantity] string pairs.
type depthPayload struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

// DepthPoller periodically fetches depth snapshots over REST and
// publishes packed snapshots to Kafka. One shared rate limiter throttles
// all symbol workers.
type DepthPoller struct {
	BaseURL     string
	Limit       int
	RateLimiter *rate.Limiter
	Producer    *Producer
	Logger      *slog.Logger

	client *http.Client
	now    func() time.Time
}

func NewDepthPoller(baseURL string, limit int, requestsPerSecond float64, producer *Producer, logger *slog.Logger) *DepthPoller {
	return &DepthPoller{
		BaseURL:     baseURL,
		Limit:       limit,
		RateLimiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 10),
		Producer:    producer,
		Logger:      logger,
		client:      &http.Client{Timeout: 10 * time.Second},
		now:         time.Now,
	}
}

// RunWorker polls depth for one symbol until the context is cancelled.
func (dp *DepthPoller) RunWorker(ctx context.Context, symbol string, wg *sync.WaitGroup) {
	defer wg.Done()

	dp.Logger.Info("Starting depth worker for symbol", "symbol", symbol)

	for {
		select {
		case <-ctx.Done():
			dp.Logger.Info("Stopping depth worker for symbol", "symbol", symbol)
			return
		default:
			if err := dp.RateLimiter.Wait(ctx); err != nil {
				if ctx.Err() == nil {
					dp.Logger.Error("Rate limiter error", "symbol", symbol, "error", err)
				}
				return
			}
			if err := dp.fetchAndPublish(ctx, symbol); err != nil {
				dp.Logger.Error("Error fetching depth", "symbol", symbol, "error", err)
				time.Sleep(2 * time.Second)
				continue
			}
		}
	}
}

func (dp *DepthPoller) fetchAndPublish(ctx context.Context, symbol string) error {
	snapshot, err := dp.fetchSnapshot(ctx, symbol)
	if err != nil {
		metrics.RecordsRejected.WithLabelValues("depth").Inc()
		return err
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := dp.Producer.Send(ctx, payload); err != nil {
		return err
	}
	metrics.SnapshotsCollected.WithLabelValues(symbol).Inc()
	return nil
}

func (dp *DepthPoller) fetchSnapshot(ctx context.Context, symbol string) (*models.OrderBookSnapshot, error) {
	url := fmt.Sprintf("%s/fapi/v1/depth?symbol=%s&limit=%d", dp.BaseURL, symbol, dp.Limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := dp.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("depth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("depth request returned %d: %s", resp.StatusCode, body)
	}

	var payload depthPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode depth response: %w", err)
	}

	return &models.OrderBookSnapshot{
		Time:   float64(dp.now().UnixNano()) / 1e9,
		Symbol: symbol,
		Bids:   packLevels(payload.Bids),
		Asks:   packLevels(payload.Asks),
	}, nil
}

// packLevels converts [price, quantity] string pairs into the interleaved
// float32 blob stored in ClickHouse. Unparseable entries pack as zero.
func packLevels(pairs [][2]string) []byte {
	levels := make([]models.Level, 0, len(pairs))
	for _, pair := range pairs {
		price, err := strconv.ParseFloat(pair[0], 32)
		if err != nil {
			price = 0
		}
		volume, err := strconv.ParseFloat(pair[1], 32)
		if err != nil {
			volume = 0
		}
		levels = append(levels, models.Level{
			Price:  float32(price),
			Volume: float32(volume),
		})
	}
	return models.EncodeLevels(levels)
}
