// Package configs provides application configuration loaded from
// environment variables. All configuration is externalized via environment
// variables for 12-factor app compliance.
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all application configuration.
// Load it once at startup using AppLoad().
type AppConfig struct {
	// DBDSN is the ClickHouse connection string.
	DBDSN string

	// PostgresDSN is the optional alternate relational source for the
	// dataset builder.
	PostgresDSN string

	// KafkaTrades contains Kafka settings for the aggTrade stream.
	KafkaTrades KafkaConfig

	// KafkaDepth contains Kafka settings for orderbook snapshots.
	KafkaDepth KafkaConfig

	// Ingester contains settings for the Kafka-to-ClickHouse ingester.
	Ingester IngesterConfig

	// Collector contains settings for the exchange collector.
	Collector CollectorConfig

	// Pipeline contains the feature, labeling, and balancing tunables.
	Pipeline PipelineConfig

	// APIAddr is the listen address of the gin API.
	APIAddr string

	// MetricsAddr is the listen address of the Prometheus endpoint.
	MetricsAddr string
}

// KafkaConfig holds Kafka connection settings for one topic.
type KafkaConfig struct {
	// Broker is the Kafka broker address (e.g., "localhost:9092").
	Broker string

	// Topic is the Kafka topic.
	Topic string

	// GroupID is the consumer group ID for the ingester.
	GroupID string
}

// IngesterConfig holds settings for batch processing.
type IngesterConfig struct {
	// BatchSize is the maximum number of records to accumulate before
	// flushing.
	BatchSize int

	// BatchTimeoutSeconds is the maximum seconds to wait before flushing.
	BatchTimeoutSeconds int
}

// CollectorConfig holds exchange collection settings.
type CollectorConfig struct {
	// Symbols is the list of instruments to collect (comma-separated in
	// env, e.g. "BTCUSDT,ETHUSDT").
	Symbols []string

	// WSBaseURL is the futures websocket stream endpoint.
	WSBaseURL string

	// RESTBaseURL is the futures REST endpoint for depth snapshots.
	RESTBaseURL string

	// DepthLimit is the number of levels requested per depth snapshot.
	DepthLimit int

	// DepthRequestsPerSecond throttles the depth poller across symbols.
	DepthRequestsPerSecond float64

	// MaxSubsPerConnection caps stream subscriptions per websocket.
	MaxSubsPerConnection int
}

// PipelineConfig holds the dataset-builder tunables. Every value has a
// stated default and is overridable via environment.
type PipelineConfig struct {
	// BarIntervalMS is the bar width in milliseconds.
	BarIntervalMS int64

	// RSIWindow is the RSI period in bars.
	RSIWindow int

	// VolWindow is the rolling volatility window in bars.
	VolWindow int

	// BarrierHorizon is the triple-barrier look-ahead in bars.
	BarrierHorizon int

	// BarrierMultiplier scales volatility into the barrier half-width.
	BarrierMultiplier float64

	// BarrierFloorFraction is the minimum half-width as a fraction of
	// price.
	BarrierFloorFraction float64

	// HoldCapMultiplier caps boring holds at this multiple of the larger
	// signal class.
	HoldCapMultiplier int

	// Workers bounds concurrent symbol processing.
	Workers int
}

// getDatabaseDSN constructs the ClickHouse DSN from environment variables.
func getDatabaseDSN() string {
	dbUser := getEnv("CLICKHOUSE_USER", "user")
	dbPassword := getEnv("CLICKHOUSE_PASSWORD", "password")
	dbHost := getEnv("CLICKHOUSE_HOST", "localhost")
	dbPort := getEnv("CLICKHOUSE_TCP_PORT", "9000")
	dbName := getEnv("CLICKHOUSE_DB", "trainset")

	return fmt.Sprintf(
		"clickhouse://%s:%s@%s:%s/%s?dial_timeout=10s&read_timeout=20s",
		dbUser, dbPassword, dbHost, dbPort, dbName,
	)
}

// AppLoad loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development).
// Call this once at application startup.
func AppLoad() *AppConfig {
	_ = godotenv.Load() // Ignore error - .env is optional

	return &AppConfig{
		DBDSN:       getDatabaseDSN(),
		PostgresDSN: getEnv("POSTGRES_DSN", ""),
		KafkaTrades: KafkaConfig{
			Broker:  getEnv("KAFKA_BROKER", "localhost:9092"),
			Topic:   getEnv("KAFKA_TRADES_TOPIC", "trainset_agg_trades"),
			GroupID: getEnv("KAFKA_TRADES_GROUP_ID", "trainset-trade-ingester"),
		},
		KafkaDepth: KafkaConfig{
			Broker:  getEnv("KAFKA_BROKER", "localhost:9092"),
			Topic:   getEnv("KAFKA_DEPTH_TOPIC", "trainset_order_books"),
			GroupID: getEnv("KAFKA_DEPTH_GROUP_ID", "trainset-depth-ingester"),
		},
		Ingester: IngesterConfig{
			BatchSize:           getEnvInt("BATCH_SIZE", 200),
			BatchTimeoutSeconds: getEnvInt("BATCH_TIMEOUT_SECONDS", 5),
		},
		Collector: CollectorConfig{
			Symbols:                getEnvList("COLLECTOR_SYMBOLS", "BTCUSDT,ETHUSDT"),
			WSBaseURL:              getEnv("COLLECTOR_WS_URL", "wss://fstream.binance.com/stream"),
			RESTBaseURL:            getEnv("COLLECTOR_REST_URL", "https://fapi.binance.com"),
			DepthLimit:             getEnvInt("COLLECTOR_DEPTH_LIMIT", 20),
			DepthRequestsPerSecond: getEnvFloat("COLLECTOR_DEPTH_RPS", 2),
			MaxSubsPerConnection:   getEnvInt("COLLECTOR_MAX_SUBS", 10),
		},
		Pipeline: PipelineConfig{
			BarIntervalMS:        int64(getEnvInt("BAR_INTERVAL_MS", 60_000)),
			RSIWindow:            getEnvInt("RSI_WINDOW", 14),
			VolWindow:            getEnvInt("VOL_WINDOW", 20),
			BarrierHorizon:       getEnvInt("BARRIER_HORIZON", 15),
			BarrierMultiplier:    getEnvFloat("BARRIER_MULTIPLIER", 2.0),
			BarrierFloorFraction: getEnvFloat("BARRIER_FLOOR_FRACTION", 0.002),
			HoldCapMultiplier:    getEnvInt("HOLD_CAP_MULTIPLIER", 2),
			Workers:              getEnvInt("PIPELINE_WORKERS", 4),
		},
		APIAddr:     getEnv("API_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9091"),
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvFloat returns the environment variable as float64 or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvList splits a comma-separated environment variable.
func getEnvList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
