// Package collector streams futures market data from the exchange and
// publishes it to Kafka. Aggregated trades arrive over a combined
// websocket stream; orderbook depth is polled over REST.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const (
	// WebSocket connection timeouts and intervals
	InitialReconnectDelay = 1 * time.Second
	MaxReconnectDelay     = 30 * time.Second
	HandshakeTimeout      = 5 * time.Second
	ReadTimeout           = 60 * time.Second
	WriteTimeout          = 10 * time.Second
	PingInterval          = 30 * time.Second
	PongTimeout           = 10 * time.Second

	// Connection health
	MaxConsecutiveErrors = 5
	HealthCheckInterval  = 5 * time.Second
)

func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}

// Producer wraps a Kafka writer for one topic.
type Producer struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

func NewProducer(broker, topic string, logger *logrus.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 100 * time.Millisecond,
	}
	return &Producer{writer: writer, logger: logger}
}

func (p *Producer) Send(ctx context.Context, message []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := p.writer.WriteMessages(writeCtx, kafka.Message{Value: message})
	if err != nil {
		// Don't report an error if shutdown is in progress
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}
	return nil
}

func (p *Producer) Close() {
	if p.writer != nil {
		if err := p.writer.Close(); err != nil {
			p.logger.Errorf("Error closing Kafka producer: %v", err)
		} else {
			p.logger.Info("Kafka Producer closed")
		}
	}
}

// Turn slice of symbols to small chunks
// ["BTC", "USDT", "ETH", ...] -> [["BTC", "USDT"], ...]
func ChunkSymbols(symbols []string, chunkSize int) [][]string {
	var chunks [][]string
	for i := 0; i < len(symbols); i += chunkSize {
		end := i + chunkSize
		if end > len(symbols) {
			end = len(symbols)
		}
		chunks = append(chunks, symbols[i:end])
	}
	return chunks
}
