package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"rustedcrab/trainset/internal/metrics"
	"rustedcrab/trainset/internal/models"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// combinedTradeEvent is one message from the combined stream endpoint.
type combinedTradeEvent struct {
	Stream string        `json:"stream"`
	Data   aggTradeEvent `json:"data"`
}

type aggTradeEvent struct {
	Symbol       string `json:"s"`
	AggTradeID   int64  `json:"a"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	FirstTradeID int64  `json:"f"`
	LastTradeID  int64  `json:"l"`
	IsBuyerMaker bool   `json:"m"`
}

// TradeStream maintains websocket connections for aggTrade streams and
// forwards normalized trades to Kafka.
type TradeStream struct {
	BaseURL  string
	Producer *Producer
	Logger   *logrus.Logger

	now func() time.Time
}

func NewTradeStream(baseURL string, producer *Producer, logger *logrus.Logger) *TradeStream {
	return &TradeStream{
		BaseURL:  baseURL,
		Producer: producer,
		Logger:   logger,
		now:      time.Now,
	}
}

// streamURL builds the combined stream URL for a chunk of symbols.
func (ts *TradeStream) streamURL(symbols []string) string {
	params := make([]string, 0, len(symbols))
	for _, s := range symbols {
		params = append(params, strings.ToLower(s)+"@aggTrade")
	}
	return ts.BaseURL + "?streams=" + strings.Join(params, "/")
}

// RunWorker starts a websocket worker for a chunk of symbols. It
// reconnects with exponential backoff until the context is cancelled.
func (ts *TradeStream) RunWorker(ctx context.Context, symbolsChunk []string, wg *sync.WaitGroup) {
	defer wg.Done()

	workerID := fmt.Sprintf("trades-%s", symbolsChunk[0])
	ts.Logger.Infof("[%s] Starting for %d symbols", workerID, len(symbolsChunk))

	reconnectDelay := InitialReconnectDelay
	consecutiveErrors := 0

	for {
		select {
		case <-ctx.Done():
			ts.Logger.Infof("[%s] Shutting down due to context cancellation", workerID)
			return
		default:
			if err := ts.handleConnection(ctx, workerID, symbolsChunk); err != nil {
				consecutiveErrors++
				ts.Logger.Errorf("[%s] WebSocket error (%d/%d): %v. Reconnecting in %v...",
					workerID, consecutiveErrors, MaxConsecutiveErrors, err, reconnectDelay)

				if reconnectDelay < MaxReconnectDelay {
					reconnectDelay *= 2
					if reconnectDelay > MaxReconnectDelay {
						reconnectDelay = MaxReconnectDelay
					}
				}

				if consecutiveErrors >= MaxConsecutiveErrors {
					ts.Logger.Warnf("[%s] Too many consecutive errors, extending delay", workerID)
					reconnectDelay = MaxReconnectDelay
				}

				select {
				case <-ctx.Done():
					return
				case <-time.After(reconnectDelay):
					continue
				}
			} else {
				consecutiveErrors = 0
				reconnectDelay = InitialReconnectDelay
			}
		}
	}
}

// handleConnection manages a single websocket connection lifecycle.
func (ts *TradeStream) handleConnection(ctx context.Context, workerID string, symbolsChunk []string) error {
	u, err := url.Parse(ts.streamURL(symbolsChunk))
	if err != nil {
		return fmt.Errorf("invalid WebSocket URL: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: HandshakeTimeout,
	}

	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to WebSocket: %w", err)
	}
	defer conn.Close()

	ts.Logger.Infof("[%s] Connected to WebSocket", workerID)

	connCtx, connCancel := context.WithCancel(ctx)
	defer connCancel()

	pongReceived := make(chan bool, 1)
	lastPongTime := time.Now()

	conn.SetPongHandler(func(string) error {
		select {
		case pongReceived <- true:
		default:
		}
		lastPongTime = time.Now()
		return nil
	})

	conn.SetPingHandler(func(message string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(message), time.Now().Add(WriteTimeout))
		if err != nil {
			ts.Logger.Errorf("[%s] Failed to send pong: %v", workerID, err)
		}
		return err
	})

	pingTicker := time.NewTicker(PingInterval)
	defer pingTicker.Stop()

	healthTicker := time.NewTicker(HealthCheckInterval)
	defer healthTicker.Stop()

	readErrors := make(chan error, 1)
	messages := make(chan []byte, 100)

	go func() {
		defer close(messages)
		defer close(readErrors)

		for {
			select {
			case <-connCtx.Done():
				return
			default:
				conn.SetReadDeadline(time.Now().Add(ReadTimeout))
				_, message, err := conn.ReadMessage()
				if err != nil {
					select {
					case readErrors <- err:
					case <-connCtx.Done():
					}
					return
				}

				select {
				case messages <- message:
				case <-connCtx.Done():
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			ts.Logger.Infof("[%s] Context cancelled, closing connection", workerID)
			return nil

		case err := <-readErrors:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				return fmt.Errorf("WebSocket read error: %w", err)
			}
			if err != nil {
				return fmt.Errorf("connection error: %w", err)
			}

		case message := <-messages:
			payload, symbol, err := ts.normalizeTrade(message)
			if err != nil {
				ts.Logger.Errorf("[%s] Failed to normalize message: %v", workerID, err)
				metrics.RecordsRejected.WithLabelValues("trade").Inc()
				continue
			}
			if err := ts.Producer.Send(ctx, payload); err != nil {
				ts.Logger.Errorf("[%s] Failed to send to Kafka: %v", workerID, err)
				continue
			}
			metrics.TradesCollected.WithLabelValues(symbol).Inc()

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return fmt.Errorf("failed to send ping: %w", err)
			}

			go func() {
				select {
				case <-pongReceived:
				case <-time.After(PongTimeout):
					ts.Logger.Warnf("[%s] Pong timeout, connection may be unhealthy", workerID)
				case <-connCtx.Done():
					return
				}
			}()

		case <-healthTicker.C:
			timeSinceLastPong := time.Since(lastPongTime)
			if timeSinceLastPong > (PingInterval + PongTimeout) {
				return fmt.Errorf("connection appears unhealthy, last pong was %v ago", timeSinceLastPong)
			}
		}
	}
}

// normalizeTrade converts a combined stream event into the storage trade
// shape and returns its JSON encoding plus the symbol for metrics.
func (ts *TradeStream) normalizeTrade(raw []byte) ([]byte, string, error) {
	var event combinedTradeEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, "", fmt.Errorf("failed to decode stream event: %w", err)
	}
	if event.Data.Symbol == "" {
		return nil, "", fmt.Errorf("stream event missing symbol")
	}

	price, err := strconv.ParseFloat(event.Data.Price, 64)
	if err != nil {
		return nil, "", fmt.Errorf("bad price %q: %w", event.Data.Price, err)
	}
	quantity, err := strconv.ParseFloat(event.Data.Quantity, 64)
	if err != nil {
		return nil, "", fmt.Errorf("bad quantity %q: %w", event.Data.Quantity, err)
	}

	trade := models.AggTrade{
		Time:         float64(ts.now().UnixNano()) / 1e9,
		Symbol:       event.Data.Symbol,
		AggTradeID:   event.Data.AggTradeID,
		Price:        price,
		Quantity:     quantity,
		FirstTradeID: event.Data.FirstTradeID,
		LastTradeID:  event.Data.LastTradeID,
		IsBuyerMaker: event.Data.IsBuyerMaker,
	}

	payload, err := json.Marshal(trade)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode trade: %w", err)
	}
	return payload, trade.Symbol, nil
}
