package collector

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"rustedcrab/trainset/internal/models"
)

func testSlog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChunkSymbols(t *testing.T) {
	symbols := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "XRPUSDT", "ADAUSDT"}

	tests := []struct {
		name      string
		chunkSize int
		expected  int
	}{
		{"Chunk by 2", 2, 3},
		{"Chunk by 3", 3, 2},
		{"Chunk by 5", 5, 1},
		{"Chunk by 10", 10, 1},
		{"Chunk by 1", 1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := ChunkSymbols(symbols, tt.chunkSize)
			if len(chunks) != tt.expected {
				t.Errorf("Expected %d chunks, got %d", tt.expected, len(chunks))
			}

			total := 0
			for _, chunk := range chunks {
				total += len(chunk)
			}
			if total != len(symbols) {
				t.Errorf("Expected %d symbols across chunks, got %d", len(symbols), total)
			}
		})
	}
}

func TestStreamURL(t *testing.T) {
	ts := NewTradeStream("wss://fstream.binance.com/stream", nil, NewLogger())

	url := ts.streamURL([]string{"BTCUSDT", "ETHUSDT"})
	expected := "wss://fstream.binance.com/stream?streams=btcusdt@aggTrade/ethusdt@aggTrade"
	if url != expected {
		t.Errorf("Expected %q, got %q", expected, url)
	}
}

func TestNormalizeTrade(t *testing.T) {
	ts := NewTradeStream("wss://example.com/stream", nil, NewLogger())
	fixed := time.Unix(1717000000, 500_000_000)
	ts.now = func() time.Time { return fixed }

	raw := []byte(`{"stream":"btcusdt@aggTrade","data":{"e":"aggTrade","s":"BTCUSDT","a":5933014,"p":"65000.50","q":"0.010","f":100,"l":105,"m":true}}`)

	payload, symbol, err := ts.normalizeTrade(raw)
	if err != nil {
		t.Fatalf("normalizeTrade failed: %v", err)
	}
	if symbol != "BTCUSDT" {
		t.Errorf("Expected symbol BTCUSDT, got %s", symbol)
	}

	var trade models.AggTrade
	if err := json.Unmarshal(payload, &trade); err != nil {
		t.Fatalf("Payload is not valid trade JSON: %v", err)
	}
	if trade.Price != 65000.50 || trade.Quantity != 0.010 {
		t.Errorf("Unexpected price/quantity: %+v", trade)
	}
	if trade.AggTradeID != 5933014 || trade.FirstTradeID != 100 || trade.LastTradeID != 105 {
		t.Errorf("Unexpected trade IDs: %+v", trade)
	}
	if !trade.IsBuyerMaker {
		t.Error("Expected IsBuyerMaker true")
	}
	if math.Abs(trade.Time-1717000000.5) > 1e-6 {
		t.Errorf("Expected time 1717000000.5, got %f", trade.Time)
	}
}

func TestNormalizeTradeRejectsBadPayloads(t *testing.T) {
	ts := NewTradeStream("wss://example.com/stream", nil, NewLogger())

	cases := []struct {
		name string
		raw  string
	}{
		{"not json", "not json"},
		{"missing symbol", `{"stream":"x","data":{"p":"1","q":"1"}}`},
		{"bad price", `{"stream":"x","data":{"s":"BTCUSDT","p":"oops","q":"1"}}`},
		{"bad quantity", `{"stream":"x","data":{"s":"BTCUSDT","p":"1","q":"oops"}}`},
	}

	for _, tc := range cases {
		if _, _, err := ts.normalizeTrade([]byte(tc.raw)); err == nil {
			t.Errorf("%s: expected rejection", tc.name)
		}
	}
}

func TestPackLevels(t *testing.T) {
	blob := packLevels([][2]string{{"100.5", "2.0"}, {"100.0", "1.5"}})

	levels, err := models.DecodeLevels(blob)
	if err != nil {
		t.Fatalf("DecodeLevels failed: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("Expected 2 levels, got %d", len(levels))
	}
	if levels[0].Price != 100.5 || levels[0].Volume != 2.0 {
		t.Errorf("Unexpected first level: %+v", levels[0])
	}
}

func TestPackLevelsUnparseable(t *testing.T) {
	blob := packLevels([][2]string{{"oops", "1.0"}})

	levels, err := models.DecodeLevels(blob)
	if err != nil {
		t.Fatalf("DecodeLevels failed: %v", err)
	}
	if levels[0].Price != 0 || levels[0].Volume != 1.0 {
		t.Errorf("Expected zero price for unparseable input, got %+v", levels[0])
	}
}

func TestFetchSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/depth" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("symbol") != "BTCUSDT" {
			t.Errorf("Unexpected symbol %s", r.URL.Query().Get("symbol"))
		}
		if r.URL.Query().Get("limit") != "20" {
			t.Errorf("Unexpected limit %s", r.URL.Query().Get("limit"))
		}
		w.Write([]byte(`{"lastUpdateId":1,"bids":[["100.0","1.0"],["99.5","2.0"]],"asks":[["100.5","3.0"]]}`))
	}))
	defer server.Close()

	dp := NewDepthPoller(server.URL, 20, 100, nil, testSlog())

	snapshot, err := dp.fetchSnapshot(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("fetchSnapshot failed: %v", err)
	}
	if snapshot.Symbol != "BTCUSDT" {
		t.Errorf("Expected symbol BTCUSDT, got %s", snapshot.Symbol)
	}

	bids, err := models.DecodeLevels(snapshot.Bids)
	if err != nil {
		t.Fatalf("Bids blob malformed: %v", err)
	}
	if len(bids) != 2 {
		t.Errorf("Expected 2 bid levels, got %d", len(bids))
	}

	asks, err := models.DecodeLevels(snapshot.Asks)
	if err != nil {
		t.Fatalf("Asks blob malformed: %v", err)
	}
	if len(asks) != 1 || asks[0].Volume != 3.0 {
		t.Errorf("Unexpected asks: %+v", asks)
	}
}

func TestFetchSnapshotServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	dp := NewDepthPoller(server.URL, 20, 100, nil, testSlog())

	if _, err := dp.fetchSnapshot(context.Background(), "BTCUSDT"); err == nil {
		t.Error("Expected error for non-200 response")
	}
}

func TestDepthWorkerStopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bids":[],"asks":[]}`))
	}))
	defer server.Close()

	dp := NewDepthPoller(server.URL, 20, 100, nil, testSlog())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go dp.RunWorker(ctx, "BTCUSDT", &wg)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Worker did not stop after context cancellation")
	}
}
