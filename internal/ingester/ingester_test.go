package ingester

import (
	"encoding/json"
	"testing"

	"rustedcrab/trainset/internal/models"

	"github.com/segmentio/kafka-go"
)

func tradeMessage(t *testing.T, trade models.AggTrade) kafka.Message {
	t.Helper()
	value, err := json.Marshal(trade)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return kafka.Message{Value: value}
}

func TestParseTradeMessage(t *testing.T) {
	msg := tradeMessage(t, models.AggTrade{
		Time:         1717000000.5,
		Symbol:       "BTCUSDT",
		AggTradeID:   42,
		Price:        65000.5,
		Quantity:     0.01,
		IsBuyerMaker: true,
	})

	trade, err := parseTradeMessage(msg)
	if err != nil {
		t.Fatalf("parseTradeMessage failed: %v", err)
	}
	if trade.Symbol != "BTCUSDT" || trade.Price != 65000.5 || !trade.IsBuyerMaker {
		t.Errorf("Unexpected trade: %+v", trade)
	}
}

func TestParseTradeMessageRejectsInvalid(t *testing.T) {
	cases := []struct {
		name  string
		trade models.AggTrade
	}{
		{"missing symbol", models.AggTrade{Time: 1, Price: 100, Quantity: 1}},
		{"zero time", models.AggTrade{Symbol: "BTCUSDT", Price: 100, Quantity: 1}},
		{"zero price", models.AggTrade{Time: 1, Symbol: "BTCUSDT", Quantity: 1}},
		{"negative quantity", models.AggTrade{Time: 1, Symbol: "BTCUSDT", Price: 100, Quantity: -1}},
	}

	for _, tc := range cases {
		if _, err := parseTradeMessage(tradeMessage(t, tc.trade)); err == nil {
			t.Errorf("%s: expected rejection", tc.name)
		}
	}
}

func TestParseTradeMessageRejectsGarbage(t *testing.T) {
	if _, err := parseTradeMessage(kafka.Message{Value: []byte("not json")}); err == nil {
		t.Error("Expected error for non-JSON payload")
	}
}

func TestParseBookMessage(t *testing.T) {
	snap := models.OrderBookSnapshot{
		Time:   1717000000,
		Symbol: "BTCUSDT",
		Bids:   models.EncodeLevels([]models.Level{{Price: 100, Volume: 1}}),
		Asks:   models.EncodeLevels([]models.Level{{Price: 101, Volume: 2}}),
	}
	value, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := parseBookMessage(kafka.Message{Value: value})
	if err != nil {
		t.Fatalf("parseBookMessage failed: %v", err)
	}
	if got.Symbol != "BTCUSDT" || len(got.Bids) != 8 || len(got.Asks) != 8 {
		t.Errorf("Unexpected snapshot: %+v", got)
	}
}

func TestParseBookMessageEmptySidesValid(t *testing.T) {
	value, _ := json.Marshal(models.OrderBookSnapshot{Time: 1, Symbol: "BTCUSDT"})
	if _, err := parseBookMessage(kafka.Message{Value: value}); err != nil {
		t.Errorf("Empty book sides must be valid: %v", err)
	}
}

func TestParseBookMessageRejectsMalformedBlob(t *testing.T) {
	value, _ := json.Marshal(models.OrderBookSnapshot{
		Time:   1,
		Symbol: "BTCUSDT",
		Bids:   []byte{1, 2, 3},
	})
	if _, err := parseBookMessage(kafka.Message{Value: value}); err == nil {
		t.Error("Expected rejection of truncated bids blob")
	}
}
