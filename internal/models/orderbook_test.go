package models

import (
	"math"
	"testing"
)

func TestEncodeDecodeLevels(t *testing.T) {
	levels := []Level{
		{Price: 100.5, Volume: 2.25},
		{Price: 100.25, Volume: 0.5},
		{Price: 99.75, Volume: 10},
	}

	blob := EncodeLevels(levels)
	if len(blob) != len(levels)*8 {
		t.Errorf("Expected blob length %d, got %d", len(levels)*8, len(blob))
	}

	decoded, err := DecodeLevels(blob)
	if err != nil {
		t.Fatalf("DecodeLevels failed: %v", err)
	}
	if len(decoded) != len(levels) {
		t.Fatalf("Expected %d levels, got %d", len(levels), len(decoded))
	}
	for i := range levels {
		if decoded[i] != levels[i] {
			t.Errorf("Level %d mismatch: expected %+v, got %+v", i, levels[i], decoded[i])
		}
	}
}

func TestDecodeLevelsEmpty(t *testing.T) {
	levels, err := DecodeLevels(nil)
	if err != nil {
		t.Fatalf("Empty blob should decode: %v", err)
	}
	if len(levels) != 0 {
		t.Errorf("Expected no levels, got %d", len(levels))
	}
}

func TestDecodeLevelsMalformed(t *testing.T) {
	// 10 bytes is not a whole number of (price, volume) pairs.
	if _, err := DecodeLevels(make([]byte, 10)); err == nil {
		t.Error("Expected error for truncated blob")
	}
}

func TestImbalance(t *testing.T) {
	snap := OrderBookSnapshot{
		Symbol: "BTCUSDT",
		Bids:   EncodeLevels([]Level{{Price: 100, Volume: 3}, {Price: 99, Volume: 3}}),
		Asks:   EncodeLevels([]Level{{Price: 101, Volume: 2}}),
	}

	obi, err := snap.Imbalance()
	if err != nil {
		t.Fatalf("Imbalance failed: %v", err)
	}
	// (6 - 2) / (6 + 2) = 0.5
	if math.Abs(obi-0.5) > 1e-9 {
		t.Errorf("Expected OBI 0.5, got %f", obi)
	}
}

func TestImbalanceEmptyBook(t *testing.T) {
	snap := OrderBookSnapshot{Symbol: "BTCUSDT"}

	obi, err := snap.Imbalance()
	if err != nil {
		t.Fatalf("Empty book should not error: %v", err)
	}
	if obi != 0 {
		t.Errorf("Expected OBI 0 for empty book, got %f", obi)
	}
}

func TestImbalanceMalformedSide(t *testing.T) {
	snap := OrderBookSnapshot{
		Bids: make([]byte, 7),
		Asks: EncodeLevels([]Level{{Price: 101, Volume: 2}}),
	}
	if _, err := snap.Imbalance(); err == nil {
		t.Error("Expected error for malformed bids blob")
	}
}
