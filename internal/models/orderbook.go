package models

import (
	"encoding/binary"
	"fmt"
	"math"
)

// OrderBookSnapshot represents one point-in-time depth snapshot in the
// order_books table. Bids and Asks are flat binary arrays of interleaved
// little-endian float32 (price, volume) pairs; an empty blob is a valid
// "no liquidity reported" side.
type OrderBookSnapshot struct {
	// Time is the snapshot timestamp as unix seconds.
	Time float64 `json:"time"`

	// Symbol is the instrument identifier.
	Symbol string `json:"symbol"`

	// Bids and Asks hold the packed price/volume pairs.
	Bids []byte `json:"bids"`
	Asks []byte `json:"asks"`
}

// TableName maps the model onto the order_books table for GORM.
func (OrderBookSnapshot) TableName() string { return "order_books" }

// Level is one decoded (price, volume) pair of a book side.
type Level struct {
	Price  float32
	Volume float32
}

const levelSize = 8 // two float32 per level

// DecodeLevels unpacks a side blob into its levels. A nil or empty blob
// decodes to an empty slice. Blobs whose length is not a multiple of one
// packed pair are rejected.
func DecodeLevels(blob []byte) ([]Level, error) {
	if len(blob)%levelSize != 0 {
		return nil, fmt.Errorf("orderbook blob length %d is not a multiple of %d", len(blob), levelSize)
	}

	levels := make([]Level, 0, len(blob)/levelSize)
	for off := 0; off < len(blob); off += levelSize {
		levels = append(levels, Level{
			Price:  math.Float32frombits(binary.LittleEndian.Uint32(blob[off : off+4])),
			Volume: math.Float32frombits(binary.LittleEndian.Uint32(blob[off+4 : off+8])),
		})
	}
	return levels, nil
}

// EncodeLevels packs levels into the flat blob layout.
func EncodeLevels(levels []Level) []byte {
	blob := make([]byte, len(levels)*levelSize)
	for i, l := range levels {
		off := i * levelSize
		binary.LittleEndian.PutUint32(blob[off:off+4], math.Float32bits(l.Price))
		binary.LittleEndian.PutUint32(blob[off+4:off+8], math.Float32bits(l.Volume))
	}
	return blob
}

// SideVolume sums the volume components of a packed side blob.
func SideVolume(blob []byte) (float64, error) {
	levels, err := DecodeLevels(blob)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, l := range levels {
		total += float64(l.Volume)
	}
	return total, nil
}

// Imbalance computes the order-book imbalance of the snapshot:
// (bidVol - askVol) / (bidVol + askVol), or 0 when the book is empty.
// A malformed side blob makes the whole snapshot unusable.
func (s *OrderBookSnapshot) Imbalance() (float64, error) {
	bidVol, err := SideVolume(s.Bids)
	if err != nil {
		return 0, fmt.Errorf("bids: %w", err)
	}
	askVol, err := SideVolume(s.Asks)
	if err != nil {
		return 0, fmt.Errorf("asks: %w", err)
	}

	total := bidVol + askVol
	if total <= 0 {
		return 0, nil
	}
	return (bidVol - askVol) / total, nil
}
