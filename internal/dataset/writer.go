// Package dataset persists labeled training samples to disk. The output
// format is selected at runtime; parquet is the default for training
// pipelines, csv for quick inspection.
package dataset

import (
	"fmt"
	"strings"

	"rustedcrab/trainset/internal/models"
)

// Row is the on-disk shape of one training sample.
type Row struct {
	RSI        float64 `json:"rsi" parquet:"rsi"`
	OBI        float64 `json:"obi" parquet:"obi"`
	TFI        float64 `json:"tfi" parquet:"tfi"`
	Volatility float64 `json:"volatility" parquet:"volatility"`
	Label      int8    `json:"label" parquet:"label"`
}

// Writer persists a batch of labeled samples to a file.
type Writer interface {
	Write(samples []models.LabeledSample, path string) error
	Extension() string
}

// NewWriter returns the writer for a format, or nil if unsupported.
func NewWriter(format string) Writer {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVWriter{}
	case "parquet":
		return ParquetWriter{}
	case "json":
		return JSONWriter{}
	default:
		return nil
	}
}

// MustWriter is like NewWriter but panics on an unsupported format.
func MustWriter(format string) Writer {
	w := NewWriter(format)
	if w == nil {
		panic(fmt.Sprintf("dataset: unsupported format %q (use: csv, parquet, json)", format))
	}
	return w
}

func toRows(samples []models.LabeledSample) []Row {
	rows := make([]Row, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, Row{
			RSI:        s.RSI,
			OBI:        s.OBI,
			TFI:        s.TFI,
			Volatility: s.Volatility,
			Label:      int8(s.Label),
		})
	}
	return rows
}
