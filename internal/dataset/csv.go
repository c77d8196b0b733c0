package dataset

import (
	"encoding/csv"
	"os"
	"strconv"

	"rustedcrab/trainset/internal/models"
)

// CSVWriter persists samples as a CSV file with a header row.
type CSVWriter struct{}

func (CSVWriter) Extension() string { return "csv" }

func (CSVWriter) Write(samples []models.LabeledSample, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"rsi", "obi", "tfi", "volatility", "label"}); err != nil {
		return err
	}

	for _, row := range toRows(samples) {
		record := []string{
			strconv.FormatFloat(row.RSI, 'f', -1, 64),
			strconv.FormatFloat(row.OBI, 'f', -1, 64),
			strconv.FormatFloat(row.TFI, 'f', -1, 64),
			strconv.FormatFloat(row.Volatility, 'f', -1, 64),
			strconv.Itoa(int(row.Label)),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
