package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"rustedcrab/trainset/internal/models"

	"github.com/parquet-go/parquet-go"
)

func sampleBatch() []models.LabeledSample {
	return []models.LabeledSample{
		{RSI: 25.5, OBI: 0.4, TFI: -0.2, Volatility: 1.5, Label: models.LabelBuy},
		{RSI: 75.0, OBI: -0.1, TFI: 0.3, Volatility: 2.0, Label: models.LabelSell},
		{RSI: 50.0, OBI: 0.0, TFI: 0.0, Volatility: 0.5, Label: models.LabelHold},
	}
}

func TestNewWriter(t *testing.T) {
	tests := []struct {
		format    string
		extension string
	}{
		{"csv", "csv"},
		{"parquet", "parquet"},
		{"json", "json"},
		{" Parquet ", "parquet"},
	}

	for _, tt := range tests {
		w := NewWriter(tt.format)
		if w == nil {
			t.Errorf("Expected writer for format %q", tt.format)
			continue
		}
		if w.Extension() != tt.extension {
			t.Errorf("Expected extension %q, got %q", tt.extension, w.Extension())
		}
	}

	if NewWriter("xml") != nil {
		t.Error("Expected nil writer for unsupported format")
	}
}

func TestCSVWriterOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	if err := (CSVWriter{}).Write(sampleBatch(), path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	if len(records) != 4 {
		t.Fatalf("Expected header + 3 rows, got %d records", len(records))
	}
	header := records[0]
	expected := []string{"rsi", "obi", "tfi", "volatility", "label"}
	for i, col := range expected {
		if header[i] != col {
			t.Errorf("Expected header column %q, got %q", col, header[i])
		}
	}
	if records[1][4] != "1" || records[2][4] != "2" || records[3][4] != "0" {
		t.Errorf("Unexpected label column: %v %v %v", records[1][4], records[2][4], records[3][4])
	}
}

func TestParquetWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.parquet")

	if err := (ParquetWriter{}).Write(sampleBatch(), path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if rows[0].RSI != 25.5 || rows[0].Label != 1 {
		t.Errorf("Unexpected first row: %+v", rows[0])
	}
}

func TestJSONWriterEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	if err := (JSONWriter{}).Write(nil, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("Expected non-empty JSON output")
	}
}
