package dataset

import (
	"github.com/parquet-go/parquet-go"

	"rustedcrab/trainset/internal/models"
)

// ParquetWriter persists samples as a Parquet file.
type ParquetWriter struct{}

func (ParquetWriter) Extension() string { return "parquet" }

func (ParquetWriter) Write(samples []models.LabeledSample, path string) error {
	return parquet.WriteFile(path, toRows(samples))
}
