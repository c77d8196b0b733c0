package dataset

import (
	"encoding/json"
	"os"

	"rustedcrab/trainset/internal/models"
)

// JSONWriter persists samples as an indented JSON array.
type JSONWriter struct{}

func (JSONWriter) Extension() string { return "json" }

func (JSONWriter) Write(samples []models.LabeledSample, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(toRows(samples))
}
