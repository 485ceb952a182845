// internal/output/csv.go
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/internal/pipeline"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// CatalogColumns is the CSV header, in column order
var CatalogColumns = []string{
	"name", "producer", "vintage", "region", "country", "varietal",
	"rating", "rating_count", "price", "alcohol", "image", "description",
}

// WriteCSV writes records sorted by rating, highest first. Null fields are
// empty cells. records is not modified.
func WriteCSV(w io.Writer, records []types.WineRecord) error {
	sorted := append([]types.WineRecord(nil), records...)
	pipeline.SortByRating(sorted)

	writer := csv.NewWriter(w)
	if err := writer.Write(CatalogColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range sorted {
		row := []string{
			r.Name,
			r.Producer,
			formatInt(r.Vintage),
			r.Region,
			r.Country,
			r.Varietal,
			formatFloat(r.RatingValue),
			formatInt(r.RatingCount),
			formatFloat(r.Price),
			formatFloat(r.AlcoholContent),
			formatString(r.Image),
			formatString(r.Description),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteCSVFile writes the CSV export to path
func WriteCSVFile(path string, records []types.WineRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.New(errors.KindStorage, "write csv", err)
	}

	if err := WriteCSV(file, records); err != nil {
		file.Close()
		return errors.New(errors.KindStorage, "write csv", err)
	}
	if err := file.Close(); err != nil {
		return errors.New(errors.KindStorage, "write csv", err)
	}
	return nil
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
