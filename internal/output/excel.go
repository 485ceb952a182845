// internal/output/excel.go
package output

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/internal/pipeline"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// Sheet names of the stats workbook, in tab order.
const (
	SheetSummary   = "Summary"
	SheetCountry   = "By Country"
	SheetVarietal  = "By Varietal"
	SheetRegion    = "By Region"
	SheetPriceBand = "By Price Band"
	SheetWines     = "Wines"
)

// reportWriter fills one workbook; the first error sticks
type reportWriter struct {
	file        *excelize.File
	headerStyle int
	numberStyle int
	err         error
}

// WriteStatsXLSX writes the operator report: a summary sheet, one sheet per
// breakdown and the catalog itself sorted by rating.
func WriteStatsXLSX(path string, stats pipeline.Stats, records []types.WineRecord) error {
	file := excelize.NewFile()
	defer file.Close()

	w := &reportWriter{file: file}
	w.headerStyle, w.err = file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if w.err == nil {
		// two decimal places
		w.numberStyle, w.err = file.NewStyle(&excelize.Style{NumFmt: 2})
	}

	if w.err == nil {
		w.err = file.SetSheetName(file.GetSheetName(0), SheetSummary)
	}
	w.table(SheetSummary, []string{"Metric", "Value"}, [][]interface{}{
		{"Total wines", stats.Total},
		{"With image", stats.WithImage},
		{"Without image", stats.Total - stats.WithImage},
	})
	w.counts(SheetCountry, "Country", pipeline.Sorted(stats.ByCountry))
	w.counts(SheetVarietal, "Varietal", pipeline.Sorted(stats.ByVarietal))
	w.counts(SheetRegion, "Region", pipeline.Sorted(stats.ByRegion))
	w.counts(SheetPriceBand, "Price band", stats.SortedBands())
	w.wines(records)

	if w.err != nil {
		return errors.New(errors.KindStorage, "write report", w.err)
	}
	if err := file.SaveAs(path); err != nil {
		return errors.New(errors.KindStorage, "write report", err)
	}
	return nil
}

func (w *reportWriter) counts(sheet, label string, counts []pipeline.Count) {
	rows := make([][]interface{}, len(counts))
	for i, c := range counts {
		rows[i] = []interface{}{c.Label, c.Count}
	}
	w.table(sheet, []string{label, "Wines"}, rows)
}

func (w *reportWriter) wines(records []types.WineRecord) {
	sorted := append([]types.WineRecord(nil), records...)
	pipeline.SortByRating(sorted)

	rows := make([][]interface{}, len(sorted))
	for i, r := range sorted {
		rows[i] = []interface{}{
			r.Name, r.Producer, cellInt(r.Vintage), r.Region, r.Country, r.Varietal,
			cellFloat(r.RatingValue), cellInt(r.RatingCount), cellFloat(r.Price),
			cellFloat(r.AlcoholContent), formatString(r.Image),
		}
	}
	w.table(SheetWines, CatalogColumns[:11], rows)

	if w.err == nil && len(rows) > 0 {
		// price column
		w.err = w.file.SetCellStyle(SheetWines, "I2", "I"+strconv.Itoa(len(rows)+1), w.numberStyle)
	}
}

// table writes a header row and data rows, then freezes and filters the header
func (w *reportWriter) table(sheet string, headers []string, rows [][]interface{}) {
	if w.err != nil {
		return
	}
	if idx, _ := w.file.GetSheetIndex(sheet); idx < 0 {
		if _, w.err = w.file.NewSheet(sheet); w.err != nil {
			return
		}
	}

	for col, h := range headers {
		cell := columnName(col+1) + "1"
		if w.err = w.file.SetCellValue(sheet, cell, h); w.err != nil {
			return
		}
	}
	lastCol := columnName(len(headers))
	if w.err = w.file.SetCellStyle(sheet, "A1", lastCol+"1", w.headerStyle); w.err != nil {
		return
	}

	for i, row := range rows {
		cell := "A" + strconv.Itoa(i+2)
		if w.err = w.file.SetSheetRow(sheet, cell, &row); w.err != nil {
			return
		}
	}

	if w.err = w.file.SetColWidth(sheet, "A", lastCol, 18); w.err != nil {
		return
	}
	if w.err = w.file.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); w.err != nil {
		return
	}
	if len(rows) > 0 {
		w.err = w.file.AutoFilter(sheet, fmt.Sprintf("A1:%s%d", lastCol, len(rows)+1), nil)
	}
}

func cellInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func cellFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// columnName converts a column number to Excel column name (A, B, C, ..., AA, AB, etc.)
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}
