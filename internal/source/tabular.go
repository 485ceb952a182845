// internal/source/tabular.go
package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// Column names recognized in tabular headers, keyed by lowercase alias.
var columnAliases = map[string]string{
	"name":           "name",
	"wine":           "name",
	"wine name":      "name",
	"title":          "name",
	"producer":       "producer",
	"winery":         "producer",
	"vineyard":       "producer",
	"region":         "region",
	"appellation":    "region",
	"country":        "country",
	"varietal":       "varietal",
	"grape":          "varietal",
	"variety":        "varietal",
	"vintage":        "vintage",
	"year":           "vintage",
	"description":    "description",
	"notes":          "description",
	"alcohol":        "alcohol",
	"abv":            "alcohol",
	"alcoholcontent": "alcohol",
	"image":          "image",
	"image_url":      "image",
	"imageurl":       "image",
	"rating":         "rating",
	"ratingvalue":    "rating",
	"ratings":        "rating_count",
	"rating_count":   "rating_count",
	"ratingcount":    "rating_count",
	"reviews":        "rating_count",
	"price":          "price",
	"line":           "line",
	"label":          "line",
	"text":           "line",
}

// CSVSource reads a comma-separated export with a header row.
type CSVSource struct {
	Path string
}

// Name returns the source path
func (s *CSVSource) Name() string { return s.Path }

// Records maps each data row onto a record
func (s *CSVSource) Records(ctx context.Context, parse LineParser) ([]types.WineRecord, []error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, openFailure(s.Path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, openFailure(s.Path, err)
		}
		rows = append(rows, row)
	}

	return recordsFromRows(ctx, s.Path, rows, parse)
}

// XLSXSource reads one worksheet of a spreadsheet export.
type XLSXSource struct {
	Path  string
	Sheet string
}

// Name returns the source path
func (s *XLSXSource) Name() string { return s.Path }

// Records maps each data row of the sheet onto a record
func (s *XLSXSource) Records(ctx context.Context, parse LineParser) ([]types.WineRecord, []error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, openFailure(s.Path, err)
	}
	defer f.Close()

	sheet := s.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, openFailure(s.Path, err)
	}

	return recordsFromRows(ctx, s.Path, rows, parse)
}

// recordsFromRows treats rows[0] as the header. When the header has a line
// column and no name column, each row is parsed as text instead.
func recordsFromRows(ctx context.Context, name string, rows [][]string, parse LineParser) ([]types.WineRecord, []error) {
	if len(rows) == 0 {
		return nil, nil
	}

	columns := make(map[string]int)
	for i, h := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canonical, ok := columnAliases[key]; ok {
			if _, seen := columns[canonical]; !seen {
				columns[canonical] = i
			}
		}
	}

	_, hasName := columns["name"]
	lineCol, hasLine := columns["line"]
	if !hasName && !hasLine {
		return nil, []error{errors.Newf(errors.KindMalformedDocument, "read header",
			"%s: header has neither a name nor a line column", name)}
	}

	var (
		records []types.WineRecord
		errs    []error
	)

	for i, row := range rows[1:] {
		rowNo := i + 2
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if blankRow(row) {
			continue
		}

		if !hasName {
			rec, err := parse(cell(row, lineCol))
			if err != nil {
				errs = append(errs, lineFailure(name, rowNo, err))
				continue
			}
			records = append(records, rec)
			continue
		}

		rec, err := rowRecord(row, columns)
		if err != nil {
			errs = append(errs, lineFailure(name, rowNo, err))
			continue
		}
		records = append(records, rec)
	}

	return records, errs
}

func rowRecord(row []string, columns map[string]int) (types.WineRecord, error) {
	get := func(field string) string {
		i, ok := columns[field]
		if !ok {
			return ""
		}
		return cell(row, i)
	}

	rec := types.WineRecord{
		Name:     get("name"),
		Producer: get("producer"),
		Region:   get("region"),
		Country:  get("country"),
		Varietal: get("varietal"),
	}

	if v := get("vintage"); v != "" && !strings.EqualFold(v, "nv") {
		year, err := strconv.Atoi(v)
		if err != nil {
			return rec, errors.Newf(errors.KindParseFailure, "read row", "vintage %q is not a year", v)
		}
		rec.Vintage = types.IntPtr(year)
	}

	var err error
	if rec.RatingValue, err = parseFloatCell(get("rating")); err != nil {
		return rec, err
	}
	if rec.Price, err = parseFloatCell(get("price")); err != nil {
		return rec, err
	}
	if rec.AlcoholContent, err = parseFloatCell(get("alcohol")); err != nil {
		return rec, err
	}
	if c := strings.ReplaceAll(get("rating_count"), ",", ""); c != "" {
		n, convErr := strconv.Atoi(c)
		if convErr != nil {
			return rec, errors.Newf(errors.KindParseFailure, "read row", "rating count %q is not an integer", c)
		}
		rec.RatingCount = types.IntPtr(n)
	}
	if d := get("description"); d != "" {
		rec.Description = types.StringPtr(d)
	}
	if img := get("image"); img != "" {
		rec.Image = types.StringPtr(img)
	}

	return rec, nil
}

func parseFloatCell(v string) (*float64, error) {
	v = strings.TrimSpace(strings.NewReplacer("$", "", ",", "", "%", "").Replace(v))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, errors.New(errors.KindParseFailure, "read row", fmt.Errorf("%q is not a number", v))
	}
	return &f, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
