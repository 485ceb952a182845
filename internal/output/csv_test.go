// internal/output/csv_test.go
package output

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	records := sampleRecords()
	var buf bytes.Buffer

	require.NoError(t, WriteCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, CatalogColumns, rows[0])
	assert.Equal(t, "Antinori Tignanello", rows[1][0], "highest rating first")
	assert.Equal(t, "Viña Cobos Bramare Malbec", rows[2][0])
	assert.Equal(t, "Mystery Red", rows[3][0], "unrated last")

	assert.Equal(t, []string{
		"Viña Cobos Bramare Malbec", "Viña Cobos", "2022", "Uco Valley", "Argentina", "Malbec",
		"4.4", "1235", "39.99", "", "https://images.example.com/thumbs/bramare_pb_x960.png", "",
	}, rows[2])
	assert.Equal(t, "Cherry & <spice>", rows[1][11])

	assert.Equal(t, "Viña Cobos Bramare Malbec", records[0].Name, "input order untouched")
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")

	require.NoError(t, WriteCSVFile(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "name,producer,vintage,region,country,varietal,rating,rating_count,price,alcohol,image,description\n", string(data))
}

func TestWriteCSVFileBadPath(t *testing.T) {
	err := WriteCSVFile(filepath.Join(t.TempDir(), "missing", "catalog.csv"), sampleRecords())
	assert.Error(t, err)
}
