// internal/pipeline/names_test.go
package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valpere/CellarScrapexter/pkg/types"
)

func TestDecomposeName(t *testing.T) {
	tests := []struct {
		fragment string
		want     NameParts
	}{
		{
			fragment: "Caymus Vineyards Cabernet Sauvignon 2019",
			want:     NameParts{Producer: "Caymus Vineyards", CleanName: "Caymus Vineyards Cabernet Sauvignon", Varietal: "Cabernet Sauvignon"},
		},
		{
			fragment: "Domaine Weinbach Gewurztraminer",
			want:     NameParts{Producer: "Domaine Weinbach", CleanName: "Domaine Weinbach Gewurztraminer", Varietal: "Gewürztraminer"},
		},
		{
			fragment: "Cavallo Rosso",
			want:     NameParts{Producer: "Cavallo", CleanName: "Cavallo Rosso", Varietal: types.DefaultVarietal},
		},
		{
			fragment: "Malbec 2020",
			want:     NameParts{Producer: types.UnknownProducer, CleanName: "Malbec", Varietal: "Malbec"},
		},
		{
			fragment: "Bodegas Muga Reserva Especial Rioja Alta",
			want:     NameParts{Producer: "Bodegas Muga Reserva", CleanName: "Bodegas Muga Reserva Especial Rioja Alta", Varietal: types.DefaultVarietal},
		},
		{
			fragment: "  ",
			want:     NameParts{Producer: types.UnknownProducer, CleanName: "", Varietal: types.DefaultVarietal},
		},
	}

	for _, tt := range tests {
		t.Run(tt.fragment, func(t *testing.T) {
			assert.Equal(t, tt.want, DecomposeName(tt.fragment))
		})
	}
}

func TestDecomposeNamePrefersSpecificPhrase(t *testing.T) {
	parts := DecomposeName("Duckhorn Cabernet Franc")
	assert.Equal(t, "Cabernet Franc", parts.Varietal)
	assert.Equal(t, "Duckhorn", parts.Producer)

	parts = DecomposeName("Trimbach Pinot Gris Reserve")
	assert.Equal(t, "Pinot Gris", parts.Varietal)
}

func TestColorOf(t *testing.T) {
	tests := []struct {
		varietal string
		want     types.WineColor
	}{
		{"Chardonnay", types.ColorWhite},
		{"chardonnay", types.ColorWhite},
		{"Carmenere", types.ColorRed},
		{"Rosé", types.ColorRose},
		{"Prosecco", types.ColorSparkling},
		{"Moscato", types.ColorDessert},
		{"Sparkling Brut", types.ColorSparkling},
		{"Something Blanc", types.ColorWhite},
		{"Mystery Grape", types.ColorRed},
		{"", types.ColorRed},
	}

	for _, tt := range tests {
		t.Run(tt.varietal, func(t *testing.T) {
			assert.Equal(t, tt.want, ColorOf(tt.varietal))
		})
	}
}

func TestNormalizeCountry(t *testing.T) {
	assert.Equal(t, "United States", NormalizeCountry("USA"))
	assert.Equal(t, "United States", NormalizeCountry(" u.s. "))
	assert.Equal(t, "United Kingdom", NormalizeCountry("England"))
	assert.Equal(t, "New Zealand", NormalizeCountry("New   Zealand"))
	assert.Equal(t, "France", NormalizeCountry("France"))
	assert.Equal(t, "", NormalizeCountry("  "))
}
