// internal/resolver/variants_test.go
package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valpere/CellarScrapexter/pkg/types"
)

func TestBuildQueryVariants(t *testing.T) {
	tests := []struct {
		name string
		key  types.WineKey
		want []string
	}{
		{
			name: "producer separate from name",
			key:  types.WineKey{Name: "Bramare Malbec", Producer: "Viña Cobos", Vintage: types.IntPtr(2022)},
			want: []string{
				"Viña Cobos Bramare Malbec 2022",
				"Viña Cobos Bramare Malbec",
				"Bramare Malbec 2022",
				"Bramare Malbec",
				"Viña Cobos",
			},
		},
		{
			name: "name already leads with producer",
			key:  types.WineKey{Name: "Viña Cobos Bramare Malbec", Producer: "Viña Cobos", Vintage: types.IntPtr(2022)},
			want: []string{
				"Viña Cobos Bramare Malbec 2022",
				"Viña Cobos Bramare Malbec",
				"Viña Cobos",
			},
		},
		{
			name: "non vintage",
			key:  types.WineKey{Name: "Bramare", Producer: "Cobos"},
			want: []string{"Cobos Bramare", "Bramare", "Cobos"},
		},
		{
			name: "unknown producer is not searched",
			key:  types.WineKey{Name: "Mystery  Red", Producer: types.UnknownProducer, Vintage: types.IntPtr(2019)},
			want: []string{"Mystery Red 2019", "Mystery Red"},
		},
		{
			name: "producer equal to name",
			key:  types.WineKey{Name: "Opus One", Producer: "opus one"},
			want: []string{"Opus One"},
		},
		{
			name: "empty key",
			key:  types.WineKey{},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQueryVariants(tt.key))
		})
	}
}
