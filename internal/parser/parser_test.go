package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/pcfledger/internal/models"
)

func TestParse_MappingWithDefaults(t *testing.T) {
	input := []byte(`
source: ecoinvent
geo: EU
year: 2020
methodId: 1
datasets:
  - name: Diesel
    unit: l
    valueCO2e: 2.68
    kind: Energie
  - name: Strommix DE
    unit: kWh
    valueCO2e: 0.401
    kind: energy
    source: UBA
    geo: DE
    year: 2022
`)
	r, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, r.Datasets, 2)
	assert.Empty(t, r.Warnings)

	diesel := r.Datasets[0]
	assert.Equal(t, "Diesel", diesel.Name)
	assert.Equal(t, models.KindEnergy, diesel.Kind)
	assert.Equal(t, "ecoinvent", diesel.Source)
	assert.Equal(t, "EU", diesel.Geo)
	require.NotNil(t, diesel.Year)
	assert.Equal(t, 2020, *diesel.Year)
	require.NotNil(t, diesel.MethodID)
	assert.Equal(t, int64(1), *diesel.MethodID)

	strom := r.Datasets[1]
	assert.Equal(t, "UBA", strom.Source)
	assert.Equal(t, "DE", strom.Geo)
	assert.Equal(t, 2022, *strom.Year)
}

func TestParse_BareJSONList(t *testing.T) {
	input := []byte(`[{"name":"Steel","unit":"kg","valueCO2e":1.9,"kind":"  ABFALL "}]`)
	r, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, r.Datasets, 1)
	assert.Equal(t, models.KindWaste, r.Datasets[0].Kind)
	assert.Nil(t, r.Datasets[0].Year)
	assert.Nil(t, r.Datasets[0].MethodID)
}

func TestParse_UnknownKindBecomesMaterial(t *testing.T) {
	r, err := Parse([]byte("- {name: X, unit: kg, valueCO2e: 1, kind: plastic}\n- {name: Y, unit: kg, valueCO2e: 1}\n"))
	require.NoError(t, err)
	require.Len(t, r.Datasets, 2)
	for _, d := range r.Datasets {
		assert.Equal(t, models.KindMaterial, d.Kind, d.Name)
	}
}

func TestParse_SkipsBadEntries(t *testing.T) {
	input := []byte(`
datasets:
  - unit: kg
    valueCO2e: 1
  - name: NoUnit
    valueCO2e: 1
  - name: NoValue
    unit: kg
  - name: Negative
    unit: kg
    valueCO2e: -2
  - name: Good
    unit: kg
    valueCO2e: 0
`)
	r, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, r.Datasets, 1)
	assert.Equal(t, "Good", r.Datasets[0].Name)
	assert.Len(t, r.Warnings, 4)
}

func TestParse_DuplicateNameLastWins(t *testing.T) {
	r, err := Parse([]byte("- {name: A, unit: kg, valueCO2e: 1}\n- {name: B, unit: kg, valueCO2e: 2}\n- {name: A, unit: kg, valueCO2e: 3}\n"))
	require.NoError(t, err)
	require.Len(t, r.Datasets, 2)
	assert.Equal(t, "A", r.Datasets[0].Name)
	assert.Equal(t, 3.0, r.Datasets[0].ValueCO2e)
	assert.Len(t, r.Warnings, 1)
}

func TestParse_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "  \n", "# only a comment\n"} {
		r, err := Parse([]byte(in))
		require.NoError(t, err, "%q", in)
		assert.Empty(t, r.Datasets, "%q", in)
	}
}

func TestParse_InvalidInput(t *testing.T) {
	cases := map[string]string{
		"broken yaml": "datasets: [ {{{",
		"scalar root": "just a string",
		"wrong type":  "datasets: 12",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(in))
			assert.Error(t, err)
		})
	}
}
