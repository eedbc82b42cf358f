package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCatalogYAML_Replace(t *testing.T) {
	c, err := ParseCatalogYAML([]byte(`
models:
  - name: Ka2017
    tmin: 0.1
    tmax: 14
    dt: 0.25
  - name: Me2017
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"Ka2017", "Me2017"}, c.Names())
	assert.False(t, c.Allowed("Bu2019lm"))

	grid := c.EffectiveGrid("Ka2017", DefaultAnalysisParameters())
	assert.Equal(t, SamplingGrid{Tmin: 0.1, Tmax: 14, Dt: 0.25}, grid)
}

func TestParseCatalogYAML_Extend(t *testing.T) {
	c, err := ParseCatalogYAML([]byte(`
extend: true
models:
  - name: TrPi2018
  - name: salt2
    plot_grid: {start: 0.01, stop: 10.21, step: 0.2}
`))
	require.NoError(t, err)

	names := c.Names()
	assert.Len(t, names, 7)
	assert.Equal(t, "salt2", names[6])

	spec, ok := c.Lookup("TrPi2018")
	require.True(t, ok)
	assert.Nil(t, spec.Grid, "file entry replaces the stock override")

	times := c.SampleTimes("salt2", SamplingGrid{Tmin: 0, Tmax: 1, Dt: 0.5})
	require.NotEmpty(t, times)
	assert.InDelta(t, 0.01, times[0], 1e-12)
}

func TestParseCatalogYAML_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":           ``,
		"no models":       `models: []`,
		"partial grid":    "models:\n  - name: Me2017\n    tmin: 1\n",
		"backwards grid":  "models:\n  - name: Me2017\n    tmin: 2\n    tmax: 1\n    dt: 0.1\n",
		"empty plot grid": "models:\n  - name: Me2017\n    plot_grid: {start: 1, stop: 1, step: 0.1}\n",
		"unknown key":     "models:\n  - name: Me2017\n    sampler: dynesty\n",
		"duplicate":       "models:\n  - name: Me2017\n  - name: Me2017\n",
		"blank name":      "models:\n  - name: ' '\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalogYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}
