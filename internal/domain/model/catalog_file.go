package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk model catalog.
//
//	extend: true
//	models:
//	  - name: Ka2017
//	    tmin: 0.1
//	    tmax: 14
//	    dt: 0.25
//	    plot_grid: {start: 0.1, stop: 14.1, step: 0.5}
type catalogFile struct {
	// Extend keeps the stock models; entries with the same name replace them.
	Extend bool               `yaml:"extend"`
	Models []catalogFileEntry `yaml:"models"`
}

type catalogFileEntry struct {
	Name     string    `yaml:"name"`
	Tmin     *float64  `yaml:"tmin"`
	Tmax     *float64  `yaml:"tmax"`
	Dt       *float64  `yaml:"dt"`
	PlotGrid *PlotGrid `yaml:"plot_grid"`
}

func (e catalogFileEntry) spec() (ModelSpec, error) {
	spec := ModelSpec{Name: e.Name, PlotGrid: e.PlotGrid}
	set := 0
	for _, v := range []*float64{e.Tmin, e.Tmax, e.Dt} {
		if v != nil {
			set++
		}
	}
	switch set {
	case 0:
	case 3:
		spec.Grid = &SamplingGrid{Tmin: *e.Tmin, Tmax: *e.Tmax, Dt: *e.Dt}
	default:
		return ModelSpec{}, fmt.Errorf("model %s: tmin, tmax and dt must be given together", e.Name)
	}
	if e.PlotGrid != nil && len(e.PlotGrid.Times()) == 0 {
		return ModelSpec{}, fmt.Errorf("model %s: plot_grid is empty", e.Name)
	}
	return spec, nil
}

// ParseCatalogYAML builds a catalog from a YAML document. Unknown keys are rejected.
func ParseCatalogYAML(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("model catalog is empty")
		}
		return nil, fmt.Errorf("decode model catalog: %w", err)
	}

	var specs []ModelSpec
	index := map[string]int{}
	if file.Extend {
		for _, spec := range DefaultCatalog().Specs() {
			index[spec.Name] = len(specs)
			specs = append(specs, spec)
		}
	}
	for _, entry := range file.Models {
		spec, err := entry.spec()
		if err != nil {
			return nil, err
		}
		if i, ok := index[spec.Name]; ok && file.Extend {
			specs[i] = spec
			continue
		}
		specs = append(specs, spec)
	}
	return NewCatalog(specs)
}
