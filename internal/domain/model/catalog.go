package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// SamplingGrid is a tmin/tmax/dt window in days since trigger.
type SamplingGrid struct {
	Tmin float64 `yaml:"tmin" json:"tmin"`
	Tmax float64 `yaml:"tmax" json:"tmax"`
	Dt   float64 `yaml:"dt"   json:"dt"`
}

// Validate checks the grid is non-empty and forward.
func (g SamplingGrid) Validate() error {
	if g.Dt <= 0 || g.Tmax <= g.Tmin {
		return fmt.Errorf("invalid sampling grid tmin=%v tmax=%v dt=%v", g.Tmin, g.Tmax, g.Dt)
	}
	return nil
}

// PlotGrid is a half-open start/stop/step range of sample times.
type PlotGrid struct {
	Start float64 `yaml:"start" json:"start"`
	Stop  float64 `yaml:"stop"  json:"stop"`
	Step  float64 `yaml:"step"  json:"step"`
}

// Times returns start, start+step, ... strictly below stop.
func (g PlotGrid) Times() []float64 {
	return Arange(g.Start, g.Stop, g.Step)
}

// Arange returns evenly spaced values in [start, stop).
func Arange(start, stop, step float64) []float64 {
	if step <= 0 || stop <= start {
		return nil
	}
	n := int(math.Ceil((stop - start) / step))
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// ModelSpec describes an allow-listed model and its optional grid overrides.
type ModelSpec struct {
	Name string `yaml:"name" json:"name"`
	// Grid replaces the caller's tmin/tmax/dt for models that are expensive to evaluate.
	Grid *SamplingGrid `yaml:"grid,omitempty" json:"grid,omitempty"`
	// PlotGrid replaces the default best-fit sample times.
	PlotGrid *PlotGrid `yaml:"plot_grid,omitempty" json:"plot_grid,omitempty"`
}

// Catalog is the read-only set of models a submission may request.
type Catalog struct {
	specs map[string]ModelSpec
	names []string
}

var afterglowPlotGrid = PlotGrid{Start: 0.01, Stop: 10.21, Step: 0.2}

// DefaultCatalog returns the stock model set.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]ModelSpec{
		{Name: "Bu2019lm"},
		{Name: "Me2017"},
		{Name: "Piro2021"},
		{Name: "nugent-hyper", PlotGrid: &afterglowPlotGrid},
		{Name: "TrPi2018", Grid: &SamplingGrid{Tmin: 0.01, Tmax: 7.01, Dt: 0.35}, PlotGrid: &afterglowPlotGrid},
		{Name: "Bu2022Ye"},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog builds a catalog, preserving the given order.
func NewCatalog(specs []ModelSpec) (*Catalog, error) {
	if len(specs) == 0 {
		return nil, errors.New("model catalog is empty")
	}
	c := &Catalog{specs: make(map[string]ModelSpec, len(specs))}
	for _, spec := range specs {
		spec.Name = strings.TrimSpace(spec.Name)
		if spec.Name == "" {
			return nil, errors.New("model catalog entry has no name")
		}
		if _, dup := c.specs[spec.Name]; dup {
			return nil, fmt.Errorf("model %s listed twice", spec.Name)
		}
		if spec.Grid != nil {
			if err := spec.Grid.Validate(); err != nil {
				return nil, fmt.Errorf("model %s: %w", spec.Name, err)
			}
		}
		c.specs[spec.Name] = spec
		c.names = append(c.names, spec.Name)
	}
	return c, nil
}

// Allowed reports whether name is in the catalog. Matching is case-sensitive.
func (c *Catalog) Allowed(name string) bool {
	_, ok := c.specs[name]
	return ok
}

// Lookup returns the spec for name.
func (c *Catalog) Lookup(name string) (ModelSpec, bool) {
	spec, ok := c.specs[name]
	return spec, ok
}

// Names returns the model names in catalog order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Specs returns all specs in catalog order.
func (c *Catalog) Specs() []ModelSpec {
	out := make([]ModelSpec, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.specs[n])
	}
	return out
}

// EffectiveGrid returns the sampling window for a fit of name under params.
func (c *Catalog) EffectiveGrid(name string, params AnalysisParameters) SamplingGrid {
	if spec, ok := c.Lookup(name); ok && spec.Grid != nil {
		return *spec.Grid
	}
	return SamplingGrid{Tmin: params.Tmin, Tmax: params.Tmax, Dt: params.Dt}
}

// SampleTimes returns the best-fit reconstruction times for name. Without a
// plot grid override this is tmin..tmax inclusive of the step past tmax.
func (c *Catalog) SampleTimes(name string, grid SamplingGrid) []float64 {
	if spec, ok := c.Lookup(name); ok && spec.PlotGrid != nil {
		return spec.PlotGrid.Times()
	}
	return Arange(grid.Tmin, grid.Tmax+grid.Dt, grid.Dt)
}
