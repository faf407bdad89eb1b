package config

import (
	"fmt"
	"os"

	"github.com/dgnsrekt/salesboard/internal/chart"
	"gopkg.in/yaml.v3"
)

// DefaultCharts returns the three dashboard charts.
func DefaultCharts() []chart.Spec {
	return []chart.Spec{
		{
			Name:     "scatter",
			Endpoint: "/scatter_data",
			Target:   "scatter_plot",
			Kind:     chart.KindScatter,
			Series:   chart.SeriesFields{X: "x", Y: "y", Text: "text"},
			Layout: chart.Layout{
				Title:      "Overall Performance by City (Scatter Plot with Annotations)",
				XAxisTitle: "City",
				YAxisTitle: "Total Sales",
			},
		},
		{
			Name:     "sales_by_year",
			Endpoint: "/sales_by_year_data",
			Target:   "sales_by_year",
			Kind:     chart.KindLine,
			Series:   chart.SeriesFields{X: "x", Y: "y", Coercions: []string{chart.CoercionXToString}},
			Layout: chart.Layout{
				Title:      "Total Sales by Year (Line Graph)",
				XAxisTitle: "Year",
				YAxisTitle: "Total Sales",
			},
			Inputs: chart.InputIDs{Start: "total_sales_start_year", End: "total_sales_end_year"},
			Params: chart.ParamNames{Start: "start_year", End: "end_year"},
		},
		{
			Name:         "history",
			Endpoint:     "/get_history",
			Target:       "individual_company",
			Kind:         chart.KindRaw,
			Inputs:       chart.InputIDs{Entity: "company_dropdown", Start: "start_year", End: "end_year"},
			Params:       chart.ParamNames{Entity: "company", Start: "start_year", End: "end_year"},
			FilterOnLoad: true,
		},
	}
}

// chartEntry overrides fields of a known chart or defines a new one.
type chartEntry struct {
	Name         string              `yaml:"name"`
	Endpoint     string              `yaml:"endpoint"`
	Target       string              `yaml:"target"`
	Kind         string              `yaml:"kind"`
	Layout       *chart.Layout       `yaml:"layout"`
	Inputs       *chart.InputIDs     `yaml:"inputs"`
	Params       *chart.ParamNames   `yaml:"params"`
	Series       *chart.SeriesFields `yaml:"series"`
	FilterOnLoad *bool               `yaml:"filter_on_load"`
}

type chartsFile struct {
	Charts []chartEntry `yaml:"charts"`
}

// LoadCharts reads a charts YAML file and applies it on top of base.
// Entries naming an existing chart override only the fields they set.
func LoadCharts(path string, base []chart.Spec) ([]chart.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("charts config: %w", err)
	}
	var file chartsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("charts config: %w", err)
	}

	out := append([]chart.Spec(nil), base...)
	index := make(map[string]int, len(out))
	for i, s := range out {
		index[s.Name] = i
	}

	for i, e := range file.Charts {
		if e.Name == "" {
			return nil, fmt.Errorf("charts config: charts[%d] missing name", i)
		}
		pos, known := index[e.Name]
		if !known {
			out = append(out, chart.Spec{Name: e.Name})
			pos = len(out) - 1
			index[e.Name] = pos
		}
		e.apply(&out[pos])
		if err := out[pos].Validate(); err != nil {
			return nil, fmt.Errorf("charts config: %w", err)
		}
	}
	return out, nil
}

func (e chartEntry) apply(s *chart.Spec) {
	if e.Endpoint != "" {
		s.Endpoint = e.Endpoint
	}
	if e.Target != "" {
		s.Target = chart.Target(e.Target)
	}
	if e.Kind != "" {
		s.Kind = chart.Kind(e.Kind)
	}
	if e.Layout != nil {
		s.Layout = *e.Layout
	}
	if e.Inputs != nil {
		s.Inputs = *e.Inputs
	}
	if e.Params != nil {
		s.Params = *e.Params
	}
	if e.Series != nil {
		s.Series = *e.Series
	}
	if e.FilterOnLoad != nil {
		s.FilterOnLoad = *e.FilterOnLoad
	}
}
