// Package page serves the dashboard host page: filter inputs, update buttons
// and one region per chart target.
package page

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dgnsrekt/salesboard/internal/chart"
)

// PlotlyURL is the plotting engine loaded by the page.
const PlotlyURL = "https://cdn.plot.ly/plotly-2.35.2.min.js"

// Options configures the page.
type Options struct {
	Title     string
	Charts    []chart.Spec
	Companies []string
	// Static pages show rendered images and push input edits to the API
	// before refreshing; otherwise the controller draws into the page.
	Static bool
	// Values returns the input values to prefill.
	Values func(ctx context.Context) map[string]string
}

type inputField struct {
	ID      string
	Label   string
	Value   string
	Select  bool
	Options []option
}

type option struct {
	Value    string
	Selected bool
}

type region struct {
	Chart  string
	Target string
	Title  string
	Inputs []inputField
}

type viewData struct {
	Title     string
	PlotlyURL string
	Static    bool
	Regions   []region
}

// Page renders the dashboard HTML.
type Page struct {
	opts Options
	tmpl *template.Template
}

func New(opts Options) *Page {
	if opts.Title == "" {
		opts.Title = "Business Performance Dashboard"
	}
	if opts.Values == nil {
		opts.Values = func(context.Context) map[string]string { return nil }
	}
	return &Page{
		opts: opts,
		tmpl: template.Must(template.New("dashboard").Parse(dashboardTemplate)),
	}
}

func (p *Page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data := p.view(p.opts.Values(r.Context()))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := p.tmpl.Execute(w, data); err != nil {
		slog.Error("page render failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (p *Page) view(values map[string]string) viewData {
	data := viewData{Title: p.opts.Title, PlotlyURL: PlotlyURL, Static: p.opts.Static}
	for _, spec := range p.opts.Charts {
		reg := region{Chart: spec.Name, Target: string(spec.Target), Title: spec.Layout.Title}
		if reg.Title == "" {
			reg.Title = humanize(spec.Name)
		}
		if id := spec.Inputs.Entity; id != "" {
			reg.Inputs = append(reg.Inputs, p.entityField(id, values[id]))
		}
		if id := spec.Inputs.Start; id != "" {
			reg.Inputs = append(reg.Inputs, inputField{ID: id, Label: "Start year", Value: values[id]})
		}
		if id := spec.Inputs.End; id != "" {
			reg.Inputs = append(reg.Inputs, inputField{ID: id, Label: "End year", Value: values[id]})
		}
		data.Regions = append(data.Regions, reg)
	}
	return data
}

// entityField builds the company dropdown. Without an explicit value the
// first company is selected.
func (p *Page) entityField(id, value string) inputField {
	f := inputField{ID: id, Label: "Company", Value: value}
	if len(p.opts.Companies) == 0 {
		return f
	}
	f.Select = true
	if value == "" {
		value = p.opts.Companies[0]
	}
	for _, c := range p.opts.Companies {
		f.Options = append(f.Options, option{Value: c, Selected: c == value})
	}
	return f
}

func humanize(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
