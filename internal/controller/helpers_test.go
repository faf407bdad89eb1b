package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dgnsrekt/salesboard/internal/chart"
	"github.com/dgnsrekt/salesboard/internal/fetch"
	"github.com/dgnsrekt/salesboard/internal/inputs"
	"github.com/dgnsrekt/salesboard/internal/render"
)

func testSpecs() []chart.Spec {
	return []chart.Spec{
		{
			Name:     "scatter",
			Endpoint: "/scatter_data",
			Target:   "scatter_plot",
			Kind:     chart.KindScatter,
			Layout:   chart.Layout{Title: "Overall Performance by City", XAxisTitle: "City", YAxisTitle: "Total Sales"},
		},
		{
			Name:     "sales_by_year",
			Endpoint: "/sales_by_year_data",
			Target:   "sales_by_year",
			Kind:     chart.KindLine,
			Layout:   chart.Layout{Title: "Total Sales by Year", XAxisTitle: "Year", YAxisTitle: "Total Sales"},
			Inputs:   chart.InputIDs{Start: "total_sales_start_year", End: "total_sales_end_year"},
			Params:   chart.ParamNames{Start: "start_year", End: "end_year"},
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

type drawCall struct {
	target chart.Target
	fig    chart.Figure
}

type recordingSurface struct {
	mu    sync.Mutex
	draws []drawCall
}

func (r *recordingSurface) Draw(_ context.Context, target chart.Target, fig chart.Figure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draws = append(r.draws, drawCall{target: target, fig: append(chart.Figure(nil), fig...)})
	return nil
}

func (r *recordingSurface) Capture(_ context.Context, target chart.Target) ([]byte, error) {
	fig, ok := r.last(target)
	if !ok {
		return nil, chart.NewError(chart.CodeChartNotFound, "nothing drawn on "+string(target), nil)
	}
	return append([]byte("png:"), fig...), nil
}

func (r *recordingSurface) last(target chart.Target) (chart.Figure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.draws) - 1; i >= 0; i-- {
		if r.draws[i].target == target {
			return r.draws[i].fig, true
		}
	}
	return nil, false
}

func (r *recordingSurface) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.draws)
}

// pageInputs exposes only Selection, like inputs owned by the dashboard page.
type pageInputs struct {
	static *inputs.Static
}

func (p pageInputs) Selection(ctx context.Context, ids chart.InputIDs) (chart.FilterSelection, error) {
	return p.static.Selection(ctx, ids)
}

type recordedEvent struct {
	feed    string
	payload string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) PublishJSON(feed string, v any) {
	data, _ := json.Marshal(v)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{feed: feed, payload: string(data)})
}

// backend serves the three dashboard endpoints and records every query.
type backend struct {
	mu      sync.Mutex
	queries map[string][]string
	status  map[string]int
	history string
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{
		queries: make(map[string][]string),
		status:  make(map[string]int),
		history: `{"data":[{"x":["Grade 1","Grade 2"],"y":[10,20],"mode":"lines+markers","name":"Pune - Grade"}],"layout":{"title":"Historical Performance"}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.queries[r.URL.Path] = append(b.queries[r.URL.Path], r.URL.RawQuery)
		status := b.status[r.URL.Path]
		history := b.history
		b.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/scatter_data":
			_, _ = w.Write([]byte(`{"x":["CityA","CityB"],"y":[100,200],"text":["Co1","Co2"]}`))
		case "/sales_by_year_data":
			_, _ = w.Write([]byte(`{"x":[2020,2021],"y":[500,700]}`))
		case "/get_history":
			enc, _ := json.Marshal(history)
			_, _ = w.Write([]byte(`{"history_data":` + string(enc) + `}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *backend) setStatus(path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status[path] = status
}

func (b *backend) queriesFor(path string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.queries[path]...)
}

func newTestService(t *testing.T, baseURL string, in InputSource) (*Service, *recordingSurface) {
	t.Helper()
	surface := &recordingSurface{}
	svc, err := NewService(Options{
		Charts:   testSpecs(),
		Fetcher:  fetch.NewClient(baseURL, nil),
		Renderer: render.NewRenderer(surface),
		Inputs:   in,
		Capturer: surface,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc, surface
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&syncWriter{w: &buf}, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(old) })
	return &buf
}

type syncWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
