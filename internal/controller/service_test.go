package controller

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dgnsrekt/salesboard/internal/chart"
	"github.com/dgnsrekt/salesboard/internal/fetch"
	"github.com/dgnsrekt/salesboard/internal/inputs"
	"github.com/dgnsrekt/salesboard/internal/render"
	"github.com/dgnsrekt/salesboard/internal/snapshot"
)

func TestRequireNonEmpty(t *testing.T) {
	s := &Service{}
	if err := s.requireNonEmpty("scatter", "chart"); err != nil {
		t.Fatalf("requireNonEmpty() = %v; want nil", err)
	}

	err := s.requireNonEmpty("   ", "chart")
	var got *chart.CodedError
	if !errors.As(err, &got) {
		t.Fatalf("requireNonEmpty() = %T; want *chart.CodedError", err)
	}
	if got.Code != chart.CodeValidation || got.Message != "chart is required" {
		t.Fatalf("requireNonEmpty() = %q/%q; want %q/%q", got.Code, got.Message, chart.CodeValidation, "chart is required")
	}
}

func TestNewServiceRejectsBadCharts(t *testing.T) {
	base := Options{
		Fetcher:  fetch.NewClient("http://127.0.0.1:1", nil),
		Renderer: render.NewRenderer(&recordingSurface{}),
		Inputs:   inputs.NewStatic(nil),
	}

	shared := testSpecs()
	shared[1].Target = shared[0].Target
	opts := base
	opts.Charts = shared
	if _, err := NewService(opts); !chart.IsCode(err, chart.CodeValidation) {
		t.Fatalf("NewService(shared target) error = %v; want %s", err, chart.CodeValidation)
	}

	dup := testSpecs()
	dup[2].Name = dup[0].Name
	opts.Charts = dup
	if _, err := NewService(opts); !chart.IsCode(err, chart.CodeValidation) {
		t.Fatalf("NewService(duplicate name) error = %v; want %s", err, chart.CodeValidation)
	}

	if _, err := NewService(Options{Charts: testSpecs()}); err == nil {
		t.Fatalf("NewService(no collaborators) = nil; want error")
	}
}

func TestChartsStartIdleInOrder(t *testing.T) {
	svc, _ := newTestService(t, "http://127.0.0.1:1", inputs.NewStatic(nil))
	got := svc.Charts(context.Background())
	if len(got) != 3 {
		t.Fatalf("Charts() = %d; want 3", len(got))
	}
	for i, name := range []string{"scatter", "sales_by_year", "history"} {
		if got[i].Name != name || got[i].State != StateIdle || got[i].Last != nil {
			t.Fatalf("Charts()[%d] = %+v; want idle %s", i, got[i], name)
		}
	}
}

func TestBootstrapLoadsEveryChart(t *testing.T) {
	b, srv := newBackend(t)
	static := inputs.NewStatic(map[string]string{
		"company_dropdown":       "Acme",
		"start_year":             "2018",
		"total_sales_start_year": "2000",
	})
	svc, surface := newTestService(t, srv.URL, static)

	results, err := svc.Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	for _, r := range results {
		if r.State != StateRendered {
			t.Fatalf("Bootstrap() result %+v; want rendered", r)
		}
	}
	if surface.count() != 3 {
		t.Fatalf("draws = %d; want 3", surface.count())
	}

	if got := b.queriesFor("/scatter_data"); len(got) != 1 || got[0] != "" {
		t.Fatalf("scatter queries = %q; want one unfiltered", got)
	}
	if got := b.queriesFor("/sales_by_year_data"); len(got) != 1 || got[0] != "" {
		t.Fatalf("sales queries = %q; want one unfiltered", got)
	}
	if got := b.queriesFor("/get_history"); len(got) != 1 || got[0] != "company=Acme&start_year=2018" {
		t.Fatalf("history queries = %q; want company=Acme&start_year=2018", got)
	}
}

func TestBootstrapWarnsOnEmptyEntity(t *testing.T) {
	b, srv := newBackend(t)
	svc, _ := newTestService(t, srv.URL, inputs.NewStatic(nil))
	logs := captureLogs(t)

	if _, err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if got := b.queriesFor("/get_history"); len(got) != 1 || got[0] != "" {
		t.Fatalf("history queries = %q; want the entity omitted", got)
	}
	if !strings.Contains(logs.String(), "controller bootstrap entity empty") {
		t.Fatalf("missing empty entity warning: %s", logs.String())
	}
}

func TestBootstrapOneFailureDoesNotStopOthers(t *testing.T) {
	b, srv := newBackend(t)
	b.setStatus("/scatter_data", 503)
	svc, surface := newTestService(t, srv.URL, inputs.NewStatic(map[string]string{"company_dropdown": "Acme"}))

	results, err := svc.Bootstrap(context.Background())
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if results[0].State != StateFailed || results[1].State != StateRendered || results[2].State != StateRendered {
		t.Fatalf("states = %s/%s/%s; want failed/rendered/rendered", results[0].State, results[1].State, results[2].State)
	}
	if _, ok := surface.last("scatter_plot"); ok {
		t.Fatalf("scatter_plot drawn after a failed load")
	}
}

func TestBootstrapReportsShutdown(t *testing.T) {
	_, srv := newBackend(t)
	svc, surface := newTestService(t, srv.URL, inputs.NewStatic(map[string]string{"company_dropdown": "Acme"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := svc.Bootstrap(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Bootstrap() error = %v; want context.Canceled", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d; want 3", len(results))
	}
	for _, r := range results {
		if r.State != StateFailed {
			t.Fatalf("result %+v; want failed when shut down before loading", r)
		}
	}
	if surface.count() != 0 {
		t.Fatalf("draws = %d; want 0", surface.count())
	}
}

func TestInputsReadAndSet(t *testing.T) {
	static := inputs.NewStatic(map[string]string{"company_dropdown": "Acme"})
	svc, _ := newTestService(t, "http://127.0.0.1:1", static)
	ctx := context.Background()

	got, err := svc.Inputs(ctx)
	if err != nil {
		t.Fatalf("Inputs() error = %v", err)
	}
	if got["company_dropdown"] != "Acme" || len(got) != 5 {
		t.Fatalf("Inputs() = %v; want 5 inputs with company_dropdown=Acme", got)
	}

	got, err = svc.SetInputs(ctx, map[string]string{"end_year": "2022"})
	if err != nil {
		t.Fatalf("SetInputs() error = %v", err)
	}
	if got["end_year"] != "2022" {
		t.Fatalf("SetInputs() = %v; want end_year=2022", got)
	}

	if _, err := svc.SetInputs(ctx, map[string]string{"colour": "red"}); !chart.IsCode(err, chart.CodeValidation) {
		t.Fatalf("SetInputs(unknown) error = %v; want %s", err, chart.CodeValidation)
	}
}

func TestSetInputsRejectedWhenPageOwnsInputs(t *testing.T) {
	svc, _ := newTestService(t, "http://127.0.0.1:1", pageInputs{static: inputs.NewStatic(nil)})
	if _, err := svc.SetInputs(context.Background(), map[string]string{"start_year": "2020"}); !chart.IsCode(err, chart.CodeValidation) {
		t.Fatalf("SetInputs() error = %v; want %s", err, chart.CodeValidation)
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	_, srv := newBackend(t)
	store, err := snapshot.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("snapshot.NewStore() error = %v", err)
	}
	surface := &recordingSurface{}
	svc, err := NewService(Options{
		Charts:    testSpecs(),
		Fetcher:   fetch.NewClient(srv.URL, nil),
		Renderer:  render.NewRenderer(surface),
		Inputs:    inputs.NewStatic(map[string]string{"total_sales_end_year": "2021"}),
		Capturer:  surface,
		Snapshots: store,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	ctx := context.Background()

	if _, err := svc.TakeSnapshot(ctx, "sales_by_year", ""); !chart.IsCode(err, chart.CodeChartNotFound) {
		t.Fatalf("TakeSnapshot(before render) error = %v; want %s", err, chart.CodeChartNotFound)
	}
	if _, err := svc.Trigger(ctx, "sales_by_year"); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}

	meta, err := svc.TakeSnapshot(ctx, "sales_by_year", " weekly ")
	if err != nil {
		t.Fatalf("TakeSnapshot() error = %v", err)
	}
	if meta.Chart != "sales_by_year" || meta.Target != "sales_by_year" || meta.Notes != "weekly" || meta.Selection["end_year"] != "2021" {
		t.Fatalf("TakeSnapshot() = %+v", meta)
	}

	list, err := svc.ListSnapshots(ctx, "sales_by_year")
	if err != nil || len(list) != 1 || list[0].ID != meta.ID {
		t.Fatalf("ListSnapshots() = %+v, %v; want [%s]", list, err, meta.ID)
	}
	if _, err := svc.ListSnapshots(ctx, "pie"); !chart.IsCode(err, chart.CodeChartNotFound) {
		t.Fatalf("ListSnapshots(pie) error = %v; want %s", err, chart.CodeChartNotFound)
	}

	data, format, err := svc.ReadSnapshotImage(ctx, meta.ID)
	if err != nil {
		t.Fatalf("ReadSnapshotImage() error = %v", err)
	}
	if format != "png" || !bytes.HasPrefix(data, []byte("png:")) {
		t.Fatalf("ReadSnapshotImage() = %q/%s", data, format)
	}

	if err := svc.DeleteSnapshot(ctx, meta.ID); err != nil {
		t.Fatalf("DeleteSnapshot() error = %v", err)
	}
	if _, err := svc.GetSnapshot(ctx, meta.ID); !chart.IsCode(err, chart.CodeSnapshotNotFound) {
		t.Fatalf("GetSnapshot(deleted) error = %v; want %s", err, chart.CodeSnapshotNotFound)
	}
	if _, err := svc.GetSnapshot(ctx, "not-a-uuid"); !chart.IsCode(err, chart.CodeSnapshotNotFound) {
		t.Fatalf("GetSnapshot(invalid) error = %v; want %s", err, chart.CodeSnapshotNotFound)
	}
}

func TestTakeSnapshotWithoutStore(t *testing.T) {
	svc, _ := newTestService(t, "http://127.0.0.1:1", inputs.NewStatic(nil))
	if _, err := svc.TakeSnapshot(context.Background(), "scatter", ""); !chart.IsCode(err, chart.CodeSurfaceUnavailable) {
		t.Fatalf("TakeSnapshot() error = %v; want %s", err, chart.CodeSurfaceUnavailable)
	}
}

func TestPublishersFanOutInOrder(t *testing.T) {
	a, b := &recordingPublisher{}, &recordingPublisher{}
	Publishers{a, b}.PublishJSON("scatter", map[string]string{"state": "fetching"})
	for i, p := range []*recordingPublisher{a, b} {
		if len(p.events) != 1 || p.events[0].feed != "scatter" || p.events[0].payload != `{"state":"fetching"}` {
			t.Fatalf("publisher %d events = %+v", i, p.events)
		}
	}
}
