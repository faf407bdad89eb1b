// Package controller runs the fetch, adapt and render cycle of every
// dashboard chart and tracks each chart's state.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/salesboard/internal/chart"
	"github.com/dgnsrekt/salesboard/internal/fetch"
	"github.com/dgnsrekt/salesboard/internal/snapshot"
	"github.com/google/uuid"
)

// Fetcher retrieves one backend payload.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, params map[string]string) (fetch.Payload, error)
}

// Renderer draws series and prebuilt figures on chart targets.
type Renderer interface {
	Render(ctx context.Context, target chart.Target, kind chart.Kind, s chart.Series, l chart.Layout) error
	RenderFigure(ctx context.Context, target chart.Target, fig chart.Figure) error
}

// InputSource reads the current filter inputs.
type InputSource interface {
	Selection(ctx context.Context, ids chart.InputIDs) (chart.FilterSelection, error)
}

// InputWriter is implemented by input sources the controller may edit.
type InputWriter interface {
	Set(values map[string]string) error
}

// Capturer returns the image currently shown on a target.
type Capturer interface {
	Capture(ctx context.Context, target chart.Target) ([]byte, error)
}

// Publisher receives cycle events keyed by chart name.
type Publisher interface {
	PublishJSON(feed string, v any)
}

// Publishers sends every event to each of its members in order.
type Publishers []Publisher

func (ps Publishers) PublishJSON(feed string, v any) {
	for _, p := range ps {
		p.PublishJSON(feed, v)
	}
}

// Options wires a Service. Capturer, Snapshots and Events are optional.
type Options struct {
	Charts    []chart.Spec
	Fetcher   Fetcher
	Renderer  Renderer
	Inputs    InputSource
	Capturer  Capturer
	Snapshots *snapshot.Store
	Events    Publisher
}

// Service owns the dashboard charts.
type Service struct {
	fetcher  Fetcher
	renderer Renderer
	inputs   InputSource
	capturer Capturer
	snaps    *snapshot.Store
	events   Publisher

	order   []string
	charts  map[string]*chartState
	targets map[chart.Target]*sync.Mutex

	now func() time.Time
}

func NewService(opts Options) (*Service, error) {
	if opts.Fetcher == nil || opts.Renderer == nil || opts.Inputs == nil {
		return nil, errors.New("controller: fetcher, renderer and inputs are required")
	}
	s := &Service{
		fetcher:  opts.Fetcher,
		renderer: opts.Renderer,
		inputs:   opts.Inputs,
		capturer: opts.Capturer,
		snaps:    opts.Snapshots,
		events:   opts.Events,
		charts:   make(map[string]*chartState, len(opts.Charts)),
		targets:  make(map[chart.Target]*sync.Mutex, len(opts.Charts)),
		now:      time.Now,
	}
	for _, spec := range opts.Charts {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.charts[spec.Name]; dup {
			return nil, chart.NewError(chart.CodeValidation, fmt.Sprintf("duplicate chart %q", spec.Name), nil)
		}
		if _, dup := s.targets[spec.Target]; dup {
			return nil, chart.NewError(chart.CodeValidation, fmt.Sprintf("target %q is bound to more than one chart", spec.Target), nil)
		}
		s.order = append(s.order, spec.Name)
		s.charts[spec.Name] = &chartState{spec: spec, state: StateIdle}
		s.targets[spec.Target] = &sync.Mutex{}
	}
	return s, nil
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return chart.NewError(chart.CodeValidation, fieldName+" is required", nil)
	}
	return nil
}

func (s *Service) lookup(name string) (*chartState, error) {
	if err := s.requireNonEmpty(name, "chart"); err != nil {
		return nil, err
	}
	cs, ok := s.charts[strings.TrimSpace(name)]
	if !ok {
		return nil, chart.NewError(chart.CodeChartNotFound, "unknown chart "+name, nil)
	}
	return cs, nil
}

// Charts returns the status of every chart in configuration order.
func (s *Service) Charts(ctx context.Context) []ChartStatus {
	out := make([]ChartStatus, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.charts[name].status())
	}
	return out
}

// Chart returns the status of one chart.
func (s *Service) Chart(ctx context.Context, name string) (ChartStatus, error) {
	cs, err := s.lookup(name)
	if err != nil {
		return ChartStatus{}, err
	}
	return cs.status(), nil
}

// --- Input methods ---

// Inputs reads every configured input through the input source.
func (s *Service) Inputs(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	for _, name := range s.order {
		ids := s.charts[name].spec.Inputs
		if ids.Empty() {
			continue
		}
		sel, err := s.inputs.Selection(ctx, ids)
		if err != nil {
			return nil, err
		}
		for id, v := range map[string]string{ids.Entity: sel.Entity, ids.Start: sel.StartPeriod, ids.End: sel.EndPeriod} {
			if id != "" {
				out[id] = v
			}
		}
	}
	return out, nil
}

// SetInputs edits input values when the input source is writable.
func (s *Service) SetInputs(ctx context.Context, values map[string]string) (map[string]string, error) {
	w, ok := s.inputs.(InputWriter)
	if !ok {
		return nil, chart.NewError(chart.CodeValidation, "inputs are owned by the dashboard page", nil)
	}
	known := s.inputIDs()
	for id := range values {
		if !known[id] {
			return nil, chart.NewError(chart.CodeValidation, "unknown input "+id, nil)
		}
	}
	if err := w.Set(values); err != nil {
		return nil, err
	}
	return s.Inputs(ctx)
}

func (s *Service) inputIDs() map[string]bool {
	known := make(map[string]bool)
	for _, cs := range s.charts {
		for _, id := range []string{cs.spec.Inputs.Entity, cs.spec.Inputs.Start, cs.spec.Inputs.End} {
			if id != "" {
				known[id] = true
			}
		}
	}
	return known
}

// --- Snapshot methods ---

// ChartImage returns the image currently shown for a chart.
func (s *Service) ChartImage(ctx context.Context, name string) ([]byte, error) {
	cs, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if s.capturer == nil {
		return nil, chart.NewError(chart.CodeSurfaceUnavailable, "surface cannot capture images", nil)
	}
	return s.capturer.Capture(ctx, cs.spec.Target)
}

// TakeSnapshot captures the image currently shown for a chart.
func (s *Service) TakeSnapshot(ctx context.Context, name, notes string) (snapshot.Meta, error) {
	cs, err := s.lookup(name)
	if err != nil {
		return snapshot.Meta{}, err
	}
	if s.capturer == nil || s.snaps == nil {
		return snapshot.Meta{}, chart.NewError(chart.CodeSurfaceUnavailable, "snapshots are not configured", nil)
	}

	imageData, err := s.capturer.Capture(ctx, cs.spec.Target)
	if err != nil {
		return snapshot.Meta{}, err
	}

	meta := snapshot.Meta{
		ID:        uuid.New().String(),
		Chart:     cs.spec.Name,
		Target:    string(cs.spec.Target),
		Format:    "png",
		CreatedAt: s.now().UTC(),
		Notes:     strings.TrimSpace(notes),
	}
	if last := cs.status().Last; last != nil {
		meta.Selection = last.Params
	}
	if err := s.snaps.Save(meta, imageData); err != nil {
		return snapshot.Meta{}, chart.NewError(chart.CodeSurfaceUnavailable, "save snapshot", err)
	}
	meta.SizeBytes = len(imageData)
	return meta, nil
}

func (s *Service) ListSnapshots(ctx context.Context, name string) ([]snapshot.Meta, error) {
	if s.snaps == nil {
		return []snapshot.Meta{}, nil
	}
	name = strings.TrimSpace(name)
	if name != "" {
		if _, err := s.lookup(name); err != nil {
			return nil, err
		}
	}
	return s.snaps.List(name)
}

func (s *Service) GetSnapshot(ctx context.Context, id string) (snapshot.Meta, error) {
	if err := s.requireNonEmpty(id, "snapshot_id"); err != nil {
		return snapshot.Meta{}, err
	}
	if s.snaps == nil {
		return snapshot.Meta{}, chart.NewError(chart.CodeSnapshotNotFound, "snapshots are not configured", nil)
	}
	meta, err := s.snaps.Get(strings.TrimSpace(id))
	if err != nil {
		return snapshot.Meta{}, snapshotErr(err)
	}
	return meta, nil
}

func (s *Service) ReadSnapshotImage(ctx context.Context, id string) ([]byte, string, error) {
	if err := s.requireNonEmpty(id, "snapshot_id"); err != nil {
		return nil, "", err
	}
	if s.snaps == nil {
		return nil, "", chart.NewError(chart.CodeSnapshotNotFound, "snapshots are not configured", nil)
	}
	data, format, err := s.snaps.ReadImage(strings.TrimSpace(id))
	if err != nil {
		return nil, "", snapshotErr(err)
	}
	return data, format, nil
}

func (s *Service) DeleteSnapshot(ctx context.Context, id string) error {
	if err := s.requireNonEmpty(id, "snapshot_id"); err != nil {
		return err
	}
	if s.snaps == nil {
		return chart.NewError(chart.CodeSnapshotNotFound, "snapshots are not configured", nil)
	}
	if err := s.snaps.Delete(strings.TrimSpace(id)); err != nil {
		return snapshotErr(err)
	}
	return nil
}

func snapshotErr(err error) error {
	if errors.Is(err, snapshot.ErrNotFound) {
		return chart.NewError(chart.CodeSnapshotNotFound, err.Error(), nil)
	}
	return chart.NewError(chart.CodeSurfaceUnavailable, "snapshot store", err)
}
