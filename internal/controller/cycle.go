package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/salesboard/internal/adapt"
	"github.com/dgnsrekt/salesboard/internal/chart"
	"github.com/dgnsrekt/salesboard/internal/fetch"
)

// State is the lifecycle position of a chart.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateRendered State = "rendered"
	StateFailed   State = "failed"
)

// CycleResult reports one fetch, adapt and render cycle.
type CycleResult struct {
	Chart      string                `json:"chart"`
	Cycle      uint64                `json:"cycle"`
	State      State                 `json:"state"`
	Selection  chart.FilterSelection `json:"selection"`
	Params     map[string]string     `json:"params,omitempty"`
	Points     int                   `json:"points,omitempty"`
	ErrorCode  string                `json:"error_code,omitempty"`
	Error      string                `json:"error,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
}

// ChartStatus is the externally visible state of a chart.
type ChartStatus struct {
	Name     string       `json:"name"`
	Endpoint string       `json:"endpoint"`
	Target   chart.Target `json:"target"`
	Kind     chart.Kind   `json:"kind"`
	State    State        `json:"state"`
	InFlight int          `json:"in_flight"`
	Last     *CycleResult `json:"last,omitempty"`
}

type chartState struct {
	spec chart.Spec

	mu       sync.Mutex
	state    State
	inFlight int
	seq      uint64
	last     *CycleResult
}

func (cs *chartState) begin() uint64 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.seq++
	cs.inFlight++
	cs.state = StateFetching
	return cs.seq
}

func (cs *chartState) finish(res CycleResult) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.inFlight--
	cs.last = &res
	if cs.inFlight == 0 {
		cs.state = res.State
	}
}

func (cs *chartState) status() ChartStatus {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	st := ChartStatus{
		Name:     cs.spec.Name,
		Endpoint: cs.spec.Endpoint,
		Target:   cs.spec.Target,
		Kind:     cs.spec.Kind,
		State:    cs.state,
		InFlight: cs.inFlight,
	}
	if cs.last != nil {
		last := *cs.last
		st.Last = &last
	}
	return st
}

// Trigger reads the chart's inputs now and runs one cycle with that
// selection. Cycle failures are reported in the result, not as an error.
// Once started the cycle runs to completion even if ctx is cancelled.
func (s *Service) Trigger(ctx context.Context, name string) (CycleResult, error) {
	cs, err := s.lookup(name)
	if err != nil {
		return CycleResult{}, err
	}
	sel, err := s.inputs.Selection(ctx, cs.spec.Inputs)
	if err != nil {
		return s.failBeforeFetch(cs, err), nil
	}
	return s.runCycle(context.WithoutCancel(ctx), cs, sel), nil
}

func (s *Service) failBeforeFetch(cs *chartState, err error) CycleResult {
	res := CycleResult{Chart: cs.spec.Name, Cycle: cs.begin(), StartedAt: s.now()}
	s.publish(cs, res.Cycle, StateFetching)
	s.fail(cs, &res, err)
	cs.finish(res)
	s.publishResult(res)
	return res
}

// runCycle fetches, adapts and renders with a selection captured by the
// caller. Draws on a target are serialized, so the last cycle to finish
// owns the visible chart.
func (s *Service) runCycle(ctx context.Context, cs *chartState, sel chart.FilterSelection) CycleResult {
	spec := cs.spec
	res := CycleResult{
		Chart:     spec.Name,
		Cycle:     cs.begin(),
		Selection: sel,
		Params:    spec.Query(sel),
		StartedAt: s.now(),
	}
	s.publish(cs, res.Cycle, StateFetching)
	slog.Debug("controller cycle start", "chart", spec.Name, "cycle", res.Cycle, "endpoint", spec.Endpoint, "params", res.Params)

	payload, err := s.fetcher.Fetch(ctx, spec.Endpoint, res.Params)

	lock := s.targets[spec.Target]
	lock.Lock()
	defer lock.Unlock()

	if err == nil {
		res.Points, err = s.draw(ctx, spec, payload)
	}
	if err != nil {
		s.fail(cs, &res, err)
	} else {
		res.State = StateRendered
		res.FinishedAt = s.now()
		slog.Info("controller cycle rendered", "chart", spec.Name, "cycle", res.Cycle, "target", spec.Target, "points", res.Points, "duration", res.FinishedAt.Sub(res.StartedAt))
	}
	cs.finish(res)
	s.publishResult(res)
	return res
}

func (s *Service) draw(ctx context.Context, spec chart.Spec, p fetch.Payload) (int, error) {
	switch spec.Kind {
	case chart.KindRaw:
		fig, err := adapt.History(p)
		if err != nil {
			return 0, err
		}
		return 0, s.renderer.RenderFigure(ctx, spec.Target, fig)
	default:
		series, err := adapt.ForSpec(p, spec)
		if err != nil {
			return 0, err
		}
		return series.Len(), s.renderer.Render(ctx, spec.Target, spec.Kind, series, spec.Layout)
	}
}

func (s *Service) fail(cs *chartState, res *CycleResult, err error) {
	res.State = StateFailed
	res.Points = 0
	res.Error = err.Error()
	var coded *chart.CodedError
	if errors.As(err, &coded) {
		res.ErrorCode = coded.Code
	}
	res.FinishedAt = s.now()
	slog.Warn("controller cycle failed",
		"chart", cs.spec.Name,
		"cycle", res.Cycle,
		"endpoint", cs.spec.Endpoint,
		"target", cs.spec.Target,
		"error_code", res.ErrorCode,
		"error", err,
	)
}

type cycleEvent struct {
	Chart string `json:"chart"`
	Cycle uint64 `json:"cycle"`
	State State  `json:"state"`
}

func (s *Service) publish(cs *chartState, cycle uint64, state State) {
	if s.events == nil {
		return
	}
	s.events.PublishJSON(cs.spec.Name, cycleEvent{Chart: cs.spec.Name, Cycle: cycle, State: state})
}

func (s *Service) publishResult(res CycleResult) {
	if s.events == nil {
		return
	}
	s.events.PublishJSON(res.Chart, res)
}
