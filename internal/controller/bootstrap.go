package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgnsrekt/salesboard/internal/chart"
	"golang.org/x/sync/errgroup"
)

// Bootstrap runs the initial load of every chart concurrently. Charts marked
// FilterOnLoad read their inputs as they are at load time; the rest request
// unfiltered data. Results are returned in configuration order. A failed
// cycle does not stop the others; the error is non-nil only when ctx ended
// before every chart finished loading.
func (s *Service) Bootstrap(ctx context.Context) ([]CycleResult, error) {
	results := make([]CycleResult, len(s.order))
	g, gctx := errgroup.WithContext(ctx)

	for i, name := range s.order {
		cs := s.charts[name]
		var sel chart.FilterSelection
		if cs.spec.FilterOnLoad {
			var err error
			sel, err = s.inputs.Selection(ctx, cs.spec.Inputs)
			if err != nil {
				results[i] = s.failBeforeFetch(cs, err)
				continue
			}
			if cs.spec.Inputs.Entity != "" && sel.Entity == "" {
				slog.Warn("controller bootstrap entity empty", "chart", name, "input", cs.spec.Inputs.Entity)
			}
		}
		g.Go(func() error {
			results[i] = s.runCycle(gctx, cs, sel)
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("bootstrap %s interrupted: %w", name, err)
			}
			return nil
		})
	}

	err := g.Wait()
	rendered := 0
	for _, r := range results {
		if r.State == StateRendered {
			rendered++
		}
	}
	slog.Info("controller bootstrap done", "charts", len(results), "rendered", rendered)
	return results, err
}
