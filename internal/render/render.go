// Package render draws chart figures onto a plotting surface.
package render

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dgnsrekt/salesboard/internal/chart"
)

// Surface is the opaque plotting engine. Draw replaces whatever the target
// currently shows with fig.
type Surface interface {
	Draw(ctx context.Context, target chart.Target, fig chart.Figure) error
}

// Renderer wraps a Surface with the presentation rules of each chart kind.
type Renderer struct {
	surface Surface
}

func NewRenderer(surface Surface) *Renderer {
	return &Renderer{surface: surface}
}

// Render draws a Scatter or Line series on target.
func (r *Renderer) Render(ctx context.Context, target chart.Target, kind chart.Kind, s chart.Series, l chart.Layout) error {
	if kind == chart.KindRaw {
		return chart.NewError(chart.CodeValidation, "raw charts are drawn with RenderFigure", nil)
	}
	fig, err := BuildFigure(kind, s, l)
	if err != nil {
		return err
	}
	return r.draw(ctx, target, kind, fig)
}

// RenderFigure passes a backend-built figure to the surface unchanged.
func (r *Renderer) RenderFigure(ctx context.Context, target chart.Target, fig chart.Figure) error {
	if len(fig) == 0 {
		return chart.NewError(chart.CodeValidation, "figure is empty", nil)
	}
	return r.draw(ctx, target, chart.KindRaw, fig)
}

func (r *Renderer) draw(ctx context.Context, target chart.Target, kind chart.Kind, fig chart.Figure) error {
	if strings.TrimSpace(string(target)) == "" {
		return chart.NewError(chart.CodeValidation, "target is required", nil)
	}
	if r == nil || r.surface == nil {
		return chart.NewError(chart.CodeSurfaceUnavailable, "no rendering surface configured", nil)
	}

	if err := r.surface.Draw(ctx, target, fig); err != nil {
		var coded *chart.CodedError
		if errors.As(err, &coded) {
			return err
		}
		return chart.NewError(chart.CodeSurfaceUnavailable, "draw "+string(target), err)
	}
	slog.Debug("render draw ok", "target", target, "kind", kind, "bytes", len(fig))
	return nil
}
