// Package pngsurface renders chart figures to one PNG file per target with go-chart.
// It serves deployments without a browser.
package pngsurface

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/dgnsrekt/salesboard/internal/chart"
	gochart "github.com/wcharczuk/go-chart/v2"
)

var targetRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Surface writes <dir>/<target>.png for every draw.
type Surface struct {
	dir    string
	width  int
	height int
}

// New creates the output directory.
func New(dir string, width, height int) (*Surface, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("png surface: mkdir %s: %w", dir, err)
	}
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 576
	}
	return &Surface{dir: dir, width: width, height: height}, nil
}

// Path returns the file backing target.
func (s *Surface) Path(target chart.Target) string {
	return filepath.Join(s.dir, string(target)+".png")
}

// Draw renders fig and atomically replaces the target's file.
func (s *Surface) Draw(_ context.Context, target chart.Target, fig chart.Figure) error {
	if !targetRe.MatchString(string(target)) {
		return chart.NewError(chart.CodeValidation, "invalid target name: "+string(target), nil)
	}

	plot, err := parseFigure(fig)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if plot.empty() {
		err = s.blank(&buf)
	} else {
		err = s.toChart(plot).Render(gochart.PNG, &buf)
	}
	if err != nil {
		return chart.NewError(chart.CodeSurfaceUnavailable, "render png "+string(target), err)
	}

	if err := s.replace(target, buf.Bytes()); err != nil {
		return chart.NewError(chart.CodeSurfaceUnavailable, "write png "+string(target), err)
	}
	slog.Debug("pngsurface draw", "target", target, "traces", len(plot.traces), "bytes", buf.Len())
	return nil
}

// Capture returns the PNG currently shown for target.
func (s *Surface) Capture(_ context.Context, target chart.Target) ([]byte, error) {
	if !targetRe.MatchString(string(target)) {
		return nil, chart.NewError(chart.CodeValidation, "invalid target name: "+string(target), nil)
	}
	data, err := os.ReadFile(s.Path(target))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, chart.NewError(chart.CodeChartNotFound, "nothing drawn on "+string(target)+" yet", nil)
		}
		return nil, chart.NewError(chart.CodeSurfaceUnavailable, "read png "+string(target), err)
	}
	return data, nil
}

func (s *Surface) replace(target chart.Target, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+string(target)+"-*.png")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.Path(target)); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *Surface) blank(buf *bytes.Buffer) error {
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return png.Encode(buf, img)
}

func (s *Surface) toChart(p plot) gochart.Chart {
	xr, yr := p.ranges()
	series := make([]gochart.Series, 0, len(p.traces)*2)
	for i, tr := range p.traces {
		col := gochart.GetDefaultColor(i)
		st := gochart.Style{
			StrokeColor: col,
			StrokeWidth: 2,
			DotColor:    col,
			DotWidth:    float64(tr.markerSize) / 2,
		}
		if !tr.lines {
			st.StrokeColor = gochart.ColorTransparent
		}
		if !tr.markers {
			st.DotWidth = 0
		}
		series = append(series, gochart.ContinuousSeries{
			Name:    tr.name,
			XValues: tr.x,
			YValues: tr.y,
			Style:   st,
		})
		if len(tr.labels) > 0 {
			notes := make([]gochart.Value2, 0, len(tr.labels))
			for j, label := range tr.labels {
				notes = append(notes, gochart.Value2{XValue: tr.x[j], YValue: tr.y[j], Label: label})
			}
			series = append(series, gochart.AnnotationSeries{Name: tr.name + " labels", Annotations: notes})
		}
	}

	xAxis := gochart.XAxis{Name: p.xTitle, Range: &gochart.ContinuousRange{Min: xr[0], Max: xr[1]}}
	if len(p.categories) > 0 {
		ticks := make([]gochart.Tick, 0, len(p.categories))
		for i, label := range p.categories {
			ticks = append(ticks, gochart.Tick{Value: float64(i), Label: label})
		}
		xAxis.Ticks = ticks
	}

	return gochart.Chart{
		Title:  p.title,
		Width:  s.width,
		Height: s.height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis:  xAxis,
		YAxis:  gochart.YAxis{Name: p.yTitle, Range: &gochart.ContinuousRange{Min: yr[0], Max: yr[1]}},
		Series: series,
	}
}
