package pngsurface

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dgnsrekt/salesboard/internal/chart"
)

type plotTrace struct {
	name       string
	x          []float64
	y          []float64
	labels     []string
	lines      bool
	markers    bool
	markerSize int
}

type plot struct {
	title      string
	xTitle     string
	yTitle     string
	categories []string
	traces     []plotTrace
}

func (p plot) empty() bool {
	for _, tr := range p.traces {
		if len(tr.x) > 0 {
			return false
		}
	}
	return true
}

// ranges returns padded [min,max] bounds for both axes so single points and
// flat lines still get a drawable range.
func (p plot) ranges() ([2]float64, [2]float64) {
	first := true
	var xr, yr [2]float64
	for _, tr := range p.traces {
		for i := range tr.x {
			if first {
				xr = [2]float64{tr.x[i], tr.x[i]}
				yr = [2]float64{tr.y[i], tr.y[i]}
				first = false
				continue
			}
			xr[0], xr[1] = min(xr[0], tr.x[i]), max(xr[1], tr.x[i])
			yr[0], yr[1] = min(yr[0], tr.y[i]), max(yr[1], tr.y[i])
		}
	}
	return pad(xr, 0.5), pad(yr, 0.05*(yr[1]-yr[0]))
}

func pad(r [2]float64, by float64) [2]float64 {
	if r[0] == r[1] {
		return [2]float64{r[0] - 1, r[1] + 1}
	}
	return [2]float64{r[0] - by, r[1] + by}
}

type rawTrace struct {
	Name   string          `json:"name"`
	Mode   string          `json:"mode"`
	X      []any           `json:"x"`
	Y      []any           `json:"y"`
	Text   json.RawMessage `json:"text"`
	Marker struct {
		Size int `json:"size"`
	} `json:"marker"`
}

type rawFigure struct {
	Data   []rawTrace `json:"data"`
	Layout struct {
		Title json.RawMessage `json:"title"`
		XAxis struct {
			Title json.RawMessage `json:"title"`
		} `json:"xaxis"`
		YAxis struct {
			Title json.RawMessage `json:"title"`
		} `json:"yaxis"`
	} `json:"layout"`
}

// parseFigure converts a Plotly-shaped figure into numeric traces. When any
// x value is a string the whole x axis is categorical and every x becomes a
// category index shared across traces. Points with a non-numeric y are dropped.
func parseFigure(fig chart.Figure) (plot, error) {
	var raw rawFigure
	if err := json.Unmarshal(fig, &raw); err != nil {
		return plot{}, chart.NewError(chart.CodeMalformed, "decode figure", err)
	}

	p := plot{
		title:  titleText(raw.Layout.Title),
		xTitle: titleText(raw.Layout.XAxis.Title),
		yTitle: titleText(raw.Layout.YAxis.Title),
	}
	categorical := hasStringX(raw.Data)
	catIndex := make(map[string]int)

	for _, rt := range raw.Data {
		mode := rt.Mode
		if mode == "" {
			mode = "lines+markers"
		}
		tr := plotTrace{
			name:       rt.Name,
			lines:      strings.Contains(mode, "lines"),
			markers:    strings.Contains(mode, "markers"),
			markerSize: rt.Marker.Size,
		}
		if tr.markerSize <= 0 {
			tr.markerSize = 6
		}
		labels := perPointText(rt.Text)
		showText := strings.Contains(mode, "text") && len(labels) > 0

		n := min(len(rt.X), len(rt.Y))
		dropped := 0
		for i := 0; i < n; i++ {
			y, ok := number(rt.Y[i])
			if !ok {
				dropped++
				continue
			}
			x, ok := number(rt.X[i])
			if categorical || !ok {
				l := label(rt.X[i])
				idx, seen := catIndex[l]
				if !seen {
					idx = len(p.categories)
					catIndex[l] = idx
					p.categories = append(p.categories, l)
				}
				x = float64(idx)
			}
			tr.x = append(tr.x, x)
			tr.y = append(tr.y, y)
			if showText && i < len(labels) {
				tr.labels = append(tr.labels, labels[i])
			}
		}
		if len(tr.labels) != len(tr.x) {
			tr.labels = nil
		}
		if dropped > 0 {
			slog.Debug("pngsurface dropped non-numeric points", "trace", rt.Name, "dropped", dropped)
		}
		p.traces = append(p.traces, tr)
	}
	return p, nil
}

func hasStringX(traces []rawTrace) bool {
	for _, rt := range traces {
		for _, v := range rt.X {
			if _, ok := v.(string); ok {
				return true
			}
		}
	}
	return false
}

func number(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func label(v any) string {
	switch tv := v.(type) {
	case string:
		return tv
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(tv)
		return string(b)
	}
}

func perPointText(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

// titleText accepts both the "title" string form and the {"text": ...} object form.
func titleText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Text
	}
	return ""
}
