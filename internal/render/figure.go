package render

import (
	"encoding/json"

	"github.com/dgnsrekt/salesboard/internal/chart"
)

const (
	ScatterMarkerSize = 10
	LineMarkerSize    = 6
	ScatterHoverInfo  = "text+x+y"
)

// Trace is one Plotly scatter trace.
type Trace struct {
	X         []any     `json:"x"`
	Y         []float64 `json:"y"`
	Mode      string    `json:"mode"`
	Type      string    `json:"type"`
	Text      []string  `json:"text,omitempty"`
	Marker    Marker    `json:"marker"`
	HoverInfo string    `json:"hoverinfo,omitempty"`
}

// Marker sets point styling.
type Marker struct {
	Size int `json:"size"`
}

type axis struct {
	Title string `json:"title"`
}

type layoutSpec struct {
	Title string `json:"title"`
	XAxis axis   `json:"xaxis"`
	YAxis axis   `json:"yaxis"`
}

type figureSpec struct {
	Data   []Trace    `json:"data"`
	Layout layoutSpec `json:"layout"`
}

// BuildFigure produces the declarative chart description for a series of the given kind.
func BuildFigure(kind chart.Kind, s chart.Series, l chart.Layout) (chart.Figure, error) {
	tr := Trace{X: nonNilX(s.X), Y: nonNilY(s.Y), Type: "scatter"}
	switch kind {
	case chart.KindScatter:
		tr.Mode = "markers+text"
		tr.Text = s.Text
		tr.Marker = Marker{Size: ScatterMarkerSize}
		tr.HoverInfo = ScatterHoverInfo
	case chart.KindLine:
		tr.Mode = "lines+markers"
		tr.Marker = Marker{Size: LineMarkerSize}
	default:
		return nil, chart.NewError(chart.CodeValidation, "series cannot be drawn as kind "+string(kind), nil)
	}

	fig := figureSpec{
		Data: []Trace{tr},
		Layout: layoutSpec{
			Title: l.Title,
			XAxis: axis{Title: l.XAxisTitle},
			YAxis: axis{Title: l.YAxisTitle},
		},
	}
	b, err := json.Marshal(fig)
	if err != nil {
		return nil, chart.NewError(chart.CodeMalformed, "encode figure", err)
	}
	return chart.Figure(b), nil
}

func nonNilX(x []any) []any {
	if x == nil {
		return []any{}
	}
	return x
}

func nonNilY(y []float64) []float64 {
	if y == nil {
		return []float64{}
	}
	return y
}
