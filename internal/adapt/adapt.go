// Package adapt turns backend payloads into chart-ready series and figures.
package adapt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dgnsrekt/salesboard/internal/chart"
	"github.com/dgnsrekt/salesboard/internal/fetch"
)

// Coercion rewrites a series after extraction.
type Coercion string

const (
	// XToString renders numeric x values as labels so the axis is categorical.
	XToString Coercion = chart.CoercionXToString
)

// Fields names the payload keys a series is read from. Text is optional.
type Fields struct {
	X    string
	Y    string
	Text string
}

var (
	scatterFields = Fields{X: "x", Y: "y", Text: "text"}
	salesFields   = Fields{X: "x", Y: "y"}
)

const historyField = "history_data"

// Adapt extracts a series from p. Arrays of different lengths are truncated
// to the shortest one and a warning is logged.
func Adapt(p fetch.Payload, f Fields, coercions ...Coercion) (chart.Series, error) {
	var s chart.Series

	x, err := requiredArray[any](p, f.X)
	if err != nil {
		return chart.Series{}, err
	}
	// Pointers keep a JSON null apart from a zero.
	yp, err := requiredArray[*float64](p, f.Y)
	if err != nil {
		return chart.Series{}, err
	}
	y := make([]float64, len(yp))
	for i, v := range yp {
		if v == nil {
			return chart.Series{}, chart.NewError(chart.CodeMalformed, fmt.Sprintf("field %s[%d] is not a number", f.Y, i), nil)
		}
		y[i] = *v
	}
	s.X, s.Y = x, y

	if f.Text != "" {
		raw, ok := p[f.Text]
		if ok && !isNull(raw) {
			var text []string
			if err := json.Unmarshal(raw, &text); err != nil {
				return chart.Series{}, chart.NewError(chart.CodeMalformed, "field "+f.Text+" is not a string array", err)
			}
			if text == nil {
				text = []string{}
			}
			s.Text = text
		}
	}

	for i, v := range s.X {
		switch v.(type) {
		case string, float64:
		default:
			return chart.Series{}, chart.NewError(chart.CodeMalformed, fmt.Sprintf("field %s[%d] is neither string nor number", f.X, i), nil)
		}
	}

	s = truncate(s)

	for _, c := range coercions {
		switch c {
		case XToString:
			s.X = xToString(s.X)
		default:
			return chart.Series{}, chart.NewError(chart.CodeValidation, "unknown coercion "+string(c), nil)
		}
	}
	return s, nil
}

// ForSpec extracts the series of a Scatter or Line chart using the fields and
// coercions the spec declares, or the defaults of its kind.
func ForSpec(p fetch.Payload, spec chart.Spec) (chart.Series, error) {
	if spec.Series.IsZero() {
		if spec.Kind == chart.KindLine {
			return SalesByYear(p)
		}
		return Scatter(p)
	}
	f := Fields{X: spec.Series.X, Y: spec.Series.Y, Text: spec.Series.Text}
	coercions := make([]Coercion, 0, len(spec.Series.Coercions))
	for _, c := range spec.Series.Coercions {
		coercions = append(coercions, Coercion(c))
	}
	return Adapt(p, f, coercions...)
}

// Scatter adapts a /scatter_data payload.
func Scatter(p fetch.Payload) (chart.Series, error) {
	return Adapt(p, scatterFields)
}

// SalesByYear adapts a /sales_by_year_data payload; years become axis labels.
func SalesByYear(p fetch.Payload) (chart.Series, error) {
	return Adapt(p, salesFields, XToString)
}

// History decodes the JSON-encoded figure carried in history_data.
func History(p fetch.Payload) (chart.Figure, error) {
	raw, ok := p[historyField]
	if !ok || isNull(raw) {
		return nil, chart.NewError(chart.CodeMalformed, "missing field "+historyField, nil)
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, chart.NewError(chart.CodeMalformed, "field "+historyField+" is not a string", err)
	}

	var inner map[string]json.RawMessage
	if err := json.Unmarshal([]byte(encoded), &inner); err != nil {
		return nil, chart.NewError(chart.CodeMalformed, "decode "+historyField, err)
	}
	if inner == nil {
		return nil, chart.NewError(chart.CodeMalformed, "decode "+historyField+": not a JSON object", nil)
	}
	return chart.Figure(bytes.TrimSpace([]byte(encoded))), nil
}

func requiredArray[T any](p fetch.Payload, key string) ([]T, error) {
	raw, ok := p[key]
	if !ok || isNull(raw) {
		return nil, chart.NewError(chart.CodeMalformed, "missing field "+key, nil)
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, chart.NewError(chart.CodeMalformed, "field "+key+" has the wrong shape", err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func truncate(s chart.Series) chart.Series {
	n := min(len(s.X), len(s.Y))
	if s.Text != nil {
		n = min(n, len(s.Text))
	}
	mismatch := len(s.X) != n || len(s.Y) != n || (s.Text != nil && len(s.Text) != n)
	if !mismatch {
		return s
	}

	attrs := []any{"x_len", len(s.X), "y_len", len(s.Y), "truncated_to", n}
	if s.Text != nil {
		attrs = append(attrs, "text_len", len(s.Text))
		s.Text = s.Text[:n]
	}
	slog.Warn("adapt series length mismatch", attrs...)
	s.X = s.X[:n]
	s.Y = s.Y[:n]
	return s
}

func xToString(xs []any) []any {
	out := make([]any, len(xs))
	for i, v := range xs {
		switch tv := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(tv, 'f', -1, 64)
		default:
			out[i] = v
		}
	}
	return out
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
