package chart

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	CodeValidation         = "VALIDATION"
	CodeChartNotFound      = "CHART_NOT_FOUND"
	CodeSnapshotNotFound   = "SNAPSHOT_NOT_FOUND"
	CodeUnreachable        = "UNREACHABLE"
	CodeMalformed          = "MALFORMED"
	CodeSurfaceUnavailable = "SURFACE_UNAVAILABLE"
)

// CodedError is a typed error used for stable API mapping.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

// NewError builds a CodedError.
func NewError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code string) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}
	return coded.Code == code
}

// Kind selects how a chart is presented.
type Kind string

const (
	KindScatter Kind = "scatter"
	KindLine    Kind = "line"
	KindRaw     Kind = "raw"
)

// Target names a region of the host surface that owns exactly one live chart.
type Target string

// Series is chart-ready coordinate data. X holds string or float64 values.
// Text is nil when the payload carried no labels.
type Series struct {
	X    []any     `json:"x"`
	Y    []float64 `json:"y"`
	Text []string  `json:"text,omitempty"`
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Y) }

// Layout holds the fixed titles of a chart kind.
type Layout struct {
	Title      string `json:"title" yaml:"title"`
	XAxisTitle string `json:"x_axis_title" yaml:"x_axis_title"`
	YAxisTitle string `json:"y_axis_title" yaml:"y_axis_title"`
}

// Figure is a declarative {data, layout} chart description passed to a surface as-is.
type Figure json.RawMessage

// MarshalJSON keeps the figure bytes verbatim when embedded in other documents.
func (f Figure) MarshalJSON() ([]byte, error) {
	if len(f) == 0 {
		return []byte("null"), nil
	}
	return f, nil
}

// UnmarshalJSON stores a copy of the raw figure bytes.
func (f *Figure) UnmarshalJSON(data []byte) error {
	*f = append((*f)[:0], data...)
	return nil
}

// FilterSelection is a snapshot of the filter inputs at trigger time.
// Empty fields are treated as absent.
type FilterSelection struct {
	Entity      string `json:"entity,omitempty"`
	StartPeriod string `json:"start_period,omitempty"`
	EndPeriod   string `json:"end_period,omitempty"`
}

// InputIDs names the interactive-surface inputs a chart reads its filters from.
// An empty identifier means the chart has no such filter.
type InputIDs struct {
	Entity string `json:"entity,omitempty" yaml:"entity"`
	Start  string `json:"start,omitempty" yaml:"start"`
	End    string `json:"end,omitempty" yaml:"end"`
}

// Empty reports whether no input is configured.
func (ids InputIDs) Empty() bool {
	return ids.Entity == "" && ids.Start == "" && ids.End == ""
}
