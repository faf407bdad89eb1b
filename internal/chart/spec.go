package chart

import (
	"fmt"
	"strings"
)

// ParamNames maps the filter fields of a selection to backend query keys.
// An empty name drops that field from the request.
type ParamNames struct {
	Entity string `json:"entity,omitempty" yaml:"entity"`
	Start  string `json:"start,omitempty" yaml:"start"`
	End    string `json:"end,omitempty" yaml:"end"`
}

// CoercionXToString renders numeric x values as labels.
const CoercionXToString = "x_to_string"

// SeriesFields names the payload keys a Scatter or Line chart reads and the
// coercions applied after extraction. Zero value means the kind's defaults.
type SeriesFields struct {
	X         string   `json:"x,omitempty" yaml:"x"`
	Y         string   `json:"y,omitempty" yaml:"y"`
	Text      string   `json:"text,omitempty" yaml:"text"`
	Coercions []string `json:"coercions,omitempty" yaml:"coercions"`
}

// IsZero reports whether no field is set.
func (f SeriesFields) IsZero() bool {
	return f.X == "" && f.Y == "" && f.Text == "" && len(f.Coercions) == 0
}

// Spec binds one dashboard chart: where its data comes from, how it is
// presented and which inputs filter it.
type Spec struct {
	Name     string     `json:"name" yaml:"name"`
	Endpoint string     `json:"endpoint" yaml:"endpoint"`
	Target   Target     `json:"target" yaml:"target"`
	Kind     Kind       `json:"kind" yaml:"kind"`
	Layout   Layout     `json:"layout" yaml:"layout"`
	Inputs   InputIDs   `json:"inputs" yaml:"inputs"`
	Params   ParamNames `json:"params" yaml:"params"`
	// Series is ignored for raw charts.
	Series SeriesFields `json:"series,omitempty" yaml:"series"`
	// FilterOnLoad makes the initial load read the inputs instead of
	// requesting unfiltered data.
	FilterOnLoad bool `json:"filter_on_load" yaml:"filter_on_load"`
}

// Query builds the backend parameters for sel.
func (s Spec) Query(sel FilterSelection) map[string]string {
	q := make(map[string]string, 3)
	put := func(key, value string) {
		if key != "" && value != "" {
			q[key] = value
		}
	}
	put(s.Params.Entity, sel.Entity)
	put(s.Params.Start, sel.StartPeriod)
	put(s.Params.End, sel.EndPeriod)
	return q
}

// Validate checks that the spec can drive a cycle.
func (s Spec) Validate() error {
	var missing []string
	if strings.TrimSpace(s.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(s.Endpoint) == "" {
		missing = append(missing, "endpoint")
	}
	if strings.TrimSpace(string(s.Target)) == "" {
		missing = append(missing, "target")
	}
	if len(missing) > 0 {
		return NewError(CodeValidation, fmt.Sprintf("chart %q missing %s", s.Name, strings.Join(missing, ", ")), nil)
	}
	switch s.Kind {
	case KindScatter, KindLine:
	case KindRaw:
		return nil
	default:
		return NewError(CodeValidation, fmt.Sprintf("chart %q has unknown kind %q", s.Name, s.Kind), nil)
	}
	if s.Series.IsZero() {
		return nil
	}
	if s.Series.X == "" || s.Series.Y == "" {
		return NewError(CodeValidation, fmt.Sprintf("chart %q series needs both x and y", s.Name), nil)
	}
	for _, c := range s.Series.Coercions {
		if c != CoercionXToString {
			return NewError(CodeValidation, fmt.Sprintf("chart %q has unknown coercion %q", s.Name, c), nil)
		}
	}
	return nil
}
