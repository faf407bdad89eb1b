package cdpsurface

import (
	"encoding/json"

	"github.com/dgnsrekt/salesboard/internal/chart"
)

type evalEnvelope struct {
	OK           bool            `json:"ok"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

const jsPlotlyGuard = `
if (typeof Plotly === "undefined" || typeof Plotly.newPlot !== "function") {
  return JSON.stringify({ok:false,error_code:"` + chart.CodeSurfaceUnavailable + `",error_message:"Plotly is not loaded"});
}`

const jsInputValueHelper = `
function _val(id) {
  if (!id) return "";
  var el = document.getElementById(id);
  if (!el || el.value === undefined || el.value === null) return "";
  return String(el.value).trim();
}`

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func buildIIFE(async bool, body string) string {
	prefix := "(function(){\n"
	if async {
		prefix = "(async function(){\n"
	}
	return prefix + `try {
` + body + `
} catch (err) {
return JSON.stringify({ok:false,error_code:"` + chart.CodeSurfaceUnavailable + `",error_message:String(err && err.message || err)});
}
})()`
}

func wrapJSEval(body string) string      { return buildIIFE(false, body) }
func wrapJSEvalAsync(body string) string { return buildIIFE(true, body) }

// jsDraw replaces the contents of the target region with fig. Plotly.newPlot
// purges the previous plot, so repeated draws never accumulate.
func jsDraw(target chart.Target, fig chart.Figure) string {
	return wrapJSEvalAsync(jsPlotlyGuard + `
var el = document.getElementById(` + jsString(string(target)) + `);
if (!el) {
  return JSON.stringify({ok:false,error_code:"` + chart.CodeSurfaceUnavailable + `",error_message:"chart region not found: " + ` + jsString(string(target)) + `});
}
var fig = ` + string(fig) + `;
await Plotly.newPlot(el, fig);
return JSON.stringify({ok:true,data:{target:el.id,traces:(el.data || []).length}});`)
}

func jsReadInputs(ids chart.InputIDs) string {
	return wrapJSEval(jsInputValueHelper + `
return JSON.stringify({ok:true,data:{
  entity:_val(` + jsString(ids.Entity) + `),
  start_period:_val(` + jsString(ids.Start) + `),
  end_period:_val(` + jsString(ids.End) + `)
}});`)
}

func jsProbe() string {
	return wrapJSEval(`
return JSON.stringify({ok:true,data:{
  plotly:(typeof Plotly !== "undefined"),
  version:(typeof Plotly !== "undefined" && Plotly.version) ? String(Plotly.version) : "",
  ready:document.readyState
}});`)
}

// decodeEnvelope unwraps an evaluation result into out.
func decodeEnvelope(raw string, out any) error {
	var env evalEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return chart.NewError(chart.CodeSurfaceUnavailable, "invalid evaluation envelope", err)
	}
	if !env.OK {
		code := env.ErrorCode
		if code == "" {
			code = chart.CodeSurfaceUnavailable
		}
		return chart.NewError(code, env.ErrorMessage, nil)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return chart.NewError(chart.CodeSurfaceUnavailable, "invalid evaluation data", err)
	}
	return nil
}
