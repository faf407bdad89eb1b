package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/salesboard/internal/controller"
)

func registerChartHandlers(api huma.API, svc Service) {
	type listChartsOutput struct {
		Body struct {
			Charts []controller.ChartStatus `json:"charts"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-charts", Method: http.MethodGet, Path: "/api/v1/charts", Summary: "List dashboard charts and their state", Tags: []string{"Charts"}},
		func(ctx context.Context, input *struct{}) (*listChartsOutput, error) {
			out := &listChartsOutput{}
			out.Body.Charts = svc.Charts(ctx)
			return out, nil
		})

	type chartOutput struct {
		Body controller.ChartStatus
	}
	huma.Register(api, huma.Operation{OperationID: "get-chart", Method: http.MethodGet, Path: "/api/v1/charts/{chart}", Summary: "Get chart state", Tags: []string{"Charts"}},
		func(ctx context.Context, input *chartInput) (*chartOutput, error) {
			st, err := svc.Chart(ctx, input.Chart)
			if err != nil {
				return nil, mapErr(err)
			}
			return &chartOutput{Body: st}, nil
		})

	type cycleOutput struct {
		Body controller.CycleResult
	}
	huma.Register(api, huma.Operation{
		OperationID: "refresh-chart",
		Method:      http.MethodPost,
		Path:        "/api/v1/charts/{chart}/refresh",
		Summary:     "Re-run the fetch and render cycle",
		Description: "Reads the chart's filter inputs now, fetches with the non-empty ones and redraws the chart. A failed cycle is reported in the body with state \"failed\"; the chart keeps its previous render.",
		Tags:        []string{"Charts"},
	},
		func(ctx context.Context, input *chartInput) (*cycleOutput, error) {
			res, err := svc.Trigger(ctx, input.Chart)
			if err != nil {
				return nil, mapErr(err)
			}
			return &cycleOutput{Body: res}, nil
		})

	type imageOutput struct {
		ContentType  string `header:"Content-Type"`
		CacheControl string `header:"Cache-Control"`
		Body         []byte
	}
	huma.Register(api, huma.Operation{OperationID: "get-chart-image", Method: http.MethodGet, Path: "/api/v1/charts/{chart}/image", Summary: "Get the image currently shown for a chart", Tags: []string{"Charts"}},
		func(ctx context.Context, input *struct {
			Chart string `path:"chart"`
			Cycle int    `query:"cycle" doc:"Ignored; lets pages bust caches"`
		}) (*imageOutput, error) {
			data, err := svc.ChartImage(ctx, input.Chart)
			if err != nil {
				return nil, mapErr(err)
			}
			return &imageOutput{ContentType: "image/png", CacheControl: "no-store", Body: data}, nil
		})
}
