package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func registerInputHandlers(api huma.API, svc Service) {
	type inputsOutput struct {
		Body struct {
			Values map[string]string `json:"values"`
		}
	}

	huma.Register(api, huma.Operation{OperationID: "get-inputs", Method: http.MethodGet, Path: "/api/v1/inputs", Summary: "Read the current filter inputs", Tags: []string{"Inputs"}},
		func(ctx context.Context, input *struct{}) (*inputsOutput, error) {
			values, err := svc.Inputs(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &inputsOutput{}
			out.Body.Values = values
			return out, nil
		})

	huma.Register(api, huma.Operation{
		OperationID: "set-inputs",
		Method:      http.MethodPut,
		Path:        "/api/v1/inputs",
		Summary:     "Edit filter inputs",
		Description: "Only available with the png surface; with the browser surface the dashboard page owns its inputs. An empty value clears the input.",
		Tags:        []string{"Inputs"},
	},
		func(ctx context.Context, input *struct {
			Body struct {
				Values map[string]string `json:"values" required:"true" doc:"Input id to value, e.g. {\"company_dropdown\":\"Acme\"}"`
			}
		}) (*inputsOutput, error) {
			values, err := svc.SetInputs(ctx, input.Body.Values)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &inputsOutput{}
			out.Body.Values = values
			return out, nil
		})
}
