package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/salesboard/internal/controller"
	"github.com/dgnsrekt/salesboard/internal/relay"
)

func registerHealthHandlers(api huma.API, svc Service, broker *relay.Broker) {
	type healthOutput struct {
		Body struct {
			Status      string         `json:"status"`
			States      map[string]int `json:"states"`
			Subscribers int            `json:"subscribers"`
			Dropped     int64          `json:"dropped_events"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/api/v1/health", Summary: "Controller health", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			out.Body.States = map[string]int{}
			for _, st := range svc.Charts(ctx) {
				out.Body.States[string(st.State)]++
				if st.State == controller.StateFailed {
					out.Body.Status = "degraded"
				}
			}
			if broker != nil {
				out.Body.Subscribers = broker.ClientCount()
				out.Body.Dropped = broker.Dropped()
			}
			return out, nil
		})
}
