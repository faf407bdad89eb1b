package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/salesboard/internal/chart"
	"github.com/dgnsrekt/salesboard/internal/controller"
	"github.com/dgnsrekt/salesboard/internal/relay"
	"github.com/dgnsrekt/salesboard/internal/snapshot"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Service interface {
	Charts(ctx context.Context) []controller.ChartStatus
	Chart(ctx context.Context, name string) (controller.ChartStatus, error)
	Trigger(ctx context.Context, name string) (controller.CycleResult, error)
	ChartImage(ctx context.Context, name string) ([]byte, error)
	Inputs(ctx context.Context) (map[string]string, error)
	SetInputs(ctx context.Context, values map[string]string) (map[string]string, error)
	TakeSnapshot(ctx context.Context, name, notes string) (snapshot.Meta, error)
	ListSnapshots(ctx context.Context, name string) ([]snapshot.Meta, error)
	GetSnapshot(ctx context.Context, id string) (snapshot.Meta, error)
	ReadSnapshotImage(ctx context.Context, id string) ([]byte, string, error)
	DeleteSnapshot(ctx context.Context, id string) error
}

// Options carries the non-API handlers mounted next to the control API.
type Options struct {
	// Page serves the dashboard at "/".
	Page   http.Handler
	Broker *relay.Broker
}

const apiTitle = "Salesboard Controller API"

type chartInput struct {
	Chart string `path:"chart" doc:"Chart name (scatter, sales_by_year, history)"`
}

func NewServer(svc Service, opts Options) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig(apiTitle, "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", docsHandler(apiTitle))
	if opts.Page != nil {
		router.Method(http.MethodGet, "/", opts.Page)
	}
	if opts.Broker != nil {
		router.Get("/api/v1/events", relay.SSEHandler(opts.Broker))
		router.Get("/api/v1/events/ws", relay.WSHandler(opts.Broker))
	}

	registerChartHandlers(api, svc)
	registerInputHandlers(api, svc)
	registerSnapshotHandlers(api, svc)
	registerHealthHandlers(api, svc, opts.Broker)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *chart.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case chart.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case chart.CodeChartNotFound, chart.CodeSnapshotNotFound:
			return huma.Error404NotFound(coded.Message)
		case chart.CodeUnreachable, chart.CodeMalformed:
			return huma.Error502BadGateway(coded.Message)
		case chart.CodeSurfaceUnavailable:
			return huma.Error503ServiceUnavailable(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
