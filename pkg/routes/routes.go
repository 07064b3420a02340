// Package routes assembles the HTTP API.
package routes

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/thistle/pkg/middleware"
	"github.com/Ramsey-B/thistle/pkg/routes/graph"
	"github.com/Ramsey-B/thistle/pkg/routes/health"
	"github.com/Ramsey-B/thistle/pkg/routes/reports"
	"github.com/Ramsey-B/thistle/pkg/routes/runs"
)

// Options configures the API
type Options struct {
	AppName string
	DataDir string
}

// Dependencies are the services behind the API. Reports and Graph are optional.
type Dependencies struct {
	Runs    runs.Manager
	Reports reports.Store
	Graph   graph.AliasFinder
	Health  *health.Checker
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// NewServer builds the echo instance with middleware and every route registered
func NewServer(opts Options, deps Dependencies, logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Validator = &requestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}

	e.Use(otelecho.Middleware(opts.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if deps.Health != nil {
		deps.Health.RegisterRoutes(e)
	}

	api := e.Group("/api/v1")
	runs.NewHandler(deps.Runs, opts.DataDir, logger).Register(api.Group("/runs"))

	if deps.Reports != nil {
		reports.NewHandler(deps.Reports, logger).Register(api.Group("/reports"))
	}

	if deps.Graph != nil {
		graph.NewHandler(deps.Graph, logger).Register(api.Group("/graph"))
	}

	return e
}
