package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const metricsSubsystem = "visor_api"

type Options struct {
	// BodyLimit caps request bodies, e.g. "64K". Empty disables the limit.
	BodyLimit string
	// Registry receives the HTTP metrics served on /metrics. A private
	// registry is created when nil.
	Registry *prometheus.Registry
}

// NewServer builds the Echo instance serving the API.
func NewServer(docs Documents, events Subscriber, logger *log.Logger, opts Options) *echo.Echo {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Pre(CORSMiddleware())
	e.Use(RequestMetrics(logger))
	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  metricsSubsystem,
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			switch c.Path() {
			case "/metrics", "/api/events":
				return true
			}
			return false
		},
	}))
	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg}))
	Register(e, docs, events, logger)
	return e
}
