// Package http provides the HTTP server implementation for the chat service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/taleemedge/chatbot/internal/metrics"
	"github.com/taleemedge/chatbot/internal/service"
	v1 "github.com/taleemedge/chatbot/internal/transport/http/v1"
)

// ServerOptions configures NewServer.
type ServerOptions struct {
	// AuthAPIKey, when set, is required as a bearer token on chat routes.
	AuthAPIKey string
	Metrics    *metrics.Metrics
	Log        logrus.FieldLogger
}

// NewServer creates and configures the HTTP server.
// Chat routes live under /api/chatbot; /health and /metrics are open.
func NewServer(svc *service.Service, opts ServerOptions) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = newSonicSerializer()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc, opts.Log)

	// Register Routes
	v1Handler.RegisterRoutes(e, v1.Identity(opts.AuthAPIKey)...)
	e.GET("/health", v1Handler.Health)
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics.Handler()))
	}

	return e
}
