package httpapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/septivank/utility-metering-api/internal/config"
	"github.com/septivank/utility-metering-api/internal/service"
	"go.uber.org/zap"
)

// Server is the HTTP surface for the measure workflows
type Server struct {
	echo   *echo.Echo
	svc    *service.MeasureService
	cfg    *config.Config
	logger *zap.Logger
}

// NewServer creates a new HTTP server with routes and middleware wired
func NewServer(svc *service.MeasureService, cfg *config.Config, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	// Base64 meter photos are large, the default 4KB-ish limits won't do
	e.Use(middleware.BodyLimit(cfg.HTTP.BodyLimit))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(cfg.HTTP.CORSAllowOrigins, ","),
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("http request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	e.Validator = NewEchoValidator()

	s := &Server{echo: e, svc: svc, cfg: cfg, logger: logger}
	s.setRoutes(e)

	return s
}

func (s *Server) setRoutes(e *echo.Echo) {
	// Probe route
	e.GET("/", func(c echo.Context) error {
		return c.String(200, "Utility Metering API is running")
	})

	measures := e.Group("/measures")
	measures.POST("/upload", s.uploadMeasure)
	measures.PATCH("/confirm", s.confirmMeasure)
	measures.GET("/:customer_code/list", s.listMeasures)

	// Persisted meter images
	e.Static(s.cfg.Storage.PublicPrefix, s.cfg.Storage.Dir)
}

// Start begins serving on the configured port. Blocks until shutdown.
func (s *Server) Start() error {
	address := fmt.Sprintf(":%d", s.cfg.ServicePort)
	s.logger.Info("starting http server", zap.String("address", address))
	return s.echo.Start(address)
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying router, used by tests
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
