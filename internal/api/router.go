package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/daylog/time-tracker/docs"
	"github.com/daylog/time-tracker/internal/api/handler"
	"github.com/daylog/time-tracker/internal/api/middleware"
	"github.com/daylog/time-tracker/internal/core/ports"
	infrahttp "github.com/daylog/time-tracker/internal/infrastructure/http"
	"github.com/daylog/time-tracker/internal/infrastructure/http/handlers"
)

// Dependencies groups everything the router wires into handlers.
type Dependencies struct {
	Auth      ports.AuthService
	Tracking  ports.TrackingService
	Summary   ports.SummaryService
	JWTSecret string
	// DefaultHistoryDays is used when /api/track/history has no days parameter.
	DefaultHistoryDays int
	// Checks are run by the readiness probe, keyed by dependency name.
	Checks map[string]handlers.Check
	Log    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
// It registers the HTTP metrics collectors, so it is called once per process.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddleware("tracker_http"))

	// --- Ops routes (no auth required) ---
	infrahttp.RegisterOps(e, deps.Checks)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	e.POST("/api/auth/register", authHandler.Register)
	e.POST("/api/auth/login", authHandler.Login)

	// --- Tracking routes ---
	trackHandler := handler.NewTrackHandler(deps.Tracking, deps.Summary, deps.DefaultHistoryDays)
	secured := e.Group("/api", middleware.Auth(deps.JWTSecret))
	secured.GET("/categories", trackHandler.Categories)
	secured.POST("/track/start", trackHandler.Start)
	secured.POST("/track/stop", trackHandler.Stop)
	secured.GET("/track/today", trackHandler.Today)
	secured.GET("/track/history", trackHandler.History)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
