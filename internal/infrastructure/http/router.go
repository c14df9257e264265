package http

import (
	"github.com/labstack/echo/v4"

	"github.com/daylog/time-tracker/internal/infrastructure/http/handlers"
)

// RegisterOps mounts the unauthenticated probe routes on e.
func RegisterOps(e *echo.Echo, checks map[string]handlers.Check) {
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(checks)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
}
