package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Skotchmaster/product_api/internal/handlers"
	"github.com/Skotchmaster/product_api/internal/middleware"
)

type Deps struct {
	AuthHandler   *handlers.AuthHandler
	HealthHandler *handlers.HealthHandler
	TokenParser   middleware.TokenParser
	Gatherer      prometheus.Gatherer
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", d.HealthHandler.Live)
	e.GET("/health/ready", d.HealthHandler.Ready)
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	auth := e.Group("/api/auth")

	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh-token", d.AuthHandler.RefreshToken)
	auth.GET("/me", d.AuthHandler.Me, middleware.BearerAuth(d.TokenParser))
}
