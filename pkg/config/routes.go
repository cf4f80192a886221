package config

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the config routes. Session authentication is an
// external collaborator (spec.md §1); the caller is expected to have
// already applied whatever auth middleware it uses to the parent group.
func RegisterRoutes(e *echo.Echo, cfg *Config) {
	h := &handler{configService: NewService(cfg)}

	g := e.Group("/config")
	g.GET("", h.retrieve)
	g.PATCH("", h.update)
}
