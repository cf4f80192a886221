package jobs

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the read-only job listing routes.
// Command routes (create/pause/resume/cancel) are registered by
// pkg/server against internal/controller.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{jobService: NewService(db)}

	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
}
