package libraries

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers the library routes. Session authentication is an
// external collaborator (spec.md §1); jobService may be nil in contexts
// that don't wire up scanning (e.g. tests).
func RegisterRoutes(e *echo.Echo, db *bun.DB, jobService jobEnqueuer) {
	h := &handler{
		libraryService: NewService(db),
		jobService:     jobService,
	}

	g := e.Group("/libraries")
	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.POST("", h.create)
	g.PATCH("/:id", h.update)
}
