package media

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers the media routes. pageReader may be nil in
// contexts that don't serve page content (e.g. tests); session
// authentication is an external collaborator (spec.md §1).
func RegisterRoutes(e *echo.Echo, db *bun.DB, reader pageReader) {
	h := &handler{
		mediaService: NewService(db),
		pageReader:   reader,
	}

	g := e.Group("/media")
	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
	g.GET("/:id/page/:page", h.page)
	g.GET("/:id/thumbnail", h.thumbnail)
}
