package series

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers the series routes. Series rows are owned by
// the scanner (spec.md §3), so the only user-facing mutation is the
// description override; session authentication is an external
// collaborator (spec.md §1).
func RegisterRoutes(e *echo.Echo, db *bun.DB) {
	h := &handler{seriesService: NewService(db)}

	g := e.Group("/series")
	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
}
