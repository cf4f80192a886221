package filesystem

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the filesystem browsing routes, used by the
// library-creation UI to pick a path. Session authentication is an
// external collaborator (spec.md §1).
func RegisterRoutes(e *echo.Echo) {
	h := &handler{filesystemService: NewService()}

	g := e.Group("/filesystem")
	g.GET("/browse", h.browse)
}
