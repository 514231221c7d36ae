package bench

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers one route per benchmark plus the fixture and
// lifecycle endpoints. Read benchmarks are GETs, mutating ones POSTs.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	for _, name := range Benchmarks {
		if IsMutating(name) {
			e.POST("/"+name, h.Run(name))
		} else {
			e.GET("/"+name, h.Run(name))
		}
	}

	e.GET("/ids", h.IDs)
	e.POST("/setup/:name", h.Setup)
	e.POST("/cleanup/:name", h.Cleanup)
}
