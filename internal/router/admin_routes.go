package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-reservation/internal/handler"
	"github.com/iliyamo/room-reservation/internal/middleware"
	"github.com/iliyamo/room-reservation/internal/model"
)

// RegisterAdmin registers endpoints restricted to the ADMIN role: room
// inventory management and hard deletion of finished bookings.
func RegisterAdmin(e *echo.Echo, b *handler.BookingHandler, r *handler.RoomHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	g.POST("/rooms", r.Create)
	g.PATCH("/rooms/:id", r.Update)
	g.DELETE("/rooms/:id", r.Delete)

	// Only cancelled or past bookings may be deleted; the service
	// rejects anything still active.
	g.DELETE("/bookings/:id", b.Delete)
}
