package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-reservation/internal/handler"
	"github.com/iliyamo/room-reservation/internal/middleware"
	"github.com/iliyamo/room-reservation/internal/model"
)

// RegisterMember registers the booking and browsing endpoints shared by
// every authenticated user.  Members and admins alike can browse rooms,
// check availability, book, update and cancel; the service layer decides
// what the admin override capability adds on top.
func RegisterMember(e *echo.Echo, b *handler.BookingHandler, r *handler.RoomHandler, n *handler.NotificationHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleMember, model.RoleAdmin),
	)

	// Room browsing and the room calendar.
	g.GET("/rooms", r.List)
	g.GET("/rooms/:id", r.Get)
	g.GET("/rooms/:id/availability", r.Availability)
	g.GET("/rooms/:id/bookings", b.ListByRoom)
	g.GET("/rooms/:id/recurrences", b.ListRoomRecurrences)

	// Booking lifecycle.
	g.POST("/bookings", b.Create)
	g.POST("/bookings/recurring", b.CreateRecurring)
	g.GET("/bookings/:id", b.Get)
	g.GET("/my-bookings", b.ListMine)
	g.PATCH("/bookings/:id", b.Update)
	g.POST("/bookings/:id/cancel", b.Cancel)
	g.POST("/recurrences/:id/cancel", b.CancelSeries)

	// Notification inbox.
	g.GET("/notifications", n.List)
	g.POST("/notifications/:id/read", n.MarkRead)
}
