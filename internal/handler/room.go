package handler

import (
    "context"  // context with cancellation for DB calls
    "net/http" // HTTP status codes
    "strings"  // input trimming
    "time"     // timeouts and RFC3339 parsing

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/room-reservation/internal/model"
    "github.com/iliyamo/room-reservation/internal/repository"
    "github.com/iliyamo/room-reservation/internal/service"
)

// RoomHandler serves room management (admin) and room browsing. Room
// changes fan out a notification to every admin so the team sees who
// altered the inventory.
type RoomHandler struct {
	Rooms    *repository.RoomRepo
	Users    *repository.UserRepo
	Svc      *service.BookingService
	Notifier service.Notifier
}

func NewRoomHandler(rooms *repository.RoomRepo, users *repository.UserRepo, svc *service.BookingService, notifier service.Notifier) *RoomHandler {
	return &RoomHandler{Rooms: rooms, Users: users, Svc: svc, Notifier: notifier}
}

type roomReq struct {
	Name     string  `json:"name"`
	Capacity uint32  `json:"capacity"`
	Location *string `json:"location"`
	IsActive *bool   `json:"is_active"`
}

// Create registers a new room (admin only, enforced by the router).
func (h *RoomHandler) Create(c echo.Context) error {
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be positive"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	room := model.Room{Name: req.Name, Capacity: req.Capacity, Location: req.Location, IsActive: true}
	if req.IsActive != nil {
		room.IsActive = *req.IsActive
	}
	if err := h.Rooms.Create(ctx, &room); err != nil {
		if err == repository.ErrNameExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "room name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create room failed"})
	}
	h.notifyAdmins(ctx, c, model.NotifyRoomCreated, "Room created", "Room \""+room.Name+"\" was added.", room.ID)
	return c.JSON(http.StatusCreated, toRoomResp(room))
}

// Get returns a single room by ID.
func (h *RoomHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	room, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrRoomNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load room failed"})
	}
	return c.JSON(http.StatusOK, toRoomResp(room))
}

// List returns rooms ordered by name. Pass ?include_inactive=true to
// also see deactivated rooms (admins auditing the inventory).
func (h *RoomHandler) List(c echo.Context) error {
	activeOnly := c.QueryParam("include_inactive") != "true"
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	rooms, err := h.Rooms.List(ctx, activeOnly)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list rooms failed"})
	}
	out := make([]roomResp, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toRoomResp(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": out})
}

// Update rewrites a room's fields (admin only).
func (h *RoomHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	room, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrRoomNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load room failed"})
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		room.Name = name
	}
	if req.Capacity > 0 {
		room.Capacity = req.Capacity
	}
	if req.Location != nil {
		room.Location = req.Location
	}
	if req.IsActive != nil {
		room.IsActive = *req.IsActive
	}
	if err := h.Rooms.Update(ctx, room); err != nil {
		switch err {
		case repository.ErrRoomNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		case repository.ErrNameExists:
			return c.JSON(http.StatusConflict, echo.Map{"error": "room name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update room failed"})
	}
	h.notifyAdmins(ctx, c, model.NotifyRoomUpdated, "Room updated", "Room \""+room.Name+"\" was changed.", room.ID)
	return c.JSON(http.StatusOK, toRoomResp(room))
}

// Delete removes a room and, via schema cascade, everything booked in
// it (admin only).
func (h *RoomHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	room, err := h.Rooms.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrRoomNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load room failed"})
	}
	if err := h.Rooms.Delete(ctx, id); err != nil {
		if err == repository.ErrRoomNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete room failed"})
	}
	h.notifyAdmins(ctx, c, model.NotifyRoomDeleted, "Room deleted", "Room \""+room.Name+"\" was removed.", id)
	return c.NoContent(http.StatusNoContent)
}

// Availability reports whether a room is free for a half-open
// interval: GET /rooms/:id/availability?start=...&end=... with RFC3339
// timestamps.
func (h *RoomHandler) Availability(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	start, err := time.Parse(time.RFC3339, c.QueryParam("start"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start must be RFC3339"})
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("end"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end must be RFC3339"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	available, err := h.Svc.CheckAvailability(ctx, id, start, end)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room_id":   id,
		"start":     start,
		"end":       end,
		"available": available,
	})
}

// notifyAdmins fans a room inventory change out to every admin except
// the one who made it.
func (h *RoomHandler) notifyAdmins(ctx context.Context, c echo.Context, kind, title, message string, roomID uint64) {
	if h.Notifier == nil || h.Users == nil {
		return
	}
	actor, _ := actorFrom(c)
	adminIDs, err := h.Users.ListAdminIDs(ctx)
	if err != nil {
		return
	}
	rid := roomID
	batch := make([]model.Notification, 0, len(adminIDs))
	for _, id := range adminIDs {
		if id == actor.ID {
			continue
		}
		batch = append(batch, model.Notification{
			UserID:  id,
			Kind:    kind,
			Title:   title,
			Message: message,
			RoomID:  &rid,
		})
	}
	if len(batch) > 0 {
		h.Notifier.NotifyAll(ctx, batch)
	}
}
