package handler

import (
    "context"  // context with cancellation for DB calls
    "net/http" // HTTP status codes
    "time"     // timeouts and RFC3339 parsing

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/room-reservation/internal/repository"
    "github.com/iliyamo/room-reservation/internal/service"
)

// BookingHandler exposes the booking lifecycle over HTTP.  Mutations
// go through the booking service; reads hit the repository directly.
type BookingHandler struct {
	Svc      *service.BookingService
	Bookings *repository.BookingRepo
	Groups   *repository.RecurrenceRepo
}

func NewBookingHandler(svc *service.BookingService, bookings *repository.BookingRepo, groups *repository.RecurrenceRepo) *BookingHandler {
	return &BookingHandler{Svc: svc, Bookings: bookings, Groups: groups}
}

type createBookingReq struct {
	RoomID      uint64    `json:"room_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	AttendeeIDs []uint64  `json:"attendee_ids"`
}

type createRecurringReq struct {
	createBookingReq
	EndDate string `json:"end_date"` // YYYY-MM-DD, inclusive
}

type updateBookingReq struct {
	RoomID      *uint64    `json:"room_id"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	AttendeeIDs []uint64   `json:"attendee_ids"`
}

type cancelReq struct {
	Reason string `json:"reason"`
}

// Create books a room for a single interval.  Admin requests bump any
// colliding bookings; the response lists what was bumped.
func (h *BookingHandler) Create(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	booking, overridden, err := h.Svc.CreateBooking(ctx, actor, service.CreateBookingInput{
		RoomID:      req.RoomID,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		AttendeeIDs: req.AttendeeIDs,
	})
	if err != nil {
		return serviceError(c, err)
	}
	now := time.Now().UTC()
	resp := echo.Map{"booking": toBookingResp(booking, now)}
	if len(overridden) > 0 {
		resp["overridden"] = toBookingResps(overridden, now)
	}
	return c.JSON(http.StatusCreated, resp)
}

// CreateRecurring books a weekly series.  All occurrences must fit or
// the whole request is rejected with the colliding dates; for admins
// the collisions are bumped instead.
func (h *BookingHandler) CreateRecurring(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createRecurringReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	endDate, err := time.ParseInLocation("2006-01-02", req.EndDate, req.StartTime.Location())
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be YYYY-MM-DD"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	group, occurrences, overridden, err := h.Svc.CreateRecurring(ctx, actor, service.CreateRecurringInput{
		RoomID:      req.RoomID,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		EndDate:     endDate,
		AttendeeIDs: req.AttendeeIDs,
	})
	if err != nil {
		return serviceError(c, err)
	}
	now := time.Now().UTC()
	resp := echo.Map{
		"recurrence_group": echo.Map{
			"id":         group.ID,
			"room_id":    group.RoomID,
			"pattern":    group.Pattern,
			"weekday":    group.Weekday,
			"start_date": group.StartDate.Format("2006-01-02"),
			"end_date":   group.EndDate.Format("2006-01-02"),
			"start_time": group.BaseStartTime,
			"end_time":   group.BaseEndTime,
			"title":      group.Title,
		},
		"occurrences": toBookingResps(occurrences, now),
	}
	if len(overridden) > 0 {
		resp["overridden"] = toBookingResps(overridden, now)
	}
	return c.JSON(http.StatusCreated, resp)
}

// CancelSeries cancels a recurring series: upcoming confirmed
// occurrences are released and the group stops deriving new ones.
func (h *BookingHandler) CancelSeries(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid recurrence group id"})
	}
	var req cancelReq
	_ = c.Bind(&req) // empty body means no reason

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	group, cancelled, err := h.Svc.CancelSeries(ctx, actor, id, req.Reason)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"recurrence_group": echo.Map{
			"id":        group.ID,
			"room_id":   group.RoomID,
			"title":     group.Title,
			"is_active": group.IsActive,
		},
		"cancelled": toBookingResps(cancelled, time.Now().UTC()),
	})
}

// ListRoomRecurrences returns the active weekly series on a room whose
// date range intersects the requested window.  The window defaults to
// the 90 days from today.
func (h *BookingHandler) ListRoomRecurrences(c echo.Context) error {
	roomID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	from := time.Now().UTC()
	if v := c.QueryParam("from"); v != "" {
		if from, err = time.Parse("2006-01-02", v); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be YYYY-MM-DD"})
		}
	}
	to := from.AddDate(0, 0, 90)
	if v := c.QueryParam("to"); v != "" {
		if to, err = time.Parse("2006-01-02", v); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be YYYY-MM-DD"})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	groups, err := h.Groups.ListActiveIntersecting(ctx, roomID, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list recurrences failed"})
	}
	out := make([]echo.Map, 0, len(groups))
	for _, g := range groups {
		out = append(out, echo.Map{
			"id":         g.ID,
			"room_id":    g.RoomID,
			"pattern":    g.Pattern,
			"weekday":    g.Weekday,
			"start_date": g.StartDate.Format("2006-01-02"),
			"end_date":   g.EndDate.Format("2006-01-02"),
			"start_time": g.BaseStartTime,
			"end_time":   g.BaseEndTime,
			"title":      g.Title,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"recurrence_groups": out})
}

// Get returns one booking with its attendees.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrBookingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load booking failed"})
	}
	return c.JSON(http.StatusOK, toBookingResp(b, time.Now().UTC()))
}

// ListMine returns bookings organized by the caller.
func (h *BookingHandler) ListMine(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	bs, err := h.Bookings.ListByOrganizer(ctx, actor.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list bookings failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": toBookingResps(bs, time.Now().UTC())})
}

// ListByRoom returns the calendar for one room.
func (h *BookingHandler) ListByRoom(c echo.Context) error {
	roomID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	bs, err := h.Bookings.ListByRoom(ctx, roomID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list bookings failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": toBookingResps(bs, time.Now().UTC())})
}

// Update changes a confirmed booking.  Moving it in time or room
// re-runs the conflict scan with the booking itself excluded.
func (h *BookingHandler) Update(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req updateBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	b, err := h.Svc.UpdateBooking(ctx, actor, id, service.UpdateBookingInput{
		RoomID:      req.RoomID,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		AttendeeIDs: req.AttendeeIDs,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b, time.Now().UTC()))
}

// Cancel marks a booking cancelled.  The slot frees immediately, so a
// follow-up create for the same interval succeeds.
func (h *BookingHandler) Cancel(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req cancelReq
	_ = c.Bind(&req) // empty body means no reason

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	b, err := h.Svc.CancelBooking(ctx, actor, id, req.Reason)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b, time.Now().UTC()))
}

// Delete removes a cancelled or past booking row entirely (admin
// only, enforced by the router and re-checked by the service).
func (h *BookingHandler) Delete(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Svc.DeleteBooking(ctx, actor, id); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
