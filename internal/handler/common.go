package handler

import (
    "errors"   // errors.As / errors.Is for service error mapping
    "net/http" // HTTP status codes
    "strconv"  // path parameter parsing
    "time"     // effective status computation

    "github.com/labstack/echo/v4" // echo context and JSON helpers

    "github.com/iliyamo/room-reservation/internal/model"
    "github.com/iliyamo/room-reservation/internal/service"
)

// actorFrom builds the service actor from the claims JWTAuth stored in
// the context.  The subject claim decodes as float64 for numeric JSON
// values and occasionally as a string, so both are handled.
func actorFrom(c echo.Context) (service.Actor, bool) {
	var id uint64
	switch v := c.Get("user_id").(type) {
	case float64:
		id = uint64(v)
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return service.Actor{}, false
		}
		id = parsed
	default:
		return service.Actor{}, false
	}
	if id == 0 {
		return service.Actor{}, false
	}
	role, _ := c.Get("role").(string)
	return service.Actor{ID: id, CanOverride: role == model.RoleAdmin}, true
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// serviceError maps booking service errors onto HTTP responses.
// Conflicts include the colliding dates when the service reports them
// so recurring callers can see exactly which occurrences collide.
func serviceError(c echo.Context, err error) error {
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": vErr.Msg})
	}
	var cErr *service.ConflictError
	if errors.As(err, &cErr) {
		body := echo.Map{"error": cErr.Error()}
		if len(cErr.Dates) > 0 {
			body["conflict_dates"] = cErr.Dates
		}
		return c.JSON(http.StatusConflict, body)
	}
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// ----- shared response shapes -----

type bookingResp struct {
	ID                uint64     `json:"id"`
	RoomID            uint64     `json:"room_id"`
	OrganizerID       uint64     `json:"organizer_id"`
	Title             string     `json:"title"`
	Description       *string    `json:"description,omitempty"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           time.Time  `json:"end_time"`
	Status            string     `json:"status"`
	RecurrenceGroupID *uint64    `json:"recurrence_group_id,omitempty"`
	CancelledBy       *uint64    `json:"cancelled_by,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	CancelReason      *string    `json:"cancel_reason,omitempty"`
	AttendeeIDs       []uint64   `json:"attendee_ids"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// toBookingResp converts a model booking, substituting the effective
// status so past confirmed bookings read as COMPLETED.
func toBookingResp(b model.Booking, now time.Time) bookingResp {
	return bookingResp{
		ID:                b.ID,
		RoomID:            b.RoomID,
		OrganizerID:       b.OrganizerID,
		Title:             b.Title,
		Description:       b.Description,
		StartTime:         b.StartTime,
		EndTime:           b.EndTime,
		Status:            b.EffectiveStatus(now),
		RecurrenceGroupID: b.RecurrenceGroupID,
		CancelledBy:       b.CancelledBy,
		CancelledAt:       b.CancelledAt,
		CancelReason:      b.CancelReason,
		AttendeeIDs:       b.AttendeeIDs,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}

func toBookingResps(bs []model.Booking, now time.Time) []bookingResp {
	out := make([]bookingResp, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBookingResp(b, now))
	}
	return out
}

type roomResp struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Capacity  uint32    `json:"capacity"`
	Location  *string   `json:"location,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toRoomResp(r model.Room) roomResp {
	return roomResp{
		ID:        r.ID,
		Name:      r.Name,
		Capacity:  r.Capacity,
		Location:  r.Location,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
