package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/room-reservation/internal/model"
	"github.com/iliyamo/room-reservation/internal/schedule"
)

// OverrideCancelReason is stamped on every booking cancelled by the
// administrative override procedure.
const OverrideCancelReason = "Cancelled by administrative override"

// Actor identifies the calling user and carries the single capability
// flag the service branches on.  Handlers derive CanOverride from the
// role claim; the service never inspects roles itself.
type Actor struct {
	ID          uint64
	CanOverride bool
}

// BookingService owns the booking lifecycle: creation of single and
// recurring bookings, updates, cancellation, deletion and the
// administrative override procedure.  All conflict decisions go
// through the same scanner so single and recurring validation behave
// identically.
type BookingService struct {
	store    Store
	users    UserDirectory
	notifier Notifier
	mailer   Mailer
	realtime RoomEventPublisher
	log      *zap.Logger
	now      func() time.Time
}

// NewBookingService wires the service's collaborators.  mailer and
// realtime may be nil, in which case those side effects are skipped.
func NewBookingService(store Store, users UserDirectory, notifier Notifier, mailer Mailer, realtime RoomEventPublisher, log *zap.Logger) *BookingService {
	if store == nil || users == nil || notifier == nil {
		panic("nil dependency passed to NewBookingService")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingService{
		store:    store,
		users:    users,
		notifier: notifier,
		mailer:   mailer,
		realtime: realtime,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateBookingInput carries the fields for a single booking request.
type CreateBookingInput struct {
	RoomID      uint64
	Title       string
	Description *string
	StartTime   time.Time
	EndTime     time.Time
	AttendeeIDs []uint64
}

// CreateRecurringInput carries the fields for a weekly recurring
// request.  StartTime and EndTime are the instants of the first
// desired occurrence; the weekday and wall-clock times are derived
// from them.  EndDate is the last calendar date considered.
type CreateRecurringInput struct {
	RoomID      uint64
	Title       string
	Description *string
	StartTime   time.Time
	EndTime     time.Time
	EndDate     time.Time
	AttendeeIDs []uint64
}

// UpdateBookingInput lists the mutable booking fields.  Nil pointers
// leave the current value unchanged; a nil AttendeeIDs slice keeps the
// existing attendee set.
type UpdateBookingInput struct {
	RoomID      *uint64
	Title       *string
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
	AttendeeIDs []uint64
}

// conflictSource is the read surface the scanner needs.  Both Store
// and Tx satisfy it, so availability queries and transactional
// validation share one code path.
type conflictSource interface {
	ListConfirmedOverlapping(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Booking, error)
}

// hasConflict is the conflict scanner.  Confirmed booking rows are the
// single source of truth: every recurring occurrence is materialized
// as its own row at creation time, so scanning confirmed rows covers
// single and recurring bookings alike, and a cancelled occurrence
// frees its slot immediately.  excludeBookingID skips one booking so
// an update does not collide with itself.
func (s *BookingService) hasConflict(ctx context.Context, src conflictSource, roomID uint64, start, end time.Time, excludeBookingID uint64) (bool, error) {
	existing, err := src.ListConfirmedOverlapping(ctx, roomID, start, end, excludeBookingID)
	if err != nil {
		return false, err
	}
	for _, b := range existing {
		if schedule.Overlaps(start, end, b.StartTime, b.EndTime) {
			return true, nil
		}
	}
	return false, nil
}

// CheckAvailability reports whether the room is free for the interval.
func (s *BookingService) CheckAvailability(ctx context.Context, roomID uint64, start, end time.Time) (bool, error) {
	if !end.After(start) {
		return false, validationf("end time must be after start time")
	}
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return false, err
	}
	conflict, err := s.hasConflict(ctx, s.store, roomID, start, end, 0)
	if err != nil {
		return false, err
	}
	return !conflict, nil
}

// CreateBooking validates and persists a single booking.  A conflict
// fails the request for regular actors; for admins the override
// procedure cancels the colliding bookings first.  The overridden
// bookings are returned alongside the created one.
func (s *BookingService) CreateBooking(ctx context.Context, actor Actor, in CreateBookingInput) (model.Booking, []model.Booking, error) {
	room, err := s.store.GetRoom(ctx, in.RoomID)
	if err != nil {
		return model.Booking{}, nil, err
	}
	attendees, err := validateBookingCore(room, in.Title, in.StartTime, in.EndTime, in.AttendeeIDs)
	if err != nil {
		return model.Booking{}, nil, err
	}

	var (
		created    model.Booking
		overridden []model.Booking
	)
	err = s.store.InRoomTx(ctx, in.RoomID, func(tx Tx) error {
		if actor.CanOverride {
			overridden, err = s.overrideConflicts(ctx, tx, in.RoomID, in.StartTime, in.EndTime, actor.ID)
			if err != nil {
				return err
			}
		} else {
			conflict, err := s.hasConflict(ctx, tx, in.RoomID, in.StartTime, in.EndTime, 0)
			if err != nil {
				return err
			}
			if conflict {
				return &ConflictError{RoomID: in.RoomID}
			}
		}
		b := model.Booking{
			RoomID:      in.RoomID,
			OrganizerID: actor.ID,
			Title:       in.Title,
			Description: in.Description,
			StartTime:   in.StartTime,
			EndTime:     in.EndTime,
			Status:      model.BookingConfirmed,
			AttendeeIDs: attendees,
		}
		if err := tx.InsertBooking(ctx, &b); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return model.Booking{}, nil, err
	}

	s.notifyCreated(ctx, actor, room, created, overridden)
	s.sendBookingMail(ctx, created.OrganizerID, "Booking confirmed: "+created.Title,
		fmt.Sprintf("Your booking of %s from %s to %s is confirmed.",
			room.Name, created.StartTime.Format(time.RFC3339), created.EndTime.Format(time.RFC3339)))
	s.publishRoomEvent(ctx, room.ID, "booking.created", created.ID, created.StartTime, created.EndTime)
	return created, overridden, nil
}

// CreateRecurring validates and persists a weekly recurring booking.
// Every occurrence is validated before anything is written, so a
// conflict on any occurrence aborts the whole request for regular
// actors with the exact colliding dates.  Admins instead override the
// conflicting bookings per occurrence and all occurrences are created.
func (s *BookingService) CreateRecurring(ctx context.Context, actor Actor, in CreateRecurringInput) (model.RecurrenceGroup, []model.Booking, []model.Booking, error) {
	room, err := s.store.GetRoom(ctx, in.RoomID)
	if err != nil {
		return model.RecurrenceGroup{}, nil, nil, err
	}
	attendees, err := validateBookingCore(room, in.Title, in.StartTime, in.EndTime, in.AttendeeIDs)
	if err != nil {
		return model.RecurrenceGroup{}, nil, nil, err
	}
	sy, sm, sd := in.StartTime.Date()
	ey, em, ed := in.EndTime.Date()
	if sy != ey || sm != em || sd != ed {
		return model.RecurrenceGroup{}, nil, nil, validationf("a recurring booking may not span multiple days")
	}
	// EndDate is a calendar date; compare it against the first
	// occurrence's date, not its instant, so a one-occurrence series
	// whose end date equals the start date is accepted.
	startDate := time.Date(sy, sm, sd, 0, 0, 0, 0, in.StartTime.Location())
	if in.EndDate.Before(startDate) {
		return model.RecurrenceGroup{}, nil, nil, validationf("end date must not precede the first occurrence")
	}

	weekday := in.StartTime.Weekday()
	baseStart := schedule.FormatTimeOfDay(in.StartTime)
	baseEnd := schedule.FormatTimeOfDay(in.EndTime)
	dates := schedule.ExpandWeekly(in.StartTime, in.EndDate, weekday)
	if len(dates) == 0 {
		return model.RecurrenceGroup{}, nil, nil, validationf("the date range contains no occurrences")
	}

	var (
		group       model.RecurrenceGroup
		occurrences []model.Booking
		overridden  []model.Booking
	)
	err = s.store.InRoomTx(ctx, in.RoomID, func(tx Tx) error {
		type span struct{ start, end time.Time }
		spans := make([]span, 0, len(dates))
		var conflictDates []string
		for _, date := range dates {
			occStart, err := schedule.CombineAt(date, baseStart)
			if err != nil {
				return err
			}
			occEnd, err := schedule.CombineAt(date, baseEnd)
			if err != nil {
				return err
			}
			if actor.CanOverride {
				cancelled, err := s.overrideConflicts(ctx, tx, in.RoomID, occStart, occEnd, actor.ID)
				if err != nil {
					return err
				}
				overridden = append(overridden, cancelled...)
			} else {
				conflict, err := s.hasConflict(ctx, tx, in.RoomID, occStart, occEnd, 0)
				if err != nil {
					return err
				}
				if conflict {
					conflictDates = append(conflictDates, date.Format("2006-01-02"))
				}
			}
			spans = append(spans, span{start: occStart, end: occEnd})
		}
		if len(conflictDates) > 0 {
			return &ConflictError{RoomID: in.RoomID, Dates: conflictDates}
		}

		g := model.RecurrenceGroup{
			CreatorID:     actor.ID,
			RoomID:        in.RoomID,
			Pattern:       model.PatternWeekly,
			Weekday:       int(weekday),
			StartDate:     dates[0],
			EndDate:       in.EndDate,
			BaseStartTime: baseStart,
			BaseEndTime:   baseEnd,
			Title:         in.Title,
			Description:   in.Description,
			IsActive:      true,
		}
		if err := tx.InsertGroup(ctx, &g); err != nil {
			return err
		}
		batch := make([]*model.Booking, 0, len(spans))
		for _, sp := range spans {
			gid := g.ID
			batch = append(batch, &model.Booking{
				RoomID:            in.RoomID,
				OrganizerID:       actor.ID,
				Title:             in.Title,
				Description:       in.Description,
				StartTime:         sp.start,
				EndTime:           sp.end,
				Status:            model.BookingConfirmed,
				RecurrenceGroupID: &gid,
				AttendeeIDs:       attendees,
			})
		}
		if err := tx.InsertBookings(ctx, batch); err != nil {
			return err
		}
		group = g
		for _, b := range batch {
			occurrences = append(occurrences, *b)
		}
		return nil
	})
	if err != nil {
		return model.RecurrenceGroup{}, nil, nil, err
	}

	s.notifyRecurringCreated(ctx, actor, room, group, occurrences, overridden)
	s.sendBookingMail(ctx, actor.ID, "Weekly booking confirmed: "+group.Title,
		fmt.Sprintf("Your weekly booking of %s (%d occurrences through %s) is confirmed.",
			room.Name, len(occurrences), group.EndDate.Format("2006-01-02")))
	s.publishRoomEvent(ctx, room.ID, "booking.recurring-created", group.ID, occurrences[0].StartTime, occurrences[len(occurrences)-1].EndTime)
	return group, occurrences, overridden, nil
}

// UpdateBooking applies field changes to an existing booking.  Only
// the organizer or an admin may update.  When the room or interval
// changes the scanner re-runs with the booking excluded; unlike
// creation there is no override path here, so a collision always
// fails the update.
func (s *BookingService) UpdateBooking(ctx context.Context, actor Actor, bookingID uint64, in UpdateBookingInput) (model.Booking, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if actor.ID != b.OrganizerID && !actor.CanOverride {
		return model.Booking{}, ErrUnauthorized
	}
	if b.Status != model.BookingConfirmed {
		return model.Booking{}, fmt.Errorf("%w: only confirmed bookings can be updated", ErrInvalidState)
	}

	updated := b
	timingChanged := false
	if in.RoomID != nil && *in.RoomID != b.RoomID {
		updated.RoomID = *in.RoomID
		timingChanged = true
	}
	if in.StartTime != nil && !in.StartTime.Equal(b.StartTime) {
		updated.StartTime = *in.StartTime
		timingChanged = true
	}
	if in.EndTime != nil && !in.EndTime.Equal(b.EndTime) {
		updated.EndTime = *in.EndTime
		timingChanged = true
	}
	if in.Title != nil {
		updated.Title = *in.Title
	}
	if in.Description != nil {
		updated.Description = in.Description
	}
	if in.AttendeeIDs != nil {
		updated.AttendeeIDs = in.AttendeeIDs
	}

	room, err := s.store.GetRoom(ctx, updated.RoomID)
	if err != nil {
		return model.Booking{}, err
	}
	attendees, err := validateBookingCore(room, updated.Title, updated.StartTime, updated.EndTime, updated.AttendeeIDs)
	if err != nil {
		return model.Booking{}, err
	}
	updated.AttendeeIDs = attendees

	err = s.store.InRoomTx(ctx, updated.RoomID, func(tx Tx) error {
		if timingChanged {
			conflict, err := s.hasConflict(ctx, tx, updated.RoomID, updated.StartTime, updated.EndTime, b.ID)
			if err != nil {
				return err
			}
			if conflict {
				return &ConflictError{RoomID: updated.RoomID}
			}
		}
		return tx.UpdateBooking(ctx, updated)
	})
	if err != nil {
		return model.Booking{}, err
	}

	s.notifyUpdated(ctx, room, updated)
	s.publishRoomEvent(ctx, room.ID, "booking.updated", updated.ID, updated.StartTime, updated.EndTime)
	return updated, nil
}

// CancelBooking transitions a confirmed booking to CANCELLED and
// records who cancelled it, when and why.  Only the organizer or an
// admin may cancel.  The status write bypasses field validation so an
// authorized cancellation always succeeds.
func (s *BookingService) CancelBooking(ctx context.Context, actor Actor, bookingID uint64, reason string) (model.Booking, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if actor.ID != b.OrganizerID && !actor.CanOverride {
		return model.Booking{}, ErrUnauthorized
	}
	if b.Status == model.BookingCancelled {
		return model.Booking{}, fmt.Errorf("%w: booking is already cancelled", ErrInvalidState)
	}

	now := s.now()
	err = s.store.InRoomTx(ctx, b.RoomID, func(tx Tx) error {
		return tx.MarkCancelled(ctx, b.ID, actor.ID, now, reason)
	})
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = model.BookingCancelled
	b.CancelledBy = &actor.ID
	b.CancelledAt = &now
	b.CancelReason = &reason

	s.notifyCancelled(ctx, actor, b)
	s.sendBookingMail(ctx, b.OrganizerID, "Booking cancelled: "+b.Title,
		fmt.Sprintf("Your booking from %s to %s was cancelled. Reason: %s",
			b.StartTime.Format(time.RFC3339), b.EndTime.Format(time.RFC3339), reason))
	s.publishRoomEvent(ctx, b.RoomID, "booking.cancelled", b.ID, b.StartTime, b.EndTime)
	return b, nil
}

// CancelSeries cancels a whole recurring series: every confirmed
// occurrence that has not started yet is cancelled and the group is
// deactivated so no new occurrences derive from it.  Occurrences that
// already ran, and ones cancelled individually before, are untouched.
// Only the creator or an admin may cancel a series.
func (s *BookingService) CancelSeries(ctx context.Context, actor Actor, groupID uint64, reason string) (model.RecurrenceGroup, []model.Booking, error) {
	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return model.RecurrenceGroup{}, nil, err
	}
	if actor.ID != g.CreatorID && !actor.CanOverride {
		return model.RecurrenceGroup{}, nil, ErrUnauthorized
	}
	if !g.IsActive {
		return model.RecurrenceGroup{}, nil, fmt.Errorf("%w: series is already cancelled", ErrInvalidState)
	}

	now := s.now()
	var cancelled []model.Booking
	err = s.store.InRoomTx(ctx, g.RoomID, func(tx Tx) error {
		upcoming, err := tx.ListConfirmedByGroup(ctx, g.ID, now)
		if err != nil {
			return err
		}
		for _, b := range upcoming {
			if err := tx.MarkCancelled(ctx, b.ID, actor.ID, now, reason); err != nil {
				return err
			}
			b.Status = model.BookingCancelled
			b.CancelledBy = &actor.ID
			b.CancelledAt = &now
			b.CancelReason = &reason
			cancelled = append(cancelled, b)
		}
		return tx.DeactivateGroup(ctx, g.ID)
	})
	if err != nil {
		return model.RecurrenceGroup{}, nil, err
	}
	g.IsActive = false

	s.notifySeriesCancelled(ctx, actor, g, cancelled)
	s.sendBookingMail(ctx, g.CreatorID, "Weekly booking cancelled: "+g.Title,
		fmt.Sprintf("Your weekly booking was cancelled (%d upcoming occurrences released). Reason: %s",
			len(cancelled), reason))
	s.publishRoomEvent(ctx, g.RoomID, "booking.series-cancelled", g.ID, g.StartDate, g.EndDate)
	return g, cancelled, nil
}

// DeleteBooking physically removes a booking.  Admin only, and only
// for bookings that are already cancelled or whose end time has
// passed; anything else is an active reservation and must be
// cancelled first.
func (s *BookingService) DeleteBooking(ctx context.Context, actor Actor, bookingID uint64) error {
	if !actor.CanOverride {
		return ErrUnauthorized
	}
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.Status != model.BookingCancelled && !b.IsPast(s.now()) {
		return fmt.Errorf("%w: only cancelled or past bookings can be deleted", ErrInvalidState)
	}
	return s.store.DeleteBooking(ctx, bookingID)
}

// overrideConflicts is the conflict resolution procedure.  It cancels
// every confirmed booking on the room overlapping the candidate
// interval, stamping the acting admin and the standard override
// reason, and returns the cancelled bookings.  Bookings outside the
// interval are never touched, and a second run with no new conflicts
// cancels nothing.
func (s *BookingService) overrideConflicts(ctx context.Context, tx Tx, roomID uint64, start, end time.Time, actorID uint64) ([]model.Booking, error) {
	existing, err := tx.ListConfirmedOverlapping(ctx, roomID, start, end, 0)
	if err != nil {
		return nil, err
	}
	now := s.now()
	reason := OverrideCancelReason
	var cancelled []model.Booking
	for _, b := range existing {
		if !schedule.Overlaps(start, end, b.StartTime, b.EndTime) {
			continue
		}
		if err := tx.MarkCancelled(ctx, b.ID, actorID, now, reason); err != nil {
			return nil, err
		}
		b.Status = model.BookingCancelled
		b.CancelledBy = &actorID
		b.CancelledAt = &now
		b.CancelReason = &reason
		cancelled = append(cancelled, b)
	}
	return cancelled, nil
}

// validateBookingCore applies the field validation shared by create
// and update: non-empty title, positive interval, an active room and
// an attendee count between one and the room capacity.  Attendee IDs
// are deduplicated while preserving order.
func validateBookingCore(room model.Room, title string, start, end time.Time, attendeeIDs []uint64) ([]uint64, error) {
	if title == "" {
		return nil, validationf("title is required")
	}
	if !end.After(start) {
		return nil, validationf("end time must be after start time")
	}
	if !room.IsActive {
		return nil, validationf("room %q is not active", room.Name)
	}
	unique := make([]uint64, 0, len(attendeeIDs))
	seen := make(map[uint64]struct{}, len(attendeeIDs))
	for _, id := range attendeeIDs {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return nil, validationf("at least one attendee is required")
	}
	if uint32(len(unique)) > room.Capacity {
		return nil, validationf("attendee count %d exceeds room capacity %d", len(unique), room.Capacity)
	}
	return unique, nil
}
