package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/room-reservation/internal/model"
)

// RoomEvent is the payload pushed to real-time subscribers of a room.
// EventID gives consumers an idempotency key.
type RoomEvent struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	RoomID    uint64    `json:"room_id"`
	SubjectID uint64    `json:"subject_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	EmittedAt time.Time `json:"emitted_at"`
}

// notifyCreated assembles the notification batch for a successful
// single-booking creation: organizer confirmation, an audit alert to
// admins for non-privileged creations, one notification per attendee
// and an override notice to each organizer whose booking was cancelled.
func (s *BookingService) notifyCreated(ctx context.Context, actor Actor, room model.Room, b model.Booking, overridden []model.Booking) {
	span := fmt.Sprintf("%s – %s", b.StartTime.Format(time.RFC3339), b.EndTime.Format(time.RFC3339))
	batch := []model.Notification{{
		UserID:    b.OrganizerID,
		Kind:      model.NotifyBookingCreated,
		Title:     "Booking confirmed",
		Message:   fmt.Sprintf("%s in %s, %s", b.Title, room.Name, span),
		BookingID: &b.ID,
		RoomID:    &room.ID,
	}}
	if !actor.CanOverride {
		batch = append(batch, s.adminAlerts(ctx, actor,
			fmt.Sprintf("New booking of %s by user %d, %s", room.Name, actor.ID, span), &b.ID, &room.ID)...)
	}
	for _, att := range b.AttendeeIDs {
		if att == b.OrganizerID {
			continue
		}
		batch = append(batch, model.Notification{
			UserID:    att,
			Kind:      model.NotifyMeetingScheduled,
			Title:     "You were added to a meeting",
			Message:   fmt.Sprintf("%s in %s, %s", b.Title, room.Name, span),
			BookingID: &b.ID,
			RoomID:    &room.ID,
		})
	}
	batch = append(batch, overrideNotices(room.ID, overridden)...)
	s.notifier.NotifyAll(ctx, batch)
}

// notifyRecurringCreated mirrors notifyCreated for recurring requests:
// one summary for the organizer, one audit alert for non-privileged
// creations and a per-occurrence notification for every attendee.
func (s *BookingService) notifyRecurringCreated(ctx context.Context, actor Actor, room model.Room, g model.RecurrenceGroup, occurrences, overridden []model.Booking) {
	batch := []model.Notification{{
		UserID:  g.CreatorID,
		Kind:    model.NotifyMeetingScheduled,
		Title:   "Weekly booking confirmed",
		Message: fmt.Sprintf("%s in %s, %d occurrences through %s", g.Title, room.Name, len(occurrences), g.EndDate.Format("2006-01-02")),
		RoomID:  &room.ID,
	}}
	if !actor.CanOverride {
		batch = append(batch, s.adminAlerts(ctx, actor,
			fmt.Sprintf("New weekly booking of %s by user %d (%d occurrences)", room.Name, actor.ID, len(occurrences)), nil, &room.ID)...)
	}
	for _, occ := range occurrences {
		occ := occ
		for _, att := range occ.AttendeeIDs {
			if att == occ.OrganizerID {
				continue
			}
			batch = append(batch, model.Notification{
				UserID:    att,
				Kind:      model.NotifyMeetingScheduled,
				Title:     "You were added to a meeting",
				Message:   fmt.Sprintf("%s in %s on %s", occ.Title, room.Name, occ.StartTime.Format("2006-01-02 15:04")),
				BookingID: &occ.ID,
				RoomID:    &room.ID,
			})
		}
	}
	batch = append(batch, overrideNotices(room.ID, overridden)...)
	s.notifier.NotifyAll(ctx, batch)
}

func (s *BookingService) notifyUpdated(ctx context.Context, room model.Room, b model.Booking) {
	span := fmt.Sprintf("%s – %s", b.StartTime.Format(time.RFC3339), b.EndTime.Format(time.RFC3339))
	batch := []model.Notification{{
		UserID:    b.OrganizerID,
		Kind:      model.NotifyBookingUpdated,
		Title:     "Booking updated",
		Message:   fmt.Sprintf("%s in %s, now %s", b.Title, room.Name, span),
		BookingID: &b.ID,
		RoomID:    &room.ID,
	}}
	for _, att := range b.AttendeeIDs {
		if att == b.OrganizerID {
			continue
		}
		batch = append(batch, model.Notification{
			UserID:    att,
			Kind:      model.NotifyBookingUpdated,
			Title:     "Meeting updated",
			Message:   fmt.Sprintf("%s in %s, now %s", b.Title, room.Name, span),
			BookingID: &b.ID,
			RoomID:    &room.ID,
		})
	}
	s.notifier.NotifyAll(ctx, batch)
}

func (s *BookingService) notifyCancelled(ctx context.Context, actor Actor, b model.Booking) {
	reason := ""
	if b.CancelReason != nil {
		reason = *b.CancelReason
	}
	organizerKind := model.NotifyBookingCancelled
	organizerTitle := "Booking cancelled"
	if actor.CanOverride && actor.ID != b.OrganizerID {
		organizerKind = model.NotifyAdminOverride
		organizerTitle = "Booking cancelled by an administrator"
	}
	batch := []model.Notification{{
		UserID:    b.OrganizerID,
		Kind:      organizerKind,
		Title:     organizerTitle,
		Message:   fmt.Sprintf("%s (%s – %s). Reason: %s", b.Title, b.StartTime.Format(time.RFC3339), b.EndTime.Format(time.RFC3339), reason),
		BookingID: &b.ID,
		RoomID:    &b.RoomID,
	}}
	for _, att := range b.AttendeeIDs {
		if att == b.OrganizerID {
			continue
		}
		batch = append(batch, model.Notification{
			UserID:    att,
			Kind:      model.NotifyBookingCancelled,
			Title:     "Meeting cancelled",
			Message:   fmt.Sprintf("%s (%s – %s)", b.Title, b.StartTime.Format(time.RFC3339), b.EndTime.Format(time.RFC3339)),
			BookingID: &b.ID,
			RoomID:    &b.RoomID,
		})
	}
	s.notifier.NotifyAll(ctx, batch)
}

// notifySeriesCancelled tells the creator the series is gone and each
// attendee of a released occurrence that their meeting was cancelled.
func (s *BookingService) notifySeriesCancelled(ctx context.Context, actor Actor, g model.RecurrenceGroup, cancelled []model.Booking) {
	creatorKind := model.NotifyBookingCancelled
	creatorTitle := "Weekly booking cancelled"
	if actor.CanOverride && actor.ID != g.CreatorID {
		creatorKind = model.NotifyAdminOverride
		creatorTitle = "Weekly booking cancelled by an administrator"
	}
	batch := []model.Notification{{
		UserID:  g.CreatorID,
		Kind:    creatorKind,
		Title:   creatorTitle,
		Message: fmt.Sprintf("%s: %d upcoming occurrences released", g.Title, len(cancelled)),
		RoomID:  &g.RoomID,
	}}
	for _, occ := range cancelled {
		occ := occ
		for _, att := range occ.AttendeeIDs {
			if att == occ.OrganizerID {
				continue
			}
			batch = append(batch, model.Notification{
				UserID:    att,
				Kind:      model.NotifyBookingCancelled,
				Title:     "Meeting cancelled",
				Message:   fmt.Sprintf("%s on %s", occ.Title, occ.StartTime.Format("2006-01-02 15:04")),
				BookingID: &occ.ID,
				RoomID:    &occ.RoomID,
			})
		}
	}
	s.notifier.NotifyAll(ctx, batch)
}

// adminAlerts builds one user-action-alert per admin, skipping the
// acting user if they happen to be an admin themselves.  A directory
// failure only costs the audit trail, so it is logged and swallowed.
func (s *BookingService) adminAlerts(ctx context.Context, actor Actor, message string, bookingID, roomID *uint64) []model.Notification {
	adminIDs, err := s.users.ListAdminIDs(ctx)
	if err != nil {
		s.log.Warn("listing admins for audit notification failed", zap.Error(err))
		return nil
	}
	var out []model.Notification
	for _, id := range adminIDs {
		if id == actor.ID {
			continue
		}
		out = append(out, model.Notification{
			UserID:    id,
			Kind:      model.NotifyUserActionAlert,
			Title:     "Booking activity",
			Message:   message,
			BookingID: bookingID,
			RoomID:    roomID,
		})
	}
	return out
}

// overrideNotices tells each displaced organizer their booking was
// cancelled by an administrative override.
func overrideNotices(roomID uint64, overridden []model.Booking) []model.Notification {
	var out []model.Notification
	for _, ob := range overridden {
		ob := ob
		out = append(out, model.Notification{
			UserID:    ob.OrganizerID,
			Kind:      model.NotifyAdminOverride,
			Title:     "Your booking was overridden",
			Message:   fmt.Sprintf("%s (%s – %s) was cancelled by an administrator to resolve a conflict", ob.Title, ob.StartTime.Format(time.RFC3339), ob.EndTime.Format(time.RFC3339)),
			BookingID: &ob.ID,
			RoomID:    &roomID,
		})
	}
	return out
}

// sendBookingMail delivers a best-effort email to the user.  The send
// runs detached from the request so a slow or failing SMTP server can
// never block or fail the operation; errors are only logged.
func (s *BookingService) sendBookingMail(ctx context.Context, userID uint64, subject, body string) {
	if s.mailer == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		u, err := s.users.GetByID(detached, userID)
		if err != nil {
			s.log.Warn("booking mail skipped: user lookup failed", zap.Uint64("user_id", userID), zap.Error(err))
			return
		}
		if err := s.mailer.Send(detached, u.Email, subject, body); err != nil {
			s.log.Warn("booking mail failed", zap.String("to", u.Email), zap.Error(err))
		}
	}()
}

// publishRoomEvent pushes a best-effort real-time event for the room.
func (s *BookingService) publishRoomEvent(ctx context.Context, roomID uint64, eventType string, subjectID uint64, start, end time.Time) {
	if s.realtime == nil {
		return
	}
	ev := RoomEvent{
		EventID:   uuid.NewString(),
		Type:      eventType,
		RoomID:    roomID,
		SubjectID: subjectID,
		StartTime: start,
		EndTime:   end,
		EmittedAt: s.now(),
	}
	if err := s.realtime.PublishRoomEvent(ctx, roomID, ev); err != nil {
		s.log.Warn("room event publish failed", zap.Uint64("room_id", roomID), zap.String("type", eventType), zap.Error(err))
	}
}
