package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/room-reservation/internal/model"
)

// BookingRepo provides CRUD operations for bookings and their
// attendee sets. Attendees are stored in the booking_attendees table,
// one row per user, and loaded in bulk when listing. All timestamps
// are stored in UTC. Methods suffixed Tx operate within a caller
// supplied transaction; the caller commits or rolls back.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingColumns = `id, room_id, organizer_id, title, description, start_time, end_time,
	status, recurrence_group_id, cancelled_by, cancelled_at, cancel_reason, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var (
		b            model.Booking
		description  sql.NullString
		groupID      sql.NullInt64
		cancelledBy  sql.NullInt64
		cancelledAt  sql.NullTime
		cancelReason sql.NullString
	)
	err := row.Scan(&b.ID, &b.RoomID, &b.OrganizerID, &b.Title, &description, &b.StartTime, &b.EndTime,
		&b.Status, &groupID, &cancelledBy, &cancelledAt, &cancelReason, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	if description.Valid {
		d := description.String
		b.Description = &d
	}
	if groupID.Valid {
		g := uint64(groupID.Int64)
		b.RecurrenceGroupID = &g
	}
	if cancelledBy.Valid {
		c := uint64(cancelledBy.Int64)
		b.CancelledBy = &c
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	if cancelReason.Valid {
		rs := cancelReason.String
		b.CancelReason = &rs
	}
	return b, nil
}

// querier abstracts *sql.DB and *sql.Tx so list helpers can serve
// both transactional and plain reads.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// GetByID returns a booking with its attendee IDs, or
// ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return model.Booking{}, ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	attendees, err := r.loadAttendees(ctx, r.db, []uint64{b.ID})
	if err != nil {
		return model.Booking{}, err
	}
	b.AttendeeIDs = attendees[b.ID]
	return b, nil
}

// ListByOrganizer returns the user's bookings newest first.
func (r *BookingRepo) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Booking, error) {
	return r.list(ctx, r.db,
		`SELECT `+bookingColumns+` FROM bookings WHERE organizer_id = ? ORDER BY start_time DESC`,
		organizerID)
}

// ListByRoom returns every booking on a room ordered by start time.
func (r *BookingRepo) ListByRoom(ctx context.Context, roomID uint64) ([]model.Booking, error) {
	return r.list(ctx, r.db,
		`SELECT `+bookingColumns+` FROM bookings WHERE room_id = ? ORDER BY start_time`,
		roomID)
}

// ListConfirmedOverlapping returns confirmed bookings on the room
// whose interval intersects [start, end), excluding excludeID when
// non-zero. The half-open comparison matches the scanner's overlap
// predicate, so touching intervals are not returned.
func (r *BookingRepo) ListConfirmedOverlapping(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Booking, error) {
	return r.listConfirmedOverlapping(ctx, r.db, roomID, start, end, excludeID)
}

// ListConfirmedOverlappingTx is the transactional variant used inside
// the per-room serialization section.
func (r *BookingRepo) ListConfirmedOverlappingTx(ctx context.Context, tx *sql.Tx, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Booking, error) {
	return r.listConfirmedOverlapping(ctx, tx, roomID, start, end, excludeID)
}

// ListConfirmedByGroupTx returns the confirmed occurrences of a
// recurrence group that start at or after the given instant, used by
// series cancellation inside the per-room serialization section.
func (r *BookingRepo) ListConfirmedByGroupTx(ctx context.Context, tx *sql.Tx, groupID uint64, from time.Time) ([]model.Booking, error) {
	return r.list(ctx, tx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE recurrence_group_id = ? AND status = ? AND start_time >= ?
		 ORDER BY start_time`,
		groupID, model.BookingConfirmed, from)
}

func (r *BookingRepo) listConfirmedOverlapping(ctx context.Context, q querier, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Booking, error) {
	return r.list(ctx, q,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE room_id = ? AND status = ? AND id <> ? AND start_time < ? AND end_time > ?
		 ORDER BY start_time`,
		roomID, model.BookingConfirmed, excludeID, end, start)
}

func (r *BookingRepo) list(ctx context.Context, q querier, query string, args ...any) ([]model.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	var ids []uint64
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	attendees, err := r.loadAttendees(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].AttendeeIDs = attendees[out[i].ID]
	}
	return out, nil
}

// loadAttendees fetches attendee IDs for the given bookings in a
// single query and groups them by booking.
func (r *BookingRepo) loadAttendees(ctx context.Context, q querier, bookingIDs []uint64) (map[uint64][]uint64, error) {
	placeholders := make([]string, 0, len(bookingIDs))
	args := make([]any, 0, len(bookingIDs))
	for _, id := range bookingIDs {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	query := `SELECT booking_id, user_id FROM booking_attendees
	          WHERE booking_id IN (` + strings.Join(placeholders, ",") + `)
	          ORDER BY booking_id, id`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]uint64, len(bookingIDs))
	for rows.Next() {
		var bid, uid uint64
		if err := rows.Scan(&bid, &uid); err != nil {
			return nil, err
		}
		out[bid] = append(out[bid], uid)
	}
	return out, rows.Err()
}

// CreateTx inserts a booking and its attendee rows within the given
// transaction, populating the generated ID and timestamps.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings
		(room_id, organizer_id, title, description, start_time, end_time, status, recurrence_group_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		b.RoomID, b.OrganizerID, b.Title, b.Description, b.StartTime, b.EndTime, b.Status, b.RecurrenceGroupID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	if err := r.createAttendeesTx(ctx, tx, b.ID, b.AttendeeIDs); err != nil {
		return err
	}
	const sel = `SELECT created_at, updated_at FROM bookings WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// CreateBulkTx inserts several bookings in one transaction. Used for
// recurring occurrences so that either every occurrence is written or
// none are.
func (r *BookingRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, bs []*model.Booking) error {
	for _, b := range bs {
		if err := r.CreateTx(ctx, tx, b); err != nil {
			return err
		}
	}
	return nil
}

// createAttendeesTx bulk-inserts attendee rows for a booking in a
// single statement. An empty slice has no effect.
func (r *BookingRepo) createAttendeesTx(ctx context.Context, tx *sql.Tx, bookingID uint64, attendeeIDs []uint64) error {
	if len(attendeeIDs) == 0 {
		return nil
	}
	query := `INSERT INTO booking_attendees (booking_id, user_id) VALUES `
	args := make([]any, 0, len(attendeeIDs)*2)
	for i, uid := range attendeeIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, bookingID, uid)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// UpdateTx rewrites the mutable booking columns and replaces the
// attendee set.
func (r *BookingRepo) UpdateTx(ctx context.Context, tx *sql.Tx, b model.Booking) error {
	const q = `UPDATE bookings SET room_id = ?, title = ?, description = ?, start_time = ?, end_time = ?
	           WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, b.RoomID, b.Title, b.Description, b.StartTime, b.EndTime, b.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM booking_attendees WHERE booking_id = ?`, b.ID); err != nil {
		return err
	}
	return r.createAttendeesTx(ctx, tx, b.ID, b.AttendeeIDs)
}

// MarkCancelledTx flips a confirmed booking to CANCELLED and stamps
// the canceller, instant and reason. Only the status columns are
// touched, so the write succeeds regardless of the other fields.
// Already-cancelled rows are left untouched, which keeps the override
// procedure idempotent.
func (r *BookingRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, bookingID, cancelledBy uint64, at time.Time, reason string) error {
	const q = `UPDATE bookings SET status = ?, cancelled_by = ?, cancelled_at = ?, cancel_reason = ?
	           WHERE id = ? AND status = ?`
	_, err := tx.ExecContext(ctx, q,
		model.BookingCancelled, cancelledBy, at, reason, bookingID, model.BookingConfirmed)
	return err
}

// Delete physically removes a booking and its attendee rows.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM booking_attendees WHERE booking_id = ?`, id); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}
