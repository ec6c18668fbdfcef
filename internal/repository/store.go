package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/room-reservation/internal/model"
	"github.com/iliyamo/room-reservation/internal/service"
)

// Store adapts the MySQL repositories to the booking service's
// persistence interface. Its InRoomTx method is where the conflict
// race is closed: every scan-then-write sequence runs inside a
// transaction that first takes a row lock on the room, so concurrent
// writers targeting the same room are serialized by InnoDB while
// writers on other rooms proceed in parallel.
type Store struct {
	db          *sql.DB
	bookings    *BookingRepo
	recurrences *RecurrenceRepo
	rooms       *RoomRepo
}

// NewStore wires a Store over the shared repositories.
func NewStore(db *sql.DB, bookings *BookingRepo, recurrences *RecurrenceRepo, rooms *RoomRepo) *Store {
	if db == nil || bookings == nil || recurrences == nil || rooms == nil {
		panic("nil dependency passed to NewStore")
	}
	return &Store{db: db, bookings: bookings, recurrences: recurrences, rooms: rooms}
}

// InRoomTx opens a transaction, locks the room row and runs fn. The
// lock holds until commit or rollback, which serializes the scan and
// the subsequent write against concurrent bookings of the same room.
func (s *Store) InRoomTx(ctx context.Context, roomID uint64, fn func(tx service.Tx) error) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = dbtx.Rollback()
		}
	}()

	var locked uint64
	err = dbtx.QueryRowContext(ctx, `SELECT id FROM rooms WHERE id = ? FOR UPDATE`, roomID).Scan(&locked)
	if err == sql.ErrNoRows {
		return fmt.Errorf("room %d: %w", roomID, service.ErrNotFound)
	}
	if err != nil {
		return err
	}

	if err := fn(&storeTx{tx: dbtx, bookings: s.bookings, recurrences: s.recurrences}); err != nil {
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetRoom loads a room, mapping a missing row to service.ErrNotFound.
func (s *Store) GetRoom(ctx context.Context, id uint64) (model.Room, error) {
	rm, err := s.rooms.GetByID(ctx, id)
	if errors.Is(err, ErrRoomNotFound) {
		return model.Room{}, fmt.Errorf("room %d: %w", id, service.ErrNotFound)
	}
	return rm, err
}

// GetBooking loads a booking, mapping a missing row to service.ErrNotFound.
func (s *Store) GetBooking(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if errors.Is(err, ErrBookingNotFound) {
		return model.Booking{}, fmt.Errorf("booking %d: %w", id, service.ErrNotFound)
	}
	return b, err
}

// GetGroup loads a recurrence group, mapping a missing row to
// service.ErrNotFound.
func (s *Store) GetGroup(ctx context.Context, id uint64) (model.RecurrenceGroup, error) {
	g, err := s.recurrences.GetByID(ctx, id)
	if errors.Is(err, ErrGroupNotFound) {
		return model.RecurrenceGroup{}, fmt.Errorf("recurrence group %d: %w", id, service.ErrNotFound)
	}
	return g, err
}

// DeleteBooking physically removes a booking.
func (s *Store) DeleteBooking(ctx context.Context, id uint64) error {
	err := s.bookings.Delete(ctx, id)
	if errors.Is(err, ErrBookingNotFound) {
		return fmt.Errorf("booking %d: %w", id, service.ErrNotFound)
	}
	return err
}

// ListConfirmedOverlapping serves read-only availability queries.
func (s *Store) ListConfirmedOverlapping(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Booking, error) {
	return s.bookings.ListConfirmedOverlapping(ctx, roomID, start, end, excludeID)
}

// storeTx is the transactional view handed to InRoomTx closures.
type storeTx struct {
	tx          *sql.Tx
	bookings    *BookingRepo
	recurrences *RecurrenceRepo
}

func (t *storeTx) ListConfirmedOverlapping(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Booking, error) {
	return t.bookings.ListConfirmedOverlappingTx(ctx, t.tx, roomID, start, end, excludeID)
}

func (t *storeTx) ListConfirmedByGroup(ctx context.Context, groupID uint64, from time.Time) ([]model.Booking, error) {
	return t.bookings.ListConfirmedByGroupTx(ctx, t.tx, groupID, from)
}

func (t *storeTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	return t.bookings.CreateTx(ctx, t.tx, b)
}

func (t *storeTx) InsertBookings(ctx context.Context, bs []*model.Booking) error {
	return t.bookings.CreateBulkTx(ctx, t.tx, bs)
}

func (t *storeTx) InsertGroup(ctx context.Context, g *model.RecurrenceGroup) error {
	return t.recurrences.CreateTx(ctx, t.tx, g)
}

func (t *storeTx) UpdateBooking(ctx context.Context, b model.Booking) error {
	return t.bookings.UpdateTx(ctx, t.tx, b)
}

func (t *storeTx) MarkCancelled(ctx context.Context, bookingID, cancelledBy uint64, at time.Time, reason string) error {
	return t.bookings.MarkCancelledTx(ctx, t.tx, bookingID, cancelledBy, at, reason)
}

func (t *storeTx) DeactivateGroup(ctx context.Context, groupID uint64) error {
	return t.recurrences.DeactivateTx(ctx, t.tx, groupID)
}
