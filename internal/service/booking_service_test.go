package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/room-reservation/internal/model"
	"github.com/iliyamo/room-reservation/internal/service"
)

// ----- in-memory fakes -----

// memStore mimics the MySQL store: InRoomTx serializes writers with a
// mutex the way the row lock does, and a failed closure rolls state
// back to a snapshot.
type memStore struct {
	mu            sync.Mutex
	rooms         map[uint64]model.Room
	bookings      map[uint64]model.Booking
	groups        map[uint64]model.RecurrenceGroup
	nextBookingID uint64
	nextGroupID   uint64
}

func newMemStore() *memStore {
	return &memStore{
		rooms:         make(map[uint64]model.Room),
		bookings:      make(map[uint64]model.Booking),
		groups:        make(map[uint64]model.RecurrenceGroup),
		nextBookingID: 1,
		nextGroupID:   1,
	}
}

func (m *memStore) addRoom(r model.Room) { m.rooms[r.ID] = r }

func (m *memStore) InRoomTx(ctx context.Context, roomID uint64, fn func(tx service.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[roomID]; !ok {
		return fmt.Errorf("room %d: %w", roomID, service.ErrNotFound)
	}
	snapBookings := make(map[uint64]model.Booking, len(m.bookings))
	for k, v := range m.bookings {
		snapBookings[k] = v
	}
	snapGroups := make(map[uint64]model.RecurrenceGroup, len(m.groups))
	for k, v := range m.groups {
		snapGroups[k] = v
	}
	snapNextBooking, snapNextGroup := m.nextBookingID, m.nextGroupID

	if err := fn(&memTx{s: m}); err != nil {
		m.bookings, m.groups = snapBookings, snapGroups
		m.nextBookingID, m.nextGroupID = snapNextBooking, snapNextGroup
		return err
	}
	return nil
}

func (m *memStore) GetRoom(ctx context.Context, id uint64) (model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return model.Room{}, fmt.Errorf("room %d: %w", id, service.ErrNotFound)
	}
	return r, nil
}

func (m *memStore) GetBooking(ctx context.Context, id uint64) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return model.Booking{}, fmt.Errorf("booking %d: %w", id, service.ErrNotFound)
	}
	return b, nil
}

func (m *memStore) DeleteBooking(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok {
		return fmt.Errorf("booking %d: %w", id, service.ErrNotFound)
	}
	delete(m.bookings, id)
	return nil
}

func (m *memStore) GetGroup(ctx context.Context, id uint64) (model.RecurrenceGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return model.RecurrenceGroup{}, fmt.Errorf("recurrence group %d: %w", id, service.ErrNotFound)
	}
	return g, nil
}

func (m *memStore) ListConfirmedOverlapping(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (&memTx{s: m}).listConfirmedOverlappingLocked(roomID, start, end, excludeID), nil
}

// memTx operates on the store while InRoomTx holds the lock.
type memTx struct{ s *memStore }

func (t *memTx) listConfirmedOverlappingLocked(roomID uint64, start, end time.Time, excludeID uint64) []model.Booking {
	var out []model.Booking
	for _, b := range t.s.bookings {
		if b.RoomID != roomID || b.Status != model.BookingConfirmed || b.ID == excludeID {
			continue
		}
		if start.Before(b.EndTime) && b.StartTime.Before(end) {
			out = append(out, b)
		}
	}
	return out
}

func (t *memTx) ListConfirmedOverlapping(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Booking, error) {
	return t.listConfirmedOverlappingLocked(roomID, start, end, excludeID), nil
}

func (t *memTx) ListConfirmedByGroup(ctx context.Context, groupID uint64, from time.Time) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range t.s.bookings {
		if b.RecurrenceGroupID == nil || *b.RecurrenceGroupID != groupID {
			continue
		}
		if b.Status == model.BookingConfirmed && !b.StartTime.Before(from) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (t *memTx) DeactivateGroup(ctx context.Context, groupID uint64) error {
	g, ok := t.s.groups[groupID]
	if !ok {
		return fmt.Errorf("recurrence group %d: %w", groupID, service.ErrNotFound)
	}
	g.IsActive = false
	t.s.groups[groupID] = g
	return nil
}

func (t *memTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	b.ID = t.s.nextBookingID
	t.s.nextBookingID++
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	t.s.bookings[b.ID] = *b
	return nil
}

func (t *memTx) InsertBookings(ctx context.Context, bs []*model.Booking) error {
	for _, b := range bs {
		if err := t.InsertBooking(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func (t *memTx) InsertGroup(ctx context.Context, g *model.RecurrenceGroup) error {
	g.ID = t.s.nextGroupID
	t.s.nextGroupID++
	g.CreatedAt = time.Now().UTC()
	t.s.groups[g.ID] = *g
	return nil
}

func (t *memTx) UpdateBooking(ctx context.Context, b model.Booking) error {
	if _, ok := t.s.bookings[b.ID]; !ok {
		return fmt.Errorf("booking %d: %w", b.ID, service.ErrNotFound)
	}
	b.UpdatedAt = time.Now().UTC()
	t.s.bookings[b.ID] = b
	return nil
}

func (t *memTx) MarkCancelled(ctx context.Context, bookingID, cancelledBy uint64, at time.Time, reason string) error {
	b, ok := t.s.bookings[bookingID]
	if !ok || b.Status != model.BookingConfirmed {
		// matches the SQL UPDATE ... WHERE status = 'CONFIRMED'
		return nil
	}
	b.Status = model.BookingCancelled
	b.CancelledBy = &cancelledBy
	b.CancelledAt = &at
	b.CancelReason = &reason
	t.s.bookings[bookingID] = b
	return nil
}

type memUsers struct {
	users  map[uint64]model.User
	admins []uint64
}

func (m *memUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user %d not found", id)
	}
	return u, nil
}

func (m *memUsers) ListAdminIDs(ctx context.Context) ([]uint64, error) { return m.admins, nil }

type memNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (m *memNotifier) NotifyAll(ctx context.Context, batch []model.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, batch...)
}

func (m *memNotifier) byKind(kind string) []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.sent {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// ----- fixture -----

const (
	roomA   uint64 = 1
	roomB   uint64 = 2
	alice   uint64 = 10 // member
	bob     uint64 = 11 // member
	rootAdm uint64 = 99 // admin
)

var (
	memberAlice = service.Actor{ID: alice}
	memberBob   = service.Actor{ID: bob}
	admin       = service.Actor{ID: rootAdm, CanOverride: true}
)

type fixture struct {
	svc      *service.BookingService
	store    *memStore
	notifier *memNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	store.addRoom(model.Room{ID: roomA, Name: "Atrium", Capacity: 8, IsActive: true})
	store.addRoom(model.Room{ID: roomB, Name: "Basement", Capacity: 2, IsActive: true})
	users := &memUsers{
		users: map[uint64]model.User{
			alice:   {ID: alice, Email: "alice@example.com", FullName: "Alice", Role: model.RoleMember},
			bob:     {ID: bob, Email: "bob@example.com", FullName: "Bob", Role: model.RoleMember},
			rootAdm: {ID: rootAdm, Email: "admin@example.com", FullName: "Admin", Role: model.RoleAdmin},
		},
		admins: []uint64{rootAdm},
	}
	notifier := &memNotifier{}
	svc := service.NewBookingService(store, users, notifier, nil, nil, nil)
	return &fixture{svc: svc, store: store, notifier: notifier}
}

// at returns a UTC instant on 2026-09-07 (a Monday) plus day and hour offsets.
func at(days, hour int) time.Time {
	return time.Date(2026, 9, 7+days, hour, 0, 0, 0, time.UTC)
}

func (f *fixture) mustCreate(t *testing.T, actor service.Actor, roomID uint64, start, end time.Time) model.Booking {
	t.Helper()
	b, _, err := f.svc.CreateBooking(context.Background(), actor, service.CreateBookingInput{
		RoomID:      roomID,
		Title:       "standup",
		StartTime:   start,
		EndTime:     end,
		AttendeeIDs: []uint64{actor.ID},
	})
	require.NoError(t, err)
	return b
}

// ----- single booking -----

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   service.CreateBookingInput
	}{
		{"empty title", service.CreateBookingInput{RoomID: roomA, StartTime: at(0, 9), EndTime: at(0, 10), AttendeeIDs: []uint64{alice}}},
		{"end equals start", service.CreateBookingInput{RoomID: roomA, Title: "x", StartTime: at(0, 9), EndTime: at(0, 9), AttendeeIDs: []uint64{alice}}},
		{"end before start", service.CreateBookingInput{RoomID: roomA, Title: "x", StartTime: at(0, 10), EndTime: at(0, 9), AttendeeIDs: []uint64{alice}}},
		{"no attendees", service.CreateBookingInput{RoomID: roomA, Title: "x", StartTime: at(0, 9), EndTime: at(0, 10)}},
		{"over capacity", service.CreateBookingInput{RoomID: roomB, Title: "x", StartTime: at(0, 9), EndTime: at(0, 10), AttendeeIDs: []uint64{1, 2, 3}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.svc.CreateBooking(ctx, memberAlice, tc.in)
			var vErr *service.ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}

	t.Run("unknown room", func(t *testing.T) {
		_, _, err := f.svc.CreateBooking(ctx, memberAlice, service.CreateBookingInput{
			RoomID: 404, Title: "x", StartTime: at(0, 9), EndTime: at(0, 10), AttendeeIDs: []uint64{alice},
		})
		require.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("inactive room", func(t *testing.T) {
		f.store.addRoom(model.Room{ID: 3, Name: "Closed", Capacity: 4, IsActive: false})
		_, _, err := f.svc.CreateBooking(ctx, memberAlice, service.CreateBookingInput{
			RoomID: 3, Title: "x", StartTime: at(0, 9), EndTime: at(0, 10), AttendeeIDs: []uint64{alice},
		})
		var vErr *service.ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("duplicate attendees collapse", func(t *testing.T) {
		b, _, err := f.svc.CreateBooking(ctx, memberAlice, service.CreateBookingInput{
			RoomID: roomA, Title: "x", StartTime: at(0, 9), EndTime: at(0, 10),
			AttendeeIDs: []uint64{alice, bob, alice, bob},
		})
		require.NoError(t, err)
		require.Equal(t, []uint64{alice, bob}, b.AttendeeIDs)
	})
}

func TestCreateBookingConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustCreate(t, memberAlice, roomA, at(0, 9), at(0, 10))

	_, _, err := f.svc.CreateBooking(ctx, memberBob, service.CreateBookingInput{
		RoomID: roomA, Title: "clash", StartTime: at(0, 9).Add(30 * time.Minute), EndTime: at(0, 10).Add(30 * time.Minute),
		AttendeeIDs: []uint64{bob},
	})
	require.ErrorIs(t, err, service.ErrConflict)

	// Touching intervals do not conflict.
	_, _, err = f.svc.CreateBooking(ctx, memberBob, service.CreateBookingInput{
		RoomID: roomA, Title: "back to back", StartTime: at(0, 10), EndTime: at(0, 11),
		AttendeeIDs: []uint64{bob},
	})
	require.NoError(t, err)

	// Same interval in another room is fine.
	_, _, err = f.svc.CreateBooking(ctx, memberBob, service.CreateBookingInput{
		RoomID: roomB, Title: "elsewhere", StartTime: at(0, 9), EndTime: at(0, 10),
		AttendeeIDs: []uint64{bob},
	})
	require.NoError(t, err)
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustCreate(t, memberAlice, roomA, at(0, 9), at(0, 10))

	free, err := f.svc.CheckAvailability(ctx, roomA, at(0, 9).Add(15*time.Minute), at(0, 9).Add(45*time.Minute))
	require.NoError(t, err)
	require.False(t, free)

	free, err = f.svc.CheckAvailability(ctx, roomA, at(0, 10), at(0, 11))
	require.NoError(t, err)
	require.True(t, free)

	_, err = f.svc.CheckAvailability(ctx, 404, at(0, 10), at(0, 11))
	require.ErrorIs(t, err, service.ErrNotFound)
}

// ----- administrative override -----

func TestAdminOverrideCancelsExactlyOverlapping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b1 := f.mustCreate(t, memberAlice, roomA, at(0, 9), at(0, 10))
	b2 := f.mustCreate(t, memberBob, roomA, at(0, 10), at(0, 11))
	outside := f.mustCreate(t, memberAlice, roomA, at(0, 13), at(0, 14))

	created, overridden, err := f.svc.CreateBooking(ctx, admin, service.CreateBookingInput{
		RoomID: roomA, Title: "board meeting",
		StartTime: at(0, 9).Add(30 * time.Minute), EndTime: at(0, 10).Add(30 * time.Minute),
		AttendeeIDs: []uint64{rootAdm},
	})
	require.NoError(t, err)
	require.Equal(t, model.BookingConfirmed, created.Status)

	require.Len(t, overridden, 2)
	gotIDs := map[uint64]bool{}
	for _, ob := range overridden {
		gotIDs[ob.ID] = true
		require.Equal(t, model.BookingCancelled, ob.Status)
		require.NotNil(t, ob.CancelReason)
		require.Equal(t, service.OverrideCancelReason, *ob.CancelReason)
		require.NotNil(t, ob.CancelledBy)
		require.Equal(t, rootAdm, *ob.CancelledBy)
	}
	require.True(t, gotIDs[b1.ID])
	require.True(t, gotIDs[b2.ID])

	// The booking outside the window is untouched.
	after, err := f.store.GetBooking(ctx, outside.ID)
	require.NoError(t, err)
	require.Equal(t, model.BookingConfirmed, after.Status)

	// Displaced organizers are told about the override.
	notices := f.notifier.byKind(model.NotifyAdminOverride)
	require.Len(t, notices, 2)
}

func TestAdminCreateWithoutConflictsOverridesNothing(t *testing.T) {
	f := newFixture(t)
	_, overridden, err := f.svc.CreateBooking(context.Background(), admin, service.CreateBookingInput{
		RoomID: roomA, Title: "quiet slot", StartTime: at(0, 9), EndTime: at(0, 10),
		AttendeeIDs: []uint64{rootAdm},
	})
	require.NoError(t, err)
	require.Empty(t, overridden)
}

// ----- recurring -----

func TestCreateRecurringMaterializesWeeklyOccurrences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	group, occurrences, overridden, err := f.svc.CreateRecurring(ctx, memberAlice, service.CreateRecurringInput{
		RoomID: roomA, Title: "weekly sync",
		StartTime: at(0, 10), EndTime: at(0, 11),
		EndDate:     at(21, 0), // four Mondays: the 7th, 14th, 21st, 28th
		AttendeeIDs: []uint64{alice, bob},
	})
	require.NoError(t, err)
	require.Empty(t, overridden)
	require.True(t, group.IsActive)
	require.Equal(t, int(time.Monday), group.Weekday)
	require.Equal(t, "10:00", group.BaseStartTime)
	require.Equal(t, "11:00", group.BaseEndTime)

	require.Len(t, occurrences, 4)
	for i, occ := range occurrences {
		require.Equal(t, at(7*i, 10), occ.StartTime)
		require.Equal(t, at(7*i, 11), occ.EndTime)
		require.Equal(t, model.BookingConfirmed, occ.Status)
		require.NotNil(t, occ.RecurrenceGroupID)
		require.Equal(t, group.ID, *occ.RecurrenceGroupID)
	}
}

func TestCreateRecurringAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Block the second Monday.
	f.mustCreate(t, memberBob, roomA, at(7, 10), at(7, 11))

	_, _, _, err := f.svc.CreateRecurring(ctx, memberAlice, service.CreateRecurringInput{
		RoomID: roomA, Title: "weekly sync",
		StartTime: at(0, 10), EndTime: at(0, 11),
		EndDate:     at(21, 0),
		AttendeeIDs: []uint64{alice},
	})
	var cErr *service.ConflictError
	require.ErrorAs(t, err, &cErr)
	require.Equal(t, []string{"2026-09-14"}, cErr.Dates)

	// Nothing was persisted: only Bob's blocker remains.
	require.Len(t, f.store.bookings, 1)
	require.Empty(t, f.store.groups)
}

func TestCreateRecurringAdminOverridesPerOccurrence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	blocker := f.mustCreate(t, memberBob, roomA, at(7, 10), at(7, 11))

	_, occurrences, overridden, err := f.svc.CreateRecurring(ctx, admin, service.CreateRecurringInput{
		RoomID: roomA, Title: "weekly board",
		StartTime: at(0, 10), EndTime: at(0, 11),
		EndDate:     at(14, 0),
		AttendeeIDs: []uint64{rootAdm},
	})
	require.NoError(t, err)
	require.Len(t, occurrences, 3)
	require.Len(t, overridden, 1)
	require.Equal(t, blocker.ID, overridden[0].ID)
}

func TestCreateRecurringValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("spans midnight", func(t *testing.T) {
		_, _, _, err := f.svc.CreateRecurring(ctx, memberAlice, service.CreateRecurringInput{
			RoomID: roomA, Title: "overnight",
			StartTime: at(0, 23), EndTime: at(1, 1), EndDate: at(21, 0),
			AttendeeIDs: []uint64{alice},
		})
		var vErr *service.ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("end date before start", func(t *testing.T) {
		_, _, _, err := f.svc.CreateRecurring(ctx, memberAlice, service.CreateRecurringInput{
			RoomID: roomA, Title: "backwards",
			StartTime: at(0, 10), EndTime: at(0, 11), EndDate: at(-7, 0),
			AttendeeIDs: []uint64{alice},
		})
		var vErr *service.ValidationError
		require.ErrorAs(t, err, &vErr)
	})
}

func TestCreateRecurringSingleOccurrence(t *testing.T) {
	f := newFixture(t)

	// The end date lands on the first occurrence's own day, which is a
	// valid one-occurrence series even though the date is midnight and
	// the first occurrence starts later that day.
	_, occurrences, _, err := f.svc.CreateRecurring(context.Background(), memberAlice, service.CreateRecurringInput{
		RoomID: roomA, Title: "one-off weekly",
		StartTime: at(0, 10), EndTime: at(0, 11), EndDate: at(0, 0),
		AttendeeIDs: []uint64{alice},
	})
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	require.Equal(t, at(0, 10), occurrences[0].StartTime)
}

func TestCancelledOccurrenceFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, occurrences, _, err := f.svc.CreateRecurring(ctx, memberAlice, service.CreateRecurringInput{
		RoomID: roomA, Title: "weekly sync",
		StartTime: at(0, 10), EndTime: at(0, 11), EndDate: at(21, 0),
		AttendeeIDs: []uint64{alice},
	})
	require.NoError(t, err)
	require.Len(t, occurrences, 4)

	// Cancelling the second occurrence releases exactly that slot.
	skipped := occurrences[1]
	_, err = f.svc.CancelBooking(ctx, memberAlice, skipped.ID, "holiday")
	require.NoError(t, err)

	free, err := f.svc.CheckAvailability(ctx, roomA, skipped.StartTime, skipped.EndTime)
	require.NoError(t, err)
	require.True(t, free)

	b, _, err := f.svc.CreateBooking(ctx, memberBob, service.CreateBookingInput{
		RoomID: roomA, Title: "fills the gap",
		StartTime: skipped.StartTime, EndTime: skipped.EndTime,
		AttendeeIDs: []uint64{bob},
	})
	require.NoError(t, err)
	require.Equal(t, model.BookingConfirmed, b.Status)

	// The surviving occurrences still block their slots.
	_, _, err = f.svc.CreateBooking(ctx, memberBob, service.CreateBookingInput{
		RoomID: roomA, Title: "clash",
		StartTime: occurrences[2].StartTime, EndTime: occurrences[2].EndTime,
		AttendeeIDs: []uint64{bob},
	})
	require.ErrorIs(t, err, service.ErrConflict)
}

func TestSingleBookingConflictsWithRecurrence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, _, err := f.svc.CreateRecurring(ctx, memberAlice, service.CreateRecurringInput{
		RoomID: roomA, Title: "weekly sync",
		StartTime: at(0, 10), EndTime: at(0, 11), EndDate: at(21, 0),
		AttendeeIDs: []uint64{alice},
	})
	require.NoError(t, err)

	// A single booking on the third Monday's slot collides.
	_, _, err = f.svc.CreateBooking(ctx, memberBob, service.CreateBookingInput{
		RoomID: roomA, Title: "clash", StartTime: at(14, 10).Add(30 * time.Minute), EndTime: at(14, 11),
		AttendeeIDs: []uint64{bob},
	})
	require.ErrorIs(t, err, service.ErrConflict)

	// The same time on a Tuesday is free.
	_, _, err = f.svc.CreateBooking(ctx, memberBob, service.CreateBookingInput{
		RoomID: roomA, Title: "tuesday", StartTime: at(15, 10), EndTime: at(15, 11),
		AttendeeIDs: []uint64{bob},
	})
	require.NoError(t, err)
}

// ----- update -----

func TestUpdateBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustCreate(t, memberAlice, roomA, at(0, 9), at(0, 10))

	t.Run("organizer reschedules within own slot", func(t *testing.T) {
		newStart := at(0, 9).Add(15 * time.Minute)
		updated, err := f.svc.UpdateBooking(ctx, memberAlice, b.ID, service.UpdateBookingInput{
			StartTime: &newStart,
		})
		require.NoError(t, err)
		require.Equal(t, newStart, updated.StartTime)
	})

	t.Run("stranger cannot update", func(t *testing.T) {
		title := "hijack"
		_, err := f.svc.UpdateBooking(ctx, memberBob, b.ID, service.UpdateBookingInput{Title: &title})
		require.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("admin can update someone else's booking", func(t *testing.T) {
		title := "renamed by admin"
		updated, err := f.svc.UpdateBooking(ctx, admin, b.ID, service.UpdateBookingInput{Title: &title})
		require.NoError(t, err)
		require.Equal(t, title, updated.Title)
	})

	t.Run("moving onto another booking conflicts", func(t *testing.T) {
		f.mustCreate(t, memberBob, roomA, at(0, 11), at(0, 12))
		newStart, newEnd := at(0, 11).Add(30*time.Minute), at(0, 12).Add(30*time.Minute)
		_, err := f.svc.UpdateBooking(ctx, memberAlice, b.ID, service.UpdateBookingInput{
			StartTime: &newStart, EndTime: &newEnd,
		})
		require.ErrorIs(t, err, service.ErrConflict)
	})

	t.Run("cancelled booking cannot be updated", func(t *testing.T) {
		cancelled := f.mustCreate(t, memberAlice, roomB, at(0, 9), at(0, 10))
		_, err := f.svc.CancelBooking(ctx, memberAlice, cancelled.ID, "moved on")
		require.NoError(t, err)
		title := "zombie"
		_, err = f.svc.UpdateBooking(ctx, memberAlice, cancelled.ID, service.UpdateBookingInput{Title: &title})
		require.ErrorIs(t, err, service.ErrInvalidState)
	})

	t.Run("missing booking", func(t *testing.T) {
		title := "nope"
		_, err := f.svc.UpdateBooking(ctx, memberAlice, 404, service.UpdateBookingInput{Title: &title})
		require.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestUpdateOccurrenceExcludesItself(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, occurrences, _, err := f.svc.CreateRecurring(ctx, memberAlice, service.CreateRecurringInput{
		RoomID: roomA, Title: "weekly sync",
		StartTime: at(0, 10), EndTime: at(0, 11), EndDate: at(14, 0),
		AttendeeIDs: []uint64{alice},
	})
	require.NoError(t, err)

	// Shift one occurrence by 30 minutes: it still overlaps its own
	// current row, which must not count as a conflict.
	occ := occurrences[1]
	newStart, newEnd := occ.StartTime.Add(30*time.Minute), occ.EndTime.Add(30*time.Minute)
	updated, err := f.svc.UpdateBooking(ctx, memberAlice, occ.ID, service.UpdateBookingInput{
		StartTime: &newStart, EndTime: &newEnd,
	})
	require.NoError(t, err)
	require.Equal(t, newStart, updated.StartTime)
}

// ----- cancel, rebook, delete -----

func TestCancelBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustCreate(t, memberAlice, roomA, at(0, 9), at(0, 10))

	t.Run("stranger cannot cancel", func(t *testing.T) {
		_, err := f.svc.CancelBooking(ctx, memberBob, b.ID, "mine now")
		require.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("organizer cancels with audit fields", func(t *testing.T) {
		cancelled, err := f.svc.CancelBooking(ctx, memberAlice, b.ID, "no longer needed")
		require.NoError(t, err)
		require.Equal(t, model.BookingCancelled, cancelled.Status)
		require.NotNil(t, cancelled.CancelledBy)
		require.Equal(t, alice, *cancelled.CancelledBy)
		require.NotNil(t, cancelled.CancelReason)
		require.Equal(t, "no longer needed", *cancelled.CancelReason)
	})

	t.Run("cancelling twice fails", func(t *testing.T) {
		_, err := f.svc.CancelBooking(ctx, memberAlice, b.ID, "again")
		require.ErrorIs(t, err, service.ErrInvalidState)
	})

	t.Run("slot frees immediately", func(t *testing.T) {
		_, _, err := f.svc.CreateBooking(ctx, memberBob, service.CreateBookingInput{
			RoomID: roomA, Title: "replacement", StartTime: at(0, 9), EndTime: at(0, 10),
			AttendeeIDs: []uint64{bob},
		})
		require.NoError(t, err)
	})

	t.Run("admin cancel notifies organizer as override", func(t *testing.T) {
		other := f.mustCreate(t, memberBob, roomB, at(0, 12), at(0, 13))
		_, err := f.svc.CancelBooking(ctx, admin, other.ID, "room maintenance")
		require.NoError(t, err)
		notices := f.notifier.byKind(model.NotifyAdminOverride)
		require.NotEmpty(t, notices)
		require.Equal(t, bob, notices[len(notices)-1].UserID)
	})
}

func TestCancelSeries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	group, occurrences, _, err := f.svc.CreateRecurring(ctx, memberAlice, service.CreateRecurringInput{
		RoomID: roomA, Title: "weekly sync",
		StartTime: at(0, 10), EndTime: at(0, 11), EndDate: at(21, 0),
		AttendeeIDs: []uint64{alice, bob},
	})
	require.NoError(t, err)
	require.Len(t, occurrences, 4)

	// One occurrence was already cancelled on its own.
	_, err = f.svc.CancelBooking(ctx, memberAlice, occurrences[0].ID, "skipped")
	require.NoError(t, err)

	t.Run("stranger cannot cancel", func(t *testing.T) {
		_, _, err := f.svc.CancelSeries(ctx, memberBob, group.ID, "not mine")
		require.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("creator cancels remaining occurrences", func(t *testing.T) {
		g, cancelled, err := f.svc.CancelSeries(ctx, memberAlice, group.ID, "project ended")
		require.NoError(t, err)
		require.False(t, g.IsActive)
		require.Len(t, cancelled, 3)
		for _, b := range cancelled {
			require.Equal(t, model.BookingCancelled, b.Status)
			require.NotNil(t, b.CancelReason)
			require.Equal(t, "project ended", *b.CancelReason)
		}
		// Every released slot is bookable again.
		free, err := f.svc.CheckAvailability(ctx, roomA, occurrences[2].StartTime, occurrences[2].EndTime)
		require.NoError(t, err)
		require.True(t, free)
	})

	t.Run("cancelling twice fails", func(t *testing.T) {
		_, _, err := f.svc.CancelSeries(ctx, memberAlice, group.ID, "again")
		require.ErrorIs(t, err, service.ErrInvalidState)
	})

	t.Run("missing group", func(t *testing.T) {
		_, _, err := f.svc.CancelSeries(ctx, memberAlice, 404, "gone")
		require.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("admin cancel notifies creator as override", func(t *testing.T) {
		g2, _, _, err := f.svc.CreateRecurring(ctx, memberBob, service.CreateRecurringInput{
			RoomID: roomB, Title: "bob's weekly",
			StartTime: at(1, 10), EndTime: at(1, 11), EndDate: at(15, 0),
			AttendeeIDs: []uint64{bob},
		})
		require.NoError(t, err)
		_, cancelled, err := f.svc.CancelSeries(ctx, admin, g2.ID, "room repurposed")
		require.NoError(t, err)
		require.Len(t, cancelled, 3)
		notices := f.notifier.byKind(model.NotifyAdminOverride)
		require.NotEmpty(t, notices)
		require.Equal(t, bob, notices[len(notices)-1].UserID)
	})
}

func TestDeleteBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("member cannot delete", func(t *testing.T) {
		b := f.mustCreate(t, memberAlice, roomA, at(0, 9), at(0, 10))
		err := f.svc.DeleteBooking(ctx, memberAlice, b.ID)
		require.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("active future booking cannot be deleted", func(t *testing.T) {
		b := f.mustCreate(t, memberAlice, roomA, at(0, 11), at(0, 12))
		err := f.svc.DeleteBooking(ctx, admin, b.ID)
		require.ErrorIs(t, err, service.ErrInvalidState)
	})

	t.Run("cancelled booking can be deleted", func(t *testing.T) {
		b := f.mustCreate(t, memberAlice, roomA, at(0, 13), at(0, 14))
		_, err := f.svc.CancelBooking(ctx, memberAlice, b.ID, "scrap it")
		require.NoError(t, err)
		require.NoError(t, f.svc.DeleteBooking(ctx, admin, b.ID))
		_, err = f.store.GetBooking(ctx, b.ID)
		require.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("past booking can be deleted", func(t *testing.T) {
		past := f.mustCreate(t, memberAlice, roomB,
			time.Date(2020, 1, 6, 9, 0, 0, 0, time.UTC),
			time.Date(2020, 1, 6, 10, 0, 0, 0, time.UTC))
		require.NoError(t, f.svc.DeleteBooking(ctx, admin, past.ID))
	})
}

func TestEffectiveStatusCompleted(t *testing.T) {
	f := newFixture(t)
	past := f.mustCreate(t, memberAlice, roomA,
		time.Date(2020, 1, 6, 9, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 6, 10, 0, 0, 0, time.UTC))
	require.Equal(t, model.BookingConfirmed, past.Status)
	require.Equal(t, model.BookingCompleted, past.EffectiveStatus(time.Now().UTC()))

	future := f.mustCreate(t, memberAlice, roomA, at(0, 9), at(0, 10))
	require.Equal(t, model.BookingConfirmed, future.EffectiveStatus(time.Now().UTC()))
}

// ----- concurrency -----

func TestConcurrentCreateSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = f.svc.CreateBooking(ctx, service.Actor{ID: alice}, service.CreateBookingInput{
				RoomID: roomA, Title: fmt.Sprintf("race %d", i),
				StartTime: at(0, 9), EndTime: at(0, 10),
				AttendeeIDs: []uint64{alice},
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			require.True(t, errors.Is(err, service.ErrConflict), "unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, winners)

	// Confirmed bookings in the room are pairwise non-overlapping.
	var confirmed []model.Booking
	for _, b := range f.store.bookings {
		if b.RoomID == roomA && b.Status == model.BookingConfirmed {
			confirmed = append(confirmed, b)
		}
	}
	require.Len(t, confirmed, 1)
	for i := range confirmed {
		for j := i + 1; j < len(confirmed); j++ {
			a, b := confirmed[i], confirmed[j]
			require.False(t, a.StartTime.Before(b.EndTime) && b.StartTime.Before(a.EndTime),
				"bookings %d and %d overlap", a.ID, b.ID)
		}
	}
}
