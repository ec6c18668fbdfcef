package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/room-reservation/internal/model"
)

// RoomRepo provides CRUD operations for rooms. Rooms are the bookable
// resources of the system: every booking and recurrence group
// references exactly one room. All timestamp fields are stored in UTC.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo returns a new RoomRepo bound to the given database.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *RoomRepo) DB() *sql.DB { return r.db }

// Create inserts a new room and populates the generated ID and
// timestamps on the provided model. A duplicate name is reported as
// ErrNameExists.
func (r *RoomRepo) Create(ctx context.Context, room *model.Room) error {
	const q = `INSERT INTO rooms (name, capacity, location, is_active) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, room.Name, room.Capacity, room.Location, room.IsActive)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrNameExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	room.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM rooms WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, room.ID).Scan(&room.CreatedAt, &room.UpdatedAt)
}

// GetByID returns a single room or ErrRoomNotFound.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (model.Room, error) {
	const q = `SELECT id, name, capacity, location, is_active, created_at, updated_at FROM rooms WHERE id = ?`
	var rm model.Room
	var location sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&rm.ID, &rm.Name, &rm.Capacity, &location, &rm.IsActive, &rm.CreatedAt, &rm.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Room{}, ErrRoomNotFound
	}
	if err != nil {
		return model.Room{}, err
	}
	if location.Valid {
		loc := location.String
		rm.Location = &loc
	}
	return rm, nil
}

// List returns rooms ordered by name. When activeOnly is true,
// deactivated rooms are filtered out.
func (r *RoomRepo) List(ctx context.Context, activeOnly bool) ([]model.Room, error) {
	q := `SELECT id, name, capacity, location, is_active, created_at, updated_at FROM rooms`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Room, 0)
	for rows.Next() {
		var rm model.Room
		var location sql.NullString
		if err := rows.Scan(&rm.ID, &rm.Name, &rm.Capacity, &location, &rm.IsActive, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
			return nil, err
		}
		if location.Valid {
			loc := location.String
			rm.Location = &loc
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

// Update rewrites the mutable room columns. It returns
// ErrRoomNotFound when no row matches and ErrNameExists on a name
// collision.
func (r *RoomRepo) Update(ctx context.Context, room model.Room) error {
	const q = `UPDATE rooms SET name = ?, capacity = ?, location = ?, is_active = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, room.Name, room.Capacity, room.Location, room.IsActive, room.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrNameExists
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// RowsAffected is also zero for a no-op update, so confirm the row exists.
		var exists int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM rooms WHERE id = ?`, room.ID).Scan(&exists); err == sql.ErrNoRows {
			return ErrRoomNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a room. Bookings and recurrence groups cascade at
// the schema level.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRoomNotFound
	}
	return nil
}
