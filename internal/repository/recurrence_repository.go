package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/room-reservation/internal/model"
)

// RecurrenceRepo persists recurrence groups. A group row is the
// weekly template; its occurrences live in the bookings table with
// recurrence_group_id set.
type RecurrenceRepo struct {
	db *sql.DB
}

// NewRecurrenceRepo returns a new RecurrenceRepo bound to the given database.
func NewRecurrenceRepo(db *sql.DB) *RecurrenceRepo { return &RecurrenceRepo{db: db} }

const groupColumns = `id, creator_id, room_id, pattern, weekday, start_date, end_date,
	base_start_time, base_end_time, title, description, is_active, created_at`

func scanGroup(row interface{ Scan(...any) error }) (model.RecurrenceGroup, error) {
	var (
		g           model.RecurrenceGroup
		description sql.NullString
	)
	err := row.Scan(&g.ID, &g.CreatorID, &g.RoomID, &g.Pattern, &g.Weekday, &g.StartDate, &g.EndDate,
		&g.BaseStartTime, &g.BaseEndTime, &g.Title, &description, &g.IsActive, &g.CreatedAt)
	if err != nil {
		return model.RecurrenceGroup{}, err
	}
	if description.Valid {
		d := description.String
		g.Description = &d
	}
	return g, nil
}

// CreateTx inserts a group within the given transaction and populates
// the generated ID. Dates are stored as DATE and time-of-day values
// as "HH:MM" strings.
func (r *RecurrenceRepo) CreateTx(ctx context.Context, tx *sql.Tx, g *model.RecurrenceGroup) error {
	const q = `INSERT INTO recurrence_groups
		(creator_id, room_id, pattern, weekday, start_date, end_date, base_start_time, base_end_time, title, description, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		g.CreatorID, g.RoomID, g.Pattern, g.Weekday,
		g.StartDate.Format("2006-01-02"), g.EndDate.Format("2006-01-02"),
		g.BaseStartTime, g.BaseEndTime, g.Title, g.Description, g.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = uint64(id)
	return nil
}

// GetByID returns a single group or ErrGroupNotFound.
func (r *RecurrenceRepo) GetByID(ctx context.Context, id uint64) (model.RecurrenceGroup, error) {
	g, err := scanGroup(r.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM recurrence_groups WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return model.RecurrenceGroup{}, ErrGroupNotFound
	}
	return g, err
}

// ListActiveIntersecting returns the active groups on a room whose
// [start_date, end_date] range intersects the requested date range,
// serving the room's recurring-schedule listing.
func (r *RecurrenceRepo) ListActiveIntersecting(ctx context.Context, roomID uint64, start, end time.Time) ([]model.RecurrenceGroup, error) {
	const query = `SELECT ` + groupColumns + ` FROM recurrence_groups
		WHERE room_id = ? AND is_active = 1 AND start_date <= ? AND end_date >= ?
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, roomID, end.Format("2006-01-02"), start.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.RecurrenceGroup, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// DeactivateTx marks a group inactive within the given transaction so
// no new occurrences derive from it. Already-materialized occurrence
// rows are handled by the caller.
func (r *RecurrenceRepo) DeactivateTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE recurrence_groups SET is_active = 0 WHERE id = ?`, id)
	return err
}
