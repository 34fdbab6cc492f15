package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/quanghuy/fieldbook/internal/model"
)

// FieldRepo manages persistence for fields. It also backs the field
// collaborator the booking service consults for hourly prices and
// availability status.
type FieldRepo struct {
	db *sql.DB
}

// NewFieldRepo constructs a FieldRepo with the given DB handle.
func NewFieldRepo(db *sql.DB) *FieldRepo { return &FieldRepo{db: db} }

const fieldCols = `id, name, type, location, price_per_hour, status, created_at, updated_at`

// Create inserts a new field and assigns the generated ID back to the
// struct. Status defaults to available in the DB.
func (r *FieldRepo) Create(ctx context.Context, f *model.Field) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO fields (name, type, location, price_per_hour, status) VALUES (?, ?, ?, ?, ?)`,
		f.Name, f.Type, f.Location, f.PricePerHour, f.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = uint64(id)
	return r.db.QueryRowContext(ctx, `SELECT `+fieldCols+` FROM fields WHERE id = ?`, f.ID).
		Scan(&f.ID, &f.Name, &f.Type, &f.Location, &f.PricePerHour, &f.Status, &f.CreatedAt, &f.UpdatedAt)
}

// GetByID retrieves a field by its ID. Returns ErrFieldNotFound if
// there is no matching row.
func (r *FieldRepo) GetByID(ctx context.Context, id uint64) (*model.Field, error) {
	var f model.Field
	err := r.db.QueryRowContext(ctx, `SELECT `+fieldCols+` FROM fields WHERE id = ?`, id).
		Scan(&f.ID, &f.Name, &f.Type, &f.Location, &f.PricePerHour, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFieldNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// List returns all fields, optionally filtered by status.
func (r *FieldRepo) List(ctx context.Context, status string) ([]model.Field, error) {
	q := `SELECT ` + fieldCols + ` FROM fields`
	var args []interface{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Field
	for rows.Next() {
		var f model.Field
		if err := rows.Scan(&f.ID, &f.Name, &f.Type, &f.Location, &f.PricePerHour, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Update rewrites the mutable columns of a field. Returns
// ErrFieldNotFound when the row does not exist.
func (r *FieldRepo) Update(ctx context.Context, f *model.Field) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE fields SET name = ?, type = ?, location = ?, price_per_hour = ?, status = ? WHERE id = ?`,
		f.Name, f.Type, f.Location, f.PricePerHour, f.Status, f.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a missing row from a no-op update.
		var exists int
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fields WHERE id = ?`, f.ID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return ErrFieldNotFound
		}
	}
	return nil
}

// Delete removes a field. Fields with non-cancelled bookings cannot
// be deleted; ErrConflict is returned instead so handlers can map it
// to a 409.
func (r *FieldRepo) Delete(ctx context.Context, id uint64) error {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE field_id = ? AND status IN (?, ?)`,
		id, model.BookingPending, model.BookingConfirmed).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM fields WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrFieldNotFound
	}
	return nil
}

// ErrConflict is returned when a delete cannot be performed because
// of dependent records, such as a field that still has active
// bookings.
var ErrConflict = errors.New("conflict")
