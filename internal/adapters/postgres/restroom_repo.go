package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/poonyc/internal/core/domain"
)

const restroomColumns = `id, name, address, description, rating, open_hours, close_hours,
	disability_friendly, changing_station, saved, COALESCE(photo_key, ''), created_at`

// RestroomRepo implements ports.RestroomRepository with pgx.
type RestroomRepo struct {
	db *DB
}

// NewRestroomRepo creates a new RestroomRepo.
func NewRestroomRepo(db *DB) *RestroomRepo {
	return &RestroomRepo{db: db}
}

// List returns every restroom, oldest first.
func (r *RestroomRepo) List(ctx context.Context) ([]domain.RestroomRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+restroomColumns+` FROM restrooms ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query restrooms: %w", err)
	}
	defer rows.Close()

	var out []domain.RestroomRecord
	for rows.Next() {
		rec, err := scanRestroom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// GetByID returns a restroom by UUID.
func (r *RestroomRepo) GetByID(ctx context.Context, id string) (*domain.RestroomRecord, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+restroomColumns+` FROM restrooms WHERE id = $1`, id)
	rec, err := scanRestroom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("restroom %s: %w", id, domain.ErrNotFound)
	}
	return rec, err
}

// Create inserts rec and fills in its generated ID and CreatedAt.
func (r *RestroomRepo) Create(ctx context.Context, rec *domain.RestroomRecord) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO restrooms (name, address, description, rating, open_hours, close_hours,
		                       disability_friendly, changing_station, saved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, rec.Name, rec.Address, rec.Description, rec.Rating, rec.OpenHours, rec.CloseHours,
		rec.DisabilityFriendly, rec.ChangingStation, rec.Saved,
	).Scan(&rec.ID, &rec.CreatedAt)
}

// SetPhotoKey records the object key of the restroom's photo.
func (r *RestroomRepo) SetPhotoKey(ctx context.Context, id, key string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE restrooms SET photo_key = $2 WHERE id = $1`, id, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("restroom %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanRestroom(row pgx.Row) (*domain.RestroomRecord, error) {
	var rec domain.RestroomRecord
	err := row.Scan(
		&rec.ID, &rec.Name, &rec.Address, &rec.Description, &rec.Rating,
		&rec.OpenHours, &rec.CloseHours,
		&rec.DisabilityFriendly, &rec.ChangingStation, &rec.Saved,
		&rec.PhotoKey, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
