package waste

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"bakery-pos/internal/database"
	"bakery-pos/internal/models"
)

// Repository stores waste entries in PostgreSQL
type Repository struct {
	db database.Querier
}

func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

func scanEntry(row pgx.Row) (*models.WasteEntry, error) {
	var w models.WasteEntry
	err := row.Scan(
		&w.ID,
		&w.StaffID,
		&w.ItemID,
		&w.ItemName,
		&w.CategoryName,
		&w.Quantity,
		&w.UnitCost,
		&w.RecordedBy,
		&w.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// List returns entries recorded at or after since, newest first. A nil
// since returns everything.
func (r *Repository) List(ctx context.Context, since *time.Time) ([]models.WasteEntry, error) {
	rows, err := r.db.Query(ctx, database.ListWasteSQL, since)
	if err != nil {
		return nil, fmt.Errorf("list waste: %w", err)
	}
	defer rows.Close()

	out := []models.WasteEntry{}
	for rows.Next() {
		w, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan waste: %w", err)
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// Get returns one entry
func (r *Repository) Get(ctx context.Context, id int64) (*models.WasteEntry, error) {
	w, err := scanEntry(r.db.QueryRow(ctx, database.GetWasteSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("waste entry %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get waste: %w", err)
	}
	return w, nil
}

// Create inserts an entry and returns it as stored
func (r *Repository) Create(ctx context.Context, req *models.CreateWasteRequest) (*models.WasteEntry, error) {
	var id int64
	err := r.db.QueryRow(ctx, database.InsertWasteSQL,
		req.StaffID,
		req.ItemID,
		req.ItemName,
		req.CategoryName,
		req.Quantity,
		*req.UnitCost,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert waste: %w", err)
	}
	return r.Get(ctx, id)
}

// Delete removes an entry
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, database.DeleteWasteSQL, id)
	if err != nil {
		return fmt.Errorf("delete waste: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("waste entry %d: %w", id, models.ErrNotFound)
	}
	return nil
}
