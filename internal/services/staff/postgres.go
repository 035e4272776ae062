package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"bakery-pos/internal/database"
	"bakery-pos/internal/models"
)

const uniqueViolation = "23505"

// Repository stores staff in PostgreSQL
type Repository struct {
	db database.Querier
}

func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

func scanStaff(row pgx.Row) (*models.Staff, error) {
	var s models.Staff
	var role string
	err := row.Scan(
		&s.ID,
		&s.FullName,
		&s.AccessCode,
		&s.DOB.Time,
		&s.Email,
		&s.JoinedDate.Time,
		&s.IsActive,
		&role,
		&s.CanToggleChannel,
		&s.CanWaste,
		&s.CanRefund,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Role = models.Role(role)
	return &s, nil
}

// Get loads a staff member by id
func (r *Repository) Get(ctx context.Context, id int64) (*models.Staff, error) {
	s, err := scanStaff(r.db.QueryRow(ctx, database.GetStaffByIDSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("staff %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get staff: %w", err)
	}
	return s, nil
}

// FindActiveByAccessCode loads the active staff member holding code
func (r *Repository) FindActiveByAccessCode(ctx context.Context, code string) (*models.Staff, error) {
	s, err := scanStaff(r.db.QueryRow(ctx, database.GetActiveStaffByAccessCodeSQL, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find staff by access code: %w", err)
	}
	return s, nil
}

// List returns all staff, most recently created first
func (r *Repository) List(ctx context.Context) ([]models.Staff, error) {
	rows, err := r.db.Query(ctx, database.ListStaffSQL)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	out := []models.Staff{}
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Create inserts s. A duplicate access code returns ErrConflict.
func (r *Repository) Create(ctx context.Context, s *models.Staff) (*models.Staff, error) {
	created, err := scanStaff(r.db.QueryRow(ctx, database.InsertStaffSQL,
		s.FullName,
		s.AccessCode,
		s.DOB.Time,
		s.Email,
		s.JoinedDate.Time,
		s.IsActive,
		string(s.Role),
		s.CanToggleChannel,
		s.CanWaste,
		s.CanRefund,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("access code in use: %w", models.ErrConflict)
		}
		return nil, fmt.Errorf("insert staff: %w", err)
	}
	return created, nil
}

// Update applies the non-nil fields of req
func (r *Repository) Update(ctx context.Context, id int64, req *models.UpdateStaffRequest) (*models.Staff, error) {
	s, err := scanStaff(r.db.QueryRow(ctx, database.UpdateStaffSQL,
		id, req.IsActive, req.CanToggleChannel, req.CanWaste, req.CanRefund))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("staff %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update staff: %w", err)
	}
	return s, nil
}
