package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bakery-pos/internal/database"
	"bakery-pos/internal/models"
)

// Repository stores audit entries in PostgreSQL
type Repository struct {
	db database.Querier
}

func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// Insert appends an entry, copying the actor's name and role from staff
func (r *Repository) Insert(ctx context.Context, staffID int64, action, details string) (*models.AuditEntry, error) {
	var e models.AuditEntry
	err := r.db.QueryRow(ctx, database.InsertAuditLogSQL, staffID, action, details).
		Scan(&e.ID, &e.Timestamp, &e.StaffID, &e.UserName, &e.Role, &e.Action, &e.Details)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("staff %d: %w", staffID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("insert audit log: %w", err)
	}
	return &e, nil
}

// List returns every entry, newest first
func (r *Repository) List(ctx context.Context) ([]models.AuditEntry, error) {
	rows, err := r.db.Query(ctx, database.ListAuditLogsSQL)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.StaffID, &e.UserName, &e.Role, &e.Action, &e.Details); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
