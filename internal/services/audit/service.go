package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bakery-pos/internal/logger"
	"bakery-pos/internal/metrics"
	"bakery-pos/internal/models"
	"bakery-pos/internal/validation"
)

// Store persists audit entries
type Store interface {
	Insert(ctx context.Context, staffID int64, action, details string) (*models.AuditEntry, error)
	List(ctx context.Context) ([]models.AuditEntry, error)
}

// Service records and lists audit entries
type Service struct {
	store  Store
	logger *logger.Logger
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{store: store, logger: log}
}

// Record appends an entry on behalf of another workflow. It never fails the
// caller: errors are logged and counted.
func (s *Service) Record(ctx context.Context, staffID int64, action, details string) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	_, err := s.store.Insert(writeCtx, staffID, action, details)
	metrics.RecordAuditWrite(err)
	if err != nil {
		s.logger.Warn("audit_write_failed", "Failed to record audit entry", logger.RequestIDFromContext(ctx), map[string]interface{}{
			"staff_id": staffID,
			"action":   action,
			"error":    err.Error(),
		})
	}
}

// Append handles a client-submitted entry. The entry itself is the primary
// action here, so failures are returned.
func (s *Service) Append(ctx context.Context, req *models.CreateAuditRequest) (*models.AuditEntry, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	e, err := s.store.Insert(ctx, req.StaffID, req.Action, req.Details)
	metrics.RecordAuditWrite(err)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, validation.Field("staff_id", "The selected staff id is invalid.")
		}
		return nil, fmt.Errorf("append audit entry: %w", err)
	}
	return e, nil
}

// List returns every entry, newest first
func (s *Service) List(ctx context.Context) ([]models.AuditEntry, error) {
	return s.store.List(ctx)
}
