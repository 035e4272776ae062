package waste

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bakery-pos/internal/logger"
	"bakery-pos/internal/models"
	"bakery-pos/internal/validation"
)

// Store persists waste entries
type Store interface {
	List(ctx context.Context, since *time.Time) ([]models.WasteEntry, error)
	Get(ctx context.Context, id int64) (*models.WasteEntry, error)
	Create(ctx context.Context, req *models.CreateWasteRequest) (*models.WasteEntry, error)
	Delete(ctx context.Context, id int64) error
}

// StaffLookup loads the staff member recording waste
type StaffLookup interface {
	Get(ctx context.Context, id int64) (*models.Staff, error)
}

// ItemLookup checks that a referenced menu item exists
type ItemLookup interface {
	Get(ctx context.Context, id int64) (*models.MenuItem, error)
}

// Auditor records waste changes
type Auditor interface {
	Record(ctx context.Context, staffID int64, action, details string)
}

// Service records and lists discarded stock
type Service struct {
	store  Store
	staff  StaffLookup
	items  ItemLookup
	audit  Auditor
	logger *logger.Logger
	now    func() time.Time
}

func NewService(store Store, staff StaffLookup, items ItemLookup, audit Auditor, log *logger.Logger) *Service {
	return &Service{store: store, staff: staff, items: items, audit: audit, logger: log, now: time.Now}
}

// mayWaste reports whether s is allowed to record or delete waste
func mayWaste(s *models.Staff) bool {
	return s != nil && (s.CanWaste || s.Role.Manages())
}

// List returns the entries of period, newest first
func (s *Service) List(ctx context.Context, period models.Period) ([]models.WasteEntry, error) {
	var since *time.Time
	if t, ok := period.Since(s.now()); ok {
		since = &t
	}
	return s.store.List(ctx, since)
}

// Record stores a waste entry for the staff member in the request
func (s *Service) Record(ctx context.Context, req *models.CreateWasteRequest) (*models.WasteEntry, error) {
	req.ItemName = strings.TrimSpace(req.ItemName)
	req.CategoryName = strings.TrimSpace(req.CategoryName)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	member, err := s.staff.Get(ctx, req.StaffID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, validation.Field("staff_id", "The selected staff id is invalid.")
	}
	if err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}
	if !member.IsActive {
		return nil, validation.Field("staff_id", "The selected staff member is inactive.")
	}
	if !mayWaste(member) {
		return nil, fmt.Errorf("%s may not record waste: %w", member.FullName, models.ErrForbidden)
	}

	if req.ItemID != nil {
		if _, err := s.items.Get(ctx, *req.ItemID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, validation.Field("item_id", "The selected item id is invalid.")
			}
			return nil, fmt.Errorf("load menu item: %w", err)
		}
	}

	entry, err := s.store.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("waste_recorded", "Waste recorded", logger.RequestIDFromContext(ctx), map[string]interface{}{
		"waste_id": entry.ID,
		"item":     entry.ItemName,
		"qty":      entry.Quantity,
		"cost":     entry.Cost().StringFixed(2),
	})
	s.audit.Record(ctx, member.ID, models.ActionWasteRecorded, describe(entry))
	return entry, nil
}

// Delete removes an entry on behalf of actor
func (s *Service) Delete(ctx context.Context, actor *models.Staff, id int64) error {
	if !mayWaste(actor) {
		return fmt.Errorf("not permitted to delete waste: %w", models.ErrForbidden)
	}

	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, actor.ID, models.ActionWasteDeleted, describe(entry))
	return nil
}

func describe(w *models.WasteEntry) string {
	return fmt.Sprintf("%s × %d · %s", w.ItemName, w.Quantity, models.PenceFromDecimal(w.Cost()))
}
