package catalog

import (
	"context"
	"fmt"
	"strings"

	"bakery-pos/internal/logger"
	"bakery-pos/internal/models"
	"bakery-pos/internal/validation"
)

// Store persists catalog items and channel flags
type Store interface {
	List(ctx context.Context) ([]models.MenuItem, error)
	Get(ctx context.Context, id int64) (*models.MenuItem, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, req *models.CreateMenuItemRequest) (*models.MenuItem, error)
	Update(ctx context.Context, id int64, req *models.UpdateMenuItemRequest) (*models.MenuItem, error)
	UpdateChannel(ctx context.Context, itemID int64, orderType models.OrderType, available bool) (*models.ChannelStatus, error)
}

// Auditor records catalog changes
type Auditor interface {
	Record(ctx context.Context, staffID int64, action, details string)
}

// Service reads and edits the menu
type Service struct {
	store  Store
	audit  Auditor
	logger *logger.Logger
}

func NewService(store Store, audit Auditor, log *logger.Logger) *Service {
	return &Service{store: store, audit: audit, logger: log}
}

// List returns the full catalog including unpublished and archived items
func (s *Service) List(ctx context.Context) ([]models.MenuItem, error) {
	return s.store.List(ctx)
}

// Categories returns the distinct category names
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.store.Categories(ctx)
}

// Create adds an item available on every channel
func (s *Service) Create(ctx context.Context, actor *models.Staff, req *models.CreateMenuItemRequest) (*models.MenuItem, error) {
	if actor == nil || !actor.Role.Manages() {
		return nil, fmt.Errorf("only managers can edit the menu: %w", models.ErrForbidden)
	}
	req.ItemName = strings.TrimSpace(req.ItemName)
	req.CategoryName = strings.TrimSpace(req.CategoryName)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	item, err := s.store.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("menu_item_added", "Menu item added", logger.RequestIDFromContext(ctx), map[string]interface{}{
		"item_id":  item.ID,
		"category": item.CategoryName,
	})
	s.audit.Record(ctx, actor.ID, models.ActionItemAdded,
		fmt.Sprintf("%s · %s", item.Name, item.PricePence()))
	return item, nil
}

// Update changes price, publish state or archive state of an item. Each
// effective change is audited separately.
func (s *Service) Update(ctx context.Context, actor *models.Staff, id int64, req *models.UpdateMenuItemRequest) (*models.MenuItem, error) {
	if actor == nil || !actor.Role.Manages() {
		return nil, fmt.Errorf("only managers can edit the menu: %w", models.ErrForbidden)
	}
	if req.Empty() {
		return nil, validation.Field("unit_cost", "At least one field must be provided.")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	before, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsPublished != nil && *req.IsPublished && before.IsArchived && (req.IsArchived == nil || *req.IsArchived) {
		return nil, validation.Field("is_published", "Archived items cannot be published.")
	}

	after, err := s.store.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}

	for _, change := range diffItem(before, after) {
		s.audit.Record(ctx, actor.ID, change.action, change.details)
	}
	return after, nil
}

// SetChannel toggles an item's availability for one order type
func (s *Service) SetChannel(ctx context.Context, actor *models.Staff, itemID int64, orderTypeID int, req *models.UpdateChannelRequest) (*models.ChannelStatus, error) {
	if actor == nil || !(actor.CanToggleChannel || actor.Role.Manages()) {
		return nil, fmt.Errorf("not permitted to toggle channels: %w", models.ErrForbidden)
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	orderType, err := models.OrderTypeFromID(orderTypeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNotFound, err)
	}

	item, err := s.store.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	status, err := s.store.UpdateChannel(ctx, itemID, orderType, *req.IsAvailable)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.ID, models.ActionChannelToggled,
		fmt.Sprintf("%s · %s %s", item.Name, orderType.Label(), availability(status.IsAvailable)))
	return status, nil
}

type itemChange struct {
	action  string
	details string
}

func diffItem(before, after *models.MenuItem) []itemChange {
	var changes []itemChange
	if !before.Price.Equal(after.Price) {
		changes = append(changes, itemChange{models.ActionPriceUpdated,
			fmt.Sprintf("%s: %s → %s", after.Name, before.PricePence(), after.PricePence())})
	}
	if before.IsArchived != after.IsArchived {
		action := models.ActionItemRestored
		if after.IsArchived {
			action = models.ActionItemArchived
		}
		changes = append(changes, itemChange{action, after.Name})
	}
	// Archiving implies unpublishing and is reported once.
	if before.IsPublished != after.IsPublished && !(after.IsArchived && !before.IsArchived) {
		action := models.ActionItemUnpublished
		if after.IsPublished {
			action = models.ActionItemPublished
		}
		changes = append(changes, itemChange{action, fmt.Sprintf("%s (%s)", after.Name, after.CategoryName)})
	}
	return changes
}

func availability(on bool) string {
	if on {
		return "available"
	}
	return "unavailable"
}
