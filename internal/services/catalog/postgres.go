package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bakery-pos/internal/database"
	"bakery-pos/internal/models"
)

// Repository stores the catalog in PostgreSQL
type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

func scanItem(row pgx.Row) (*models.MenuItem, error) {
	var m models.MenuItem
	if err := row.Scan(&m.ID, &m.Name, &m.Price, &m.CategoryName, &m.IsPublished, &m.IsArchived, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Channels = []models.Channel{}
	return &m, nil
}

// List returns every item with its channel flags
func (r *Repository) List(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := r.db.Query(ctx, database.ListMenuItemsSQL)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()

	items := []models.MenuItem{}
	for rows.Next() {
		m, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	channels, err := listChannels(ctx, r.db, nil)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if c, ok := channels[items[i].ID]; ok {
			items[i].Channels = c
		}
	}
	return items, nil
}

// Get returns one item with its channel flags
func (r *Repository) Get(ctx context.Context, id int64) (*models.MenuItem, error) {
	return getItem(ctx, r.db, id)
}

func getItem(ctx context.Context, q database.Querier, id int64) (*models.MenuItem, error) {
	m, err := scanItem(q.QueryRow(ctx, database.GetMenuItemSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("menu item %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get menu item: %w", err)
	}

	channels, err := listChannels(ctx, q, &id)
	if err != nil {
		return nil, err
	}
	if c, ok := channels[id]; ok {
		m.Channels = c
	}
	return m, nil
}

// GetMany returns the items among ids that exist, keyed by id
func (r *Repository) GetMany(ctx context.Context, ids []int64) (map[int64]models.MenuItem, error) {
	rows, err := r.db.Query(ctx, database.GetMenuItemsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("get menu items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]models.MenuItem, len(ids))
	for rows.Next() {
		m, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		out[m.ID] = *m
	}
	return out, rows.Err()
}

func listChannels(ctx context.Context, q database.Querier, itemID *int64) (map[int64][]models.Channel, error) {
	rows, err := q.Query(ctx, database.ListChannelStatusesSQL, itemID)
	if err != nil {
		return nil, fmt.Errorf("list channel statuses: %w", err)
	}
	defer rows.Close()

	out := map[int64][]models.Channel{}
	for rows.Next() {
		var id int64
		var c models.Channel
		if err := rows.Scan(&id, &c.OrderTypeID, &c.IsAvailable); err != nil {
			return nil, fmt.Errorf("scan channel status: %w", err)
		}
		out[id] = append(out[id], c)
	}
	return out, rows.Err()
}

// Categories returns the distinct category names
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, database.ListCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Create inserts an item and one available channel row per order type
func (r *Repository) Create(ctx context.Context, req *models.CreateMenuItemRequest) (*models.MenuItem, error) {
	published := true
	if req.IsPublished != nil {
		published = *req.IsPublished
	}

	var created *models.MenuItem
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var id int64
		if err := tx.QueryRow(ctx, database.InsertMenuItemSQL,
			req.ItemName, *req.UnitCost, req.CategoryName, published).Scan(&id); err != nil {
			return fmt.Errorf("insert menu item: %w", err)
		}
		for _, t := range models.OrderTypes {
			if _, err := tx.Exec(ctx, database.InsertChannelStatusSQL, id, t.ID()); err != nil {
				return fmt.Errorf("insert channel status: %w", err)
			}
		}

		var err error
		created, err = getItem(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update applies req. Archiving unpublishes; an explicit publish flag is
// copied onto every channel of the item.
func (r *Repository) Update(ctx context.Context, id int64, req *models.UpdateMenuItemRequest) (*models.MenuItem, error) {
	var updated *models.MenuItem
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, database.UpdateMenuItemSQL, id, req.UnitCost, req.IsPublished, req.IsArchived)
		if err != nil {
			return fmt.Errorf("update menu item: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("menu item %d: %w", id, models.ErrNotFound)
		}

		updated, err = getItem(ctx, tx, id)
		if err != nil {
			return err
		}

		if req.IsPublished != nil || req.IsArchived != nil {
			if _, err := tx.Exec(ctx, database.SyncChannelStatusesSQL, id, updated.IsPublished); err != nil {
				return fmt.Errorf("sync channel statuses: %w", err)
			}
			for i := range updated.Channels {
				updated.Channels[i].IsAvailable = updated.IsPublished
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateChannel sets one channel flag
func (r *Repository) UpdateChannel(ctx context.Context, itemID int64, orderType models.OrderType, available bool) (*models.ChannelStatus, error) {
	var cs models.ChannelStatus
	err := r.db.QueryRow(ctx, database.UpdateChannelStatusSQL, itemID, orderType.ID(), available).
		Scan(&cs.ItemID, &cs.OrderTypeID, &cs.IsAvailable)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("channel %d/%d: %w", itemID, orderType.ID(), models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update channel status: %w", err)
	}
	return &cs, nil
}

// AddOns returns the add-ons among ids that exist, keyed by id
func (r *Repository) AddOns(ctx context.Context, ids []int64) (map[int64]models.AddOn, error) {
	out := make(map[int64]models.AddOn, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, database.GetAddOnsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("get add-ons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.AddOn
		if err := rows.Scan(&a.ID, &a.Name, &a.Price); err != nil {
			return nil, fmt.Errorf("scan add-on: %w", err)
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}
