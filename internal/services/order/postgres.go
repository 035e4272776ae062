package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"bakery-pos/internal/database"
	"bakery-pos/internal/models"
)

// Repository stores orders in PostgreSQL
type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Create writes the order header, its lines with add-ons and the payment in
// one transaction and returns the stored order.
func (r *Repository) Create(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	var created *models.Order
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var orderID int64
		err := tx.QueryRow(ctx, database.InsertOrderSQL,
			string(req.OrderType),
			req.CustomerName,
			string(models.StatusPaid),
			req.TableID,
			req.StaffID,
		).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, line := range req.Items {
			var lineID int64
			if err := tx.QueryRow(ctx, database.InsertOrderedItemSQL, orderID, line.ItemID, line.Quantity).Scan(&lineID); err != nil {
				return fmt.Errorf("insert ordered item %d: %w", line.ItemID, err)
			}
			for _, addOnID := range uniqueIDs(line.AddOnIDs) {
				if _, err := tx.Exec(ctx, database.InsertOrderedItemAddOnSQL, lineID, addOnID); err != nil {
					return fmt.Errorf("insert ordered item add-on %d: %w", addOnID, err)
				}
			}
		}

		if _, err := tx.Exec(ctx, database.InsertPaymentSQL,
			orderID,
			*req.Total,
			*req.Subtotal,
			*req.VATAmount,
			*req.ServiceAmount,
			string(req.PaymentMethod),
		); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		created, err = getOrder(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Get returns one order with its lines
func (r *Repository) Get(ctx context.Context, id int64) (*models.Order, error) {
	return getOrder(ctx, r.db, id)
}

// List returns orders created at or after since, newest first. A nil since
// returns every order.
func (r *Repository) List(ctx context.Context, since *time.Time) ([]models.Order, error) {
	rows, err := r.db.Query(ctx, database.ListOrdersSQL, since)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := attachItems(ctx, r.db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CashTakingsSince sums cash payments for orders created at or after since
func (r *Repository) CashTakingsSince(ctx context.Context, since time.Time) (decimal.Decimal, int, error) {
	var total decimal.Decimal
	var count int
	if err := r.db.QueryRow(ctx, database.CashTakingsSinceSQL, since).Scan(&total, &count); err != nil {
		return decimal.Zero, 0, fmt.Errorf("sum cash takings: %w", err)
	}
	return total, count, nil
}

func getOrder(ctx context.Context, q database.Querier, id int64) (*models.Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, database.GetOrderSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	orders := []models.Order{*o}
	if err := attachItems(ctx, q, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	var orderType, status string
	var updatedAt time.Time
	var total, subtotal, vat, service *decimal.Decimal
	var method *string

	err := row.Scan(
		&o.ID,
		&o.CustomerName,
		&orderType,
		&status,
		&o.CreatedAt,
		&updatedAt,
		&o.StaffID,
		&o.CreatedBy,
		&o.TableID,
		&total,
		&subtotal,
		&vat,
		&service,
		&method,
	)
	if err != nil {
		return nil, err
	}

	o.OrderType = models.OrderType(orderType)
	o.Status = models.OrderStatus(status)
	o.PaidAt = o.CreatedAt
	o.Items = []models.OrderedItem{}
	if total != nil && method != nil {
		o.Payment = &models.Payment{
			Total:         *total,
			Subtotal:      deref(subtotal),
			VATAmount:     deref(vat),
			ServiceAmount: deref(service),
			Method:        models.PaymentMethod(*method),
		}
	}
	return &o, nil
}

// attachItems loads the lines and add-ons of orders in two queries
func attachItems(ctx context.Context, q database.Querier, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := q.Query(ctx, database.ListOrderedItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("list ordered items: %w", err)
	}

	type linePos struct{ order, line int }
	lines := map[int64]linePos{}
	var lineIDs []int64
	for rows.Next() {
		var orderID, lineID int64
		var it models.OrderedItem
		if err := rows.Scan(&orderID, &lineID, &it.ItemID, &it.Name, &it.Price, &it.Quantity); err != nil {
			rows.Close()
			return fmt.Errorf("scan ordered item: %w", err)
		}
		oi := index[orderID]
		orders[oi].Items = append(orders[oi].Items, it)
		lines[lineID] = linePos{oi, len(orders[oi].Items) - 1}
		lineIDs = append(lineIDs, lineID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(lineIDs) == 0 {
		return nil
	}

	rows, err = q.Query(ctx, database.ListOrderedItemAddOnsSQL, lineIDs)
	if err != nil {
		return fmt.Errorf("list ordered item add-ons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var lineID int64
		var a models.AddOn
		if err := rows.Scan(&lineID, &a.ID, &a.Name, &a.Price); err != nil {
			return fmt.Errorf("scan ordered item add-on: %w", err)
		}
		pos := lines[lineID]
		item := &orders[pos.order].Items[pos.line]
		item.AddOns = append(item.AddOns, a)
	}
	return rows.Err()
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
