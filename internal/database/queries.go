package database

// Staff queries
const (
	staffColumns = `staff_id, full_name, access_code, dob, email, joined_date, is_active,
			   role_name, can_toggle_channel, can_waste, can_refund, created_at, updated_at`

	GetStaffByIDSQL = `
		SELECT ` + staffColumns + `
		FROM staff WHERE staff_id = $1`

	GetActiveStaffByAccessCodeSQL = `
		SELECT ` + staffColumns + `
		FROM staff WHERE access_code = $1 AND is_active`

	ListStaffSQL = `
		SELECT ` + staffColumns + `
		FROM staff ORDER BY created_at DESC, staff_id DESC`

	InsertStaffSQL = `
		INSERT INTO staff (full_name, access_code, dob, email, joined_date, is_active,
			role_name, can_toggle_channel, can_waste, can_refund)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + staffColumns

	UpdateStaffSQL = `
		UPDATE staff SET
			is_active          = COALESCE($2, is_active),
			can_toggle_channel = COALESCE($3, can_toggle_channel),
			can_waste          = COALESCE($4, can_waste),
			can_refund         = COALESCE($5, can_refund),
			updated_at         = NOW()
		WHERE staff_id = $1
		RETURNING ` + staffColumns
)

// Menu queries
const (
	ListMenuItemsSQL = `
		SELECT item_id, item_name, unit_cost, category_name, is_published, is_archived, updated_at
		FROM menu_items
		ORDER BY category_name, item_name`

	GetMenuItemSQL = `
		SELECT item_id, item_name, unit_cost, category_name, is_published, is_archived, updated_at
		FROM menu_items WHERE item_id = $1`

	GetMenuItemsByIDsSQL = `
		SELECT item_id, item_name, unit_cost, category_name, is_published, is_archived, updated_at
		FROM menu_items WHERE item_id = ANY($1)`

	ListChannelStatusesSQL = `
		SELECT item_id, order_type_id, is_available
		FROM menu_channel_statuses
		WHERE $1::bigint IS NULL OR item_id = $1
		ORDER BY item_id, order_type_id`

	ListCategoriesSQL = `
		SELECT DISTINCT category_name FROM menu_items ORDER BY category_name`

	InsertMenuItemSQL = `
		INSERT INTO menu_items (item_name, unit_cost, category_name, is_published)
		VALUES ($1, $2, $3, $4)
		RETURNING item_id`

	InsertChannelStatusSQL = `
		INSERT INTO menu_channel_statuses (item_id, order_type_id, is_available)
		VALUES ($1, $2, TRUE)`

	// Archiving always unpublishes.
	UpdateMenuItemSQL = `
		UPDATE menu_items SET
			unit_cost    = COALESCE($2, unit_cost),
			is_archived  = COALESCE($4, is_archived),
			is_published = CASE WHEN COALESCE($4, is_archived) THEN FALSE
			                    ELSE COALESCE($3, is_published) END,
			updated_at   = NOW()
		WHERE item_id = $1`

	SyncChannelStatusesSQL = `
		UPDATE menu_channel_statuses SET is_available = $2, updated_at = NOW()
		WHERE item_id = $1`

	UpdateChannelStatusSQL = `
		UPDATE menu_channel_statuses SET is_available = $3, updated_at = NOW()
		WHERE item_id = $1 AND order_type_id = $2
		RETURNING item_id, order_type_id, is_available`

	GetAddOnsByIDsSQL = `
		SELECT add_on_id, add_on_item, add_on_price
		FROM add_ons WHERE add_on_id = ANY($1)`
)

// Order queries
const (
	InsertOrderSQL = `
		INSERT INTO orders (order_type_name, customer_name, status_name, table_id,
			created_staff_id, updated_staff_id, order_created_datetime, order_updated_datetime)
		VALUES ($1, $2, $3, $4, $5, $5, NOW(), NOW())
		RETURNING order_id`

	InsertOrderedItemSQL = `
		INSERT INTO ordered_items (order_id, item_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING ordered_items_id`

	InsertOrderedItemAddOnSQL = `
		INSERT INTO ordered_item_add_ons (ordered_items_id, add_on_id)
		VALUES ($1, $2)`

	InsertPaymentSQL = `
		INSERT INTO payments (order_id, total, subtotal, vat_amount, service_amount, payment_method_name)
		VALUES ($1, $2, $3, $4, $5, $6)`

	orderHeaderSelect = `
		SELECT o.order_id, o.customer_name, o.order_type_name, o.status_name,
			   o.order_created_datetime, o.order_updated_datetime, o.created_staff_id,
			   COALESCE(s.full_name, 'Unknown'), o.table_id,
			   p.total, p.subtotal, p.vat_amount, p.service_amount, p.payment_method_name
		FROM orders o
		LEFT JOIN staff s ON s.staff_id = o.created_staff_id
		LEFT JOIN payments p ON p.order_id = o.order_id`

	GetOrderSQL = orderHeaderSelect + `
		WHERE o.order_id = $1`

	ListOrdersSQL = orderHeaderSelect + `
		WHERE $1::timestamptz IS NULL OR o.order_created_datetime >= $1
		ORDER BY o.order_created_datetime DESC, o.order_id DESC`

	ListOrderedItemsSQL = `
		SELECT oi.order_id, oi.ordered_items_id, oi.item_id,
			   COALESCE(m.item_name, 'Unknown'), COALESCE(m.unit_cost, 0), oi.quantity
		FROM ordered_items oi
		LEFT JOIN menu_items m ON m.item_id = oi.item_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.ordered_items_id`

	ListOrderedItemAddOnsSQL = `
		SELECT d.ordered_items_id, a.add_on_id, a.add_on_item, a.add_on_price
		FROM ordered_item_add_ons d
		JOIN add_ons a ON a.add_on_id = d.add_on_id
		WHERE d.ordered_items_id = ANY($1)
		ORDER BY d.ordered_items_id, a.add_on_id`

	CashTakingsSinceSQL = `
		SELECT COALESCE(SUM(p.total), 0), COUNT(*)
		FROM payments p
		JOIN orders o ON o.order_id = p.order_id
		WHERE p.payment_method_name = 'cash' AND o.order_created_datetime >= $1`
)

// Waste queries
const (
	wasteSelect = `
		SELECT w.waste_id, w.staff_id, w.item_id, w.item_name, w.category_name,
			   w.quantity, w.unit_cost, COALESCE(s.full_name, 'Unknown'), w.waste_datetime
		FROM waste w
		LEFT JOIN staff s ON s.staff_id = w.staff_id`

	ListWasteSQL = wasteSelect + `
		WHERE $1::timestamptz IS NULL OR w.waste_datetime >= $1
		ORDER BY w.waste_datetime DESC, w.waste_id DESC`

	GetWasteSQL = wasteSelect + `
		WHERE w.waste_id = $1`

	InsertWasteSQL = `
		INSERT INTO waste (staff_id, item_id, item_name, category_name, quantity, unit_cost)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING waste_id`

	DeleteWasteSQL = `
		DELETE FROM waste WHERE waste_id = $1`
)

// Audit queries
const (
	// Actor name and role are copied from the staff row at write time and
	// the timestamp comes from the database clock.
	InsertAuditLogSQL = `
		INSERT INTO audit_logs (staff_id, action, details, user_name, role)
		SELECT staff_id, $2, $3, full_name, role_name
		FROM staff WHERE staff_id = $1
		RETURNING log_id, log_timestamp, staff_id, user_name, role, action, details`

	ListAuditLogsSQL = `
		SELECT log_id, log_timestamp, staff_id, user_name, role, action, details
		FROM audit_logs
		ORDER BY log_timestamp DESC, log_id DESC`
)
