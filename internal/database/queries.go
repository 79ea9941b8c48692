package database

// Catalog queries
const (
	GetCategoriesSQL = `
		SELECT id, name, description, created_at, updated_at
		FROM categories
		ORDER BY name ASC`

	GetCategoryByIDSQL = `
		SELECT id, name, description, created_at, updated_at
		FROM categories WHERE id = $1`

	InsertCategorySQL = `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING id`

	UpdateCategorySQL = `
		UPDATE categories SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3`

	DeleteCategorySQL = `
		DELETE FROM categories WHERE id = $1`

	GetMenuItemsSQL = `
		SELECT id, name, description, price, image_url, category_id, tags, available, created_at, updated_at
		FROM menu_items
		ORDER BY name ASC`

	GetMenuItemsByCategorySQL = `
		SELECT id, name, description, price, image_url, category_id, tags, available, created_at, updated_at
		FROM menu_items
		WHERE category_id = $1
		ORDER BY name ASC`

	GetMenuItemByIDSQL = `
		SELECT id, name, description, price, image_url, category_id, tags, available, created_at, updated_at
		FROM menu_items WHERE id = $1`

	InsertMenuItemSQL = `
		INSERT INTO menu_items (name, description, price, image_url, category_id, tags, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	UpdateMenuItemSQL = `
		UPDATE menu_items
		SET name = $1, description = $2, price = $3, image_url = $4,
			category_id = $5, tags = $6, available = $7, updated_at = NOW()
		WHERE id = $8`

	DeleteMenuItemSQL = `
		DELETE FROM menu_items WHERE id = $1`
)

// Table directory queries
const (
	GetTablesSQL = `
		SELECT id, number, section, seats, status, qr_code, created_at, updated_at
		FROM restaurant_tables
		ORDER BY number ASC`

	GetTableByIDSQL = `
		SELECT id, number, section, seats, status, qr_code, created_at, updated_at
		FROM restaurant_tables WHERE id = $1`

	InsertTableSQL = `
		INSERT INTO restaurant_tables (id, number, section, seats, status, qr_code)
		VALUES ($1, $2, $3, $4, $5, $6)`

	UpdateTableSQL = `
		UPDATE restaurant_tables
		SET number = $1, section = $2, seats = $3, status = $4, qr_code = $5, updated_at = NOW()
		WHERE id = $6`

	DeleteTableSQL = `
		DELETE FROM restaurant_tables WHERE id = $1`
)

// Order queries
const (
	InsertOrderSQL = `
		INSERT INTO orders (number, table_id, status, total_price, idempotency_key, estimated_ready_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	InsertOrderItemSQL = `
		INSERT INTO order_items (order_id, menu_item_id, name, quantity, price, special_instructions)
		VALUES ($1, $2, $3, $4, $5, $6)`

	InsertOrderStatusLogSQL = `
		INSERT INTO order_status_log (order_id, status, changed_by, notes)
		VALUES ($1, $2, $3, $4)`

	GetOrderByIDSQL = `
		SELECT id, number, table_id, status, total_price, created_at, estimated_ready_at
		FROM orders WHERE id = $1`

	GetOrderByIdempotencyKeySQL = `
		SELECT id, number, table_id, status, total_price, created_at, estimated_ready_at
		FROM orders WHERE idempotency_key = $1`

	GetOrderItemsSQL = `
		SELECT id, order_id, menu_item_id, name, quantity, price, special_instructions
		FROM order_items
		WHERE order_id = $1
		ORDER BY id ASC`

	GetOrdersByStatusSQL = `
		SELECT id, number, table_id, status, total_price, created_at, estimated_ready_at
		FROM orders
		WHERE status = $1
		ORDER BY created_at DESC`

	GetAllOrdersSQL = `
		SELECT id, number, table_id, status, total_price, created_at, estimated_ready_at
		FROM orders
		ORDER BY created_at DESC`

	GetActiveOrdersSQL = `
		SELECT id, number, table_id, status, total_price, created_at, estimated_ready_at
		FROM orders
		WHERE status NOT IN ('delivered', 'cancelled')
		ORDER BY created_at ASC`

	UpdateOrderStatusSQL = `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2`

	GetOrderStatusHistorySQL = `
		SELECT status, changed_by, changed_at, notes
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC`

	GetNextOrderSequenceSQL = `
		SELECT COALESCE(MAX(CAST(SUBSTRING(number FROM 'ORD_[0-9]{8}_([0-9]{3})') AS INTEGER)), 0) + 1
		FROM orders
		WHERE number LIKE $1`
)
