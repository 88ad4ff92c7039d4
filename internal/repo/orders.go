package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// Order mirrors one row of the orders table. The pricing columns are the
// totalizer output at checkout time.
type Order struct {
	ID              pgtype.UUID
	CustomerID      pgtype.UUID
	CartID          pgtype.UUID
	Status          string
	Currency        string
	Subtotal        int64
	ShippingFee     int64
	VoucherDiscount int64
	GrandTotal      int64
	VoucherCode     pgtype.Text
	WardID          pgtype.Int8
	CreatedAt       pgtype.Timestamptz
}

// OrderItem mirrors one row of the order_items table.
type OrderItem struct {
	ID        pgtype.UUID
	OrderID   pgtype.UUID
	ProductID pgtype.UUID
	Title     string
	Qty       int32
	UnitPrice int64
	Total     int64
}

// Orders persists orders and their lines.
type Orders struct {
	DB DBTX
}

const orderColumns = `id, customer_id, cart_id, status, currency, subtotal, shipping_fee, voucher_discount, grand_total, voucher_code, ward_id, created_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.CartID, &o.Status, &o.Currency, &o.Subtotal, &o.ShippingFee, &o.VoucherDiscount, &o.GrandTotal, &o.VoucherCode, &o.WardID, &o.CreatedAt)
	return o, err
}

// Create inserts an order.
func (r Orders) Create(ctx context.Context, o Order) (Order, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO orders (customer_id, cart_id, status, currency, subtotal, shipping_fee, voucher_discount, grand_total, voucher_code, ward_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+orderColumns,
		o.CustomerID, o.CartID, o.Status, o.Currency, o.Subtotal, o.ShippingFee, o.VoucherDiscount, o.GrandTotal, o.VoucherCode, o.WardID)
	return scanOrder(row)
}

// CreateItem inserts an order line.
func (r Orders) CreateItem(ctx context.Context, it OrderItem) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO order_items (order_id, product_id, title, qty, unit_price, total)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		it.OrderID, it.ProductID, it.Title, it.Qty, it.UnitPrice, it.Total)
	return err
}

// GetByID fetches one order.
func (r Orders) GetByID(ctx context.Context, id pgtype.UUID) (Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// ListByCustomer returns the customer's orders, newest first.
func (r Orders) ListByCustomer(ctx context.Context, customerID pgtype.UUID, limit, offset int32) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListItems returns the lines of an order.
func (r Orders) ListItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, title, qty, unit_price, total
		FROM order_items WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Title, &it.Qty, &it.UnitPrice, &it.Total); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
