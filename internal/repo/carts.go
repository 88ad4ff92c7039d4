package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// Cart mirrors one row of the carts table.
type Cart struct {
	ID                 pgtype.UUID
	CustomerID         pgtype.UUID
	AnonID             pgtype.Text
	WardID             pgtype.Int8
	AppliedVoucherCode pgtype.Text
	ExpiresAt          pgtype.Timestamptz
}

// CartItem mirrors one row of the cart_items table. Price and discount
// window are snapshots captured when the line was added.
type CartItem struct {
	ID            pgtype.UUID
	CartID        pgtype.UUID
	ProductID     pgtype.UUID
	CategoryID    pgtype.UUID
	Title         string
	Qty           int32
	UnitPrice     int64
	DiscountBps   pgtype.Int4
	DiscountStart pgtype.Timestamptz
	DiscountEnd   pgtype.Timestamptz
}

// Carts persists carts and their lines.
type Carts struct {
	DB DBTX
}

const cartColumns = `id, customer_id, anon_id, ward_id, applied_voucher_code, expires_at`
const cartItemColumns = `id, cart_id, product_id, category_id, title, qty, unit_price, discount_bps, discount_start, discount_end`

func scanCart(row interface{ Scan(...any) error }) (Cart, error) {
	var c Cart
	err := row.Scan(&c.ID, &c.CustomerID, &c.AnonID, &c.WardID, &c.AppliedVoucherCode, &c.ExpiresAt)
	return c, err
}

func scanCartItem(row interface{ Scan(...any) error }) (CartItem, error) {
	var it CartItem
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.CategoryID, &it.Title, &it.Qty, &it.UnitPrice, &it.DiscountBps, &it.DiscountStart, &it.DiscountEnd)
	return it, err
}

// Create inserts a cart for either a customer or an anonymous visitor.
func (r Carts) Create(ctx context.Context, customerID pgtype.UUID, anonID pgtype.Text, wardID pgtype.Int8, expiresAt pgtype.Timestamptz) (Cart, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO carts (customer_id, anon_id, ward_id, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING `+cartColumns, customerID, anonID, wardID, expiresAt)
	return scanCart(row)
}

// GetByID fetches a cart by primary key.
func (r Carts) GetByID(ctx context.Context, id pgtype.UUID) (Cart, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1`, id)
	return scanCart(row)
}

// GetActiveByCustomer returns the customer's newest unexpired cart.
func (r Carts) GetActiveByCustomer(ctx context.Context, customerID pgtype.UUID) (Cart, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+cartColumns+` FROM carts
		WHERE customer_id = $1 AND expires_at > now()
		ORDER BY expires_at DESC LIMIT 1`, customerID)
	return scanCart(row)
}

// GetActiveByAnon returns the visitor's newest unexpired cart.
func (r Carts) GetActiveByAnon(ctx context.Context, anonID pgtype.Text) (Cart, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+cartColumns+` FROM carts
		WHERE anon_id = $1 AND expires_at > now()
		ORDER BY expires_at DESC LIMIT 1`, anonID)
	return scanCart(row)
}

// Touch extends the cart expiry.
func (r Carts) Touch(ctx context.Context, id pgtype.UUID, expiresAt pgtype.Timestamptz) error {
	_, err := r.DB.Exec(ctx, `UPDATE carts SET expires_at = $2 WHERE id = $1`, id, expiresAt)
	return err
}

// SetWard updates the delivery ward used for voucher location checks and
// shipping quotes.
func (r Carts) SetWard(ctx context.Context, id pgtype.UUID, wardID pgtype.Int8) error {
	_, err := r.DB.Exec(ctx, `UPDATE carts SET ward_id = $2 WHERE id = $1`, id, wardID)
	return err
}

// SetVoucher stores or clears the applied voucher code.
func (r Carts) SetVoucher(ctx context.Context, id pgtype.UUID, code pgtype.Text) error {
	_, err := r.DB.Exec(ctx, `UPDATE carts SET applied_voucher_code = $2 WHERE id = $1`, id, code)
	return err
}

// ListItems returns the cart lines in insertion order.
func (r Carts) ListItems(ctx context.Context, cartID pgtype.UUID) ([]CartItem, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = $1 ORDER BY created_at`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CartItem
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// FindItemByProduct locates an existing line for the product.
func (r Carts) FindItemByProduct(ctx context.Context, cartID, productID pgtype.UUID) (CartItem, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	return scanCartItem(row)
}

// GetItemByID fetches a single cart line.
func (r Carts) GetItemByID(ctx context.Context, id pgtype.UUID) (CartItem, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+cartItemColumns+` FROM cart_items WHERE id = $1`, id)
	return scanCartItem(row)
}

// CreateItem inserts a cart line with its pricing snapshot.
func (r Carts) CreateItem(ctx context.Context, it CartItem) (CartItem, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO cart_items (cart_id, product_id, category_id, title, qty, unit_price, discount_bps, discount_start, discount_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+cartItemColumns,
		it.CartID, it.ProductID, it.CategoryID, it.Title, it.Qty, it.UnitPrice, it.DiscountBps, it.DiscountStart, it.DiscountEnd)
	return scanCartItem(row)
}

// UpdateItemQty changes the quantity on a line.
func (r Carts) UpdateItemQty(ctx context.Context, id pgtype.UUID, qty int32) error {
	_, err := r.DB.Exec(ctx, `UPDATE cart_items SET qty = $2 WHERE id = $1`, id, qty)
	return err
}

// DeleteItem removes a line from the cart.
func (r Carts) DeleteItem(ctx context.Context, id, cartID pgtype.UUID) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, id, cartID)
	return err
}
