package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// Product mirrors one row of the products table.
type Product struct {
	ID            pgtype.UUID
	Title         string
	Slug          string
	Price         int64
	DiscountBps   pgtype.Int4
	DiscountStart pgtype.Timestamptz
	DiscountEnd   pgtype.Timestamptz
	Stock         int32
	CategoryID    pgtype.UUID
}

// Products provides read access to the catalog.
type Products struct {
	DB DBTX
}

const productColumns = `id, title, slug, price, discount_bps, discount_start, discount_end, stock, category_id`

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Price, &p.DiscountBps, &p.DiscountStart, &p.DiscountEnd, &p.Stock, &p.CategoryID)
	return p, err
}

// GetByID fetches one product by primary key.
func (r Products) GetByID(ctx context.Context, id pgtype.UUID) (Product, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// GetBySlug fetches one product by slug.
func (r Products) GetBySlug(ctx context.Context, slug string) (Product, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
	return scanProduct(row)
}

// List returns a page of products ordered by title.
func (r Products) List(ctx context.Context, limit, offset int32) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY title LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns the total number of products.
func (r Products) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&n)
	return n, err
}
