package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// Voucher mirrors one row of the vouchers table.
type Voucher struct {
	ID          pgtype.UUID
	Code        string
	Kind        string
	Value       int64
	PercentBps  pgtype.Int4
	MaxDiscount int64
	UsageLimit  pgtype.Int4
	UsedCount   int32
	StartsAt    pgtype.Timestamptz
	EndsAt      pgtype.Timestamptz
}

// VoucherCondition mirrors one row of the voucher_conditions table. Only
// the columns matching Kind carry meaning.
type VoucherCondition struct {
	ID          pgtype.UUID
	VoucherID   pgtype.UUID
	Kind        string
	MinAmount   pgtype.Int8
	WardIDs     []int64
	ProductIDs  []pgtype.UUID
	CategoryIDs []pgtype.UUID
}

// MyVoucher is a customer's claimed instance of a voucher.
type MyVoucher struct {
	CustomerID pgtype.UUID
	VoucherID  pgtype.UUID
	IsUsed     bool
	ClaimedAt  pgtype.Timestamptz
}

// Vouchers persists voucher definitions, conditions and customer claims.
type Vouchers struct {
	DB DBTX
}

const voucherColumns = `id, code, kind, value, percent_bps, max_discount, usage_limit, used_count, starts_at, ends_at`

func scanVoucher(row interface{ Scan(...any) error }) (Voucher, error) {
	var v Voucher
	err := row.Scan(&v.ID, &v.Code, &v.Kind, &v.Value, &v.PercentBps, &v.MaxDiscount, &v.UsageLimit, &v.UsedCount, &v.StartsAt, &v.EndsAt)
	return v, err
}

// GetByCode fetches a voucher by its redemption code.
func (r Vouchers) GetByCode(ctx context.Context, code string) (Voucher, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE code = $1`, code)
	return scanVoucher(row)
}

// Create inserts a voucher definition.
func (r Vouchers) Create(ctx context.Context, v Voucher) (Voucher, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO vouchers (code, kind, value, percent_bps, max_discount, usage_limit, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+voucherColumns,
		v.Code, v.Kind, v.Value, v.PercentBps, v.MaxDiscount, v.UsageLimit, v.StartsAt, v.EndsAt)
	return scanVoucher(row)
}

// Update replaces the mutable fields of a voucher identified by code.
func (r Vouchers) Update(ctx context.Context, v Voucher) (Voucher, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE vouchers
		SET kind = $2, value = $3, percent_bps = $4, max_discount = $5, usage_limit = $6, starts_at = $7, ends_at = $8
		WHERE code = $1
		RETURNING `+voucherColumns,
		v.Code, v.Kind, v.Value, v.PercentBps, v.MaxDiscount, v.UsageLimit, v.StartsAt, v.EndsAt)
	return scanVoucher(row)
}

// ListConditions returns the conditions attached to a voucher in insertion order.
func (r Vouchers) ListConditions(ctx context.Context, voucherID pgtype.UUID) ([]VoucherCondition, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, voucher_id, kind, min_amount, ward_ids, product_ids, category_ids
		FROM voucher_conditions WHERE voucher_id = $1 ORDER BY created_at`, voucherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VoucherCondition
	for rows.Next() {
		var c VoucherCondition
		if err := rows.Scan(&c.ID, &c.VoucherID, &c.Kind, &c.MinAmount, &c.WardIDs, &c.ProductIDs, &c.CategoryIDs); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCondition attaches a condition to a voucher.
func (r Vouchers) CreateCondition(ctx context.Context, c VoucherCondition) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO voucher_conditions (voucher_id, kind, min_amount, ward_ids, product_ids, category_ids)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.VoucherID, c.Kind, c.MinAmount, c.WardIDs, c.ProductIDs, c.CategoryIDs)
	return err
}

// DeleteConditions removes all conditions for a voucher, used when an
// update replaces the condition set wholesale.
func (r Vouchers) DeleteConditions(ctx context.Context, voucherID pgtype.UUID) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM voucher_conditions WHERE voucher_id = $1`, voucherID)
	return err
}

// GetMyVoucher fetches a customer's claim for the voucher.
func (r Vouchers) GetMyVoucher(ctx context.Context, customerID, voucherID pgtype.UUID) (MyVoucher, error) {
	var m MyVoucher
	err := r.DB.QueryRow(ctx, `
		SELECT customer_id, voucher_id, is_used, claimed_at
		FROM my_vouchers WHERE customer_id = $1 AND voucher_id = $2`, customerID, voucherID).
		Scan(&m.CustomerID, &m.VoucherID, &m.IsUsed, &m.ClaimedAt)
	return m, err
}

// Claim records that a customer holds the voucher. The unique constraint
// deduplicates repeated claims.
func (r Vouchers) Claim(ctx context.Context, customerID, voucherID pgtype.UUID) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		INSERT INTO my_vouchers (customer_id, voucher_id)
		VALUES ($1, $2)
		ON CONFLICT (customer_id, voucher_id) DO NOTHING`, customerID, voucherID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListMyVouchers returns the vouchers a customer has claimed together with
// the used flag.
func (r Vouchers) ListMyVouchers(ctx context.Context, customerID pgtype.UUID) ([]MyVoucherRow, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT v.id, v.code, v.kind, v.value, v.percent_bps, v.max_discount, v.usage_limit, v.used_count, v.starts_at, v.ends_at, m.is_used
		FROM my_vouchers m
		JOIN vouchers v ON v.id = m.voucher_id
		WHERE m.customer_id = $1
		ORDER BY m.claimed_at DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MyVoucherRow
	for rows.Next() {
		var row MyVoucherRow
		if err := rows.Scan(&row.ID, &row.Code, &row.Kind, &row.Value, &row.PercentBps, &row.MaxDiscount, &row.UsageLimit, &row.UsedCount, &row.StartsAt, &row.EndsAt, &row.IsUsed); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MyVoucherRow is a claimed voucher joined with its definition.
type MyVoucherRow struct {
	Voucher
	IsUsed bool
}

// MarkMyVoucherUsed flags the customer's claim as spent.
func (r Vouchers) MarkMyVoucherUsed(ctx context.Context, customerID, voucherID pgtype.UUID) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE my_vouchers SET is_used = TRUE
		WHERE customer_id = $1 AND voucher_id = $2`, customerID, voucherID)
	return err
}

// ConsumeUsage increments used_count only while it is still below the
// usage limit. It reports whether a slot was consumed; callers re-check
// eligibility when it returns false. Running it inside the order
// transaction makes the read-modify-write atomic under row locking.
func (r Vouchers) ConsumeUsage(ctx context.Context, voucherID pgtype.UUID) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE vouchers SET used_count = used_count + 1
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`, voucherID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
