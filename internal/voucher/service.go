package voucher

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/minhnb-dev/backend-cuahang/internal/events"
	"github.com/minhnb-dev/backend-cuahang/internal/obs"
	"github.com/minhnb-dev/backend-cuahang/internal/pricing"
	"github.com/minhnb-dev/backend-cuahang/internal/repo"
)

// ErrNotFound is returned when no voucher carries the requested code.
var ErrNotFound = errors.New("voucher not found")

// Store captures the persistence methods the voucher service needs.
// repo.Vouchers satisfies it against the pool or a transaction.
type Store interface {
	GetByCode(ctx context.Context, code string) (repo.Voucher, error)
	Create(ctx context.Context, v repo.Voucher) (repo.Voucher, error)
	Update(ctx context.Context, v repo.Voucher) (repo.Voucher, error)
	ListConditions(ctx context.Context, voucherID pgtype.UUID) ([]repo.VoucherCondition, error)
	CreateCondition(ctx context.Context, c repo.VoucherCondition) error
	DeleteConditions(ctx context.Context, voucherID pgtype.UUID) error
	GetMyVoucher(ctx context.Context, customerID, voucherID pgtype.UUID) (repo.MyVoucher, error)
	Claim(ctx context.Context, customerID, voucherID pgtype.UUID) (bool, error)
	ListMyVouchers(ctx context.Context, customerID pgtype.UUID) ([]repo.MyVoucherRow, error)
	MarkMyVoucherUsed(ctx context.Context, customerID, voucherID pgtype.UUID) error
	ConsumeUsage(ctx context.Context, voucherID pgtype.UUID) (bool, error)
}

// Service wraps the pure evaluator with persistence: it loads definitions,
// builds the evaluation snapshot and settles usage counters.
type Service struct {
	Store Store
	Bus   *events.Bus
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// WithStore returns a copy of the service bound to st, typically a
// transaction-scoped repository during checkout.
func (s *Service) WithStore(st Store) *Service {
	if s == nil {
		return &Service{Store: st}
	}
	clone := *s
	clone.Store = st
	return &clone
}

// CheckInput is one evaluation request against the current cart state.
type CheckInput struct {
	Code       string
	CustomerID pgtype.UUID
	WardID     int64
	Subtotal   pricing.Money
	Items      []Item
}

// CheckResult pairs the evaluation outcome with the discount the voucher
// would grant on the given subtotal.
type CheckResult struct {
	Code     string        `json:"code"`
	Result   Result        `json:"result"`
	Discount pricing.Money `json:"discount"`
}

// Check evaluates the voucher against the input without mutating any state.
func (s *Service) Check(ctx context.Context, in CheckInput) (CheckResult, error) {
	if s == nil || s.Store == nil {
		return CheckResult{}, errors.New("voucher service not configured")
	}
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" {
		return CheckResult{}, ErrNotFound
	}
	v, err := s.Store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CheckResult{}, ErrNotFound
		}
		return CheckResult{}, err
	}
	rule, err := s.loadRule(ctx, v)
	if err != nil {
		return CheckResult{}, err
	}
	used, err := s.alreadyUsed(ctx, in.CustomerID, v.ID)
	if err != nil {
		return CheckResult{}, err
	}
	res, err := Evaluate(rule, Context{
		Now:         s.now(),
		WardID:      in.WardID,
		Subtotal:    in.Subtotal,
		Items:       in.Items,
		AlreadyUsed: used,
	})
	if err != nil {
		return CheckResult{}, err
	}
	if obs.VoucherEvaluationsTotal != nil {
		obs.VoucherEvaluationsTotal.WithLabelValues(string(res.Reason)).Inc()
	}
	out := CheckResult{Code: v.Code, Result: res}
	if res.Valid {
		out.Discount = Discount(rule, in.Subtotal)
	}
	return out, nil
}

// Redeem re-evaluates the voucher and, when redeemable, consumes one usage
// slot and flags the customer's claim as spent. It must run with a store
// bound to the order transaction so settlement commits or rolls back with
// the order. Losing the usage race maps to USAGE_LIMIT_REACHED.
func (s *Service) Redeem(ctx context.Context, in CheckInput) (CheckResult, error) {
	if s == nil || s.Store == nil {
		return CheckResult{}, errors.New("voucher service not configured")
	}
	out, err := s.Check(ctx, in)
	if err != nil {
		return CheckResult{}, err
	}
	if !out.Result.Valid {
		s.countRedemption("ineligible")
		return out, nil
	}
	v, err := s.Store.GetByCode(ctx, out.Code)
	if err != nil {
		return CheckResult{}, err
	}
	consumed, err := s.Store.ConsumeUsage(ctx, v.ID)
	if err != nil {
		return CheckResult{}, err
	}
	if !consumed {
		s.countRedemption("usage_race_lost")
		out.Result = Result{Reason: ReasonUsageLimitReached}
		out.Discount = 0
		return out, nil
	}
	if in.CustomerID.Valid {
		if err := s.Store.MarkMyVoucherUsed(ctx, in.CustomerID, v.ID); err != nil {
			return CheckResult{}, err
		}
	}
	s.countRedemption("ok")
	s.emit(ctx, events.TopicVoucherRedeemed, v.ID, map[string]any{
		"code":     v.Code,
		"discount": out.Discount,
	})
	return out, nil
}

func (s *Service) countRedemption(result string) {
	if obs.VoucherRedemptionsTotal != nil {
		obs.VoucherRedemptionsTotal.WithLabelValues(result).Inc()
	}
}

// Claim records that the customer holds the voucher. Claiming again is a
// no-op. Expired vouchers cannot be claimed.
func (s *Service) Claim(ctx context.Context, customerID pgtype.UUID, code string) (bool, error) {
	if s == nil || s.Store == nil {
		return false, errors.New("voucher service not configured")
	}
	v, err := s.Store.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}
	if v.EndsAt.Valid && s.now().After(v.EndsAt.Time) {
		return false, ErrNotFound
	}
	claimed, err := s.Store.Claim(ctx, customerID, v.ID)
	if err != nil {
		return false, err
	}
	if claimed {
		s.emit(ctx, events.TopicVoucherClaimed, v.ID, map[string]any{
			"code":        v.Code,
			"customer_id": repo.UUIDString(customerID),
		})
	}
	return claimed, nil
}

// MineItem is one claimed voucher in the customer's wallet view.
type MineItem struct {
	Code     string    `json:"code"`
	Kind     string    `json:"kind"`
	Value    int64     `json:"value"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	IsUsed   bool      `json:"is_used"`
}

// ListMine returns the vouchers the customer has claimed.
func (s *Service) ListMine(ctx context.Context, customerID pgtype.UUID) ([]MineItem, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("voucher service not configured")
	}
	rows, err := s.Store.ListMyVouchers(ctx, customerID)
	if err != nil {
		return nil, err
	}
	out := make([]MineItem, 0, len(rows))
	for _, row := range rows {
		item := MineItem{
			Code:   row.Code,
			Kind:   row.Kind,
			Value:  row.Value,
			IsUsed: row.IsUsed,
		}
		if row.StartsAt.Valid {
			item.StartsAt = row.StartsAt.Time
		}
		if row.EndsAt.Valid {
			item.EndsAt = row.EndsAt.Time
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *Service) loadRule(ctx context.Context, v repo.Voucher) (Rule, error) {
	conds, err := s.Store.ListConditions(ctx, v.ID)
	if err != nil {
		return Rule{}, err
	}
	return RuleFromModel(v, conds)
}

func (s *Service) alreadyUsed(ctx context.Context, customerID, voucherID pgtype.UUID) (bool, error) {
	if !customerID.Valid {
		return false, nil
	}
	mv, err := s.Store.GetMyVoucher(ctx, customerID, voucherID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return mv.IsUsed, nil
}

func (s *Service) emit(ctx context.Context, topic string, aggregateID pgtype.UUID, payload any) {
	if s == nil || s.Bus == nil {
		return
	}
	_, _ = s.Bus.Emit(ctx, topic, aggregateID, payload)
}

// RuleFromModel converts a stored voucher and its conditions into the
// evaluator's rule form.
func RuleFromModel(v repo.Voucher, conds []repo.VoucherCondition) (Rule, error) {
	r := Rule{
		Code:        v.Code,
		Kind:        DiscountKind(v.Kind),
		Value:       v.Value,
		MaxDiscount: v.MaxDiscount,
		UsedCount:   v.UsedCount,
	}
	if v.PercentBps.Valid {
		r.PercentBps = v.PercentBps.Int32
	}
	if v.UsageLimit.Valid {
		limit := v.UsageLimit.Int32
		r.UsageLimit = &limit
	}
	if v.StartsAt.Valid {
		r.StartsAt = v.StartsAt.Time
	}
	if v.EndsAt.Valid {
		r.EndsAt = v.EndsAt.Time
	}
	for _, c := range conds {
		cond, err := conditionFromModel(c)
		if err != nil {
			return Rule{}, err
		}
		r.Conditions = append(r.Conditions, cond)
	}
	return r, nil
}

func conditionFromModel(c repo.VoucherCondition) (Condition, error) {
	cond := Condition{Kind: ConditionKind(c.Kind)}
	switch cond.Kind {
	case ConditionMinAmount:
		if c.MinAmount.Valid {
			cond.MinAmount = c.MinAmount.Int64
		}
	case ConditionLocation:
		cond.WardIDs = append(cond.WardIDs, c.WardIDs...)
	case ConditionProductScope:
		for _, id := range c.ProductIDs {
			if id.Valid {
				cond.ProductIDs = append(cond.ProductIDs, uuid.UUID(id.Bytes))
			}
		}
		for _, id := range c.CategoryIDs {
			if id.Valid {
				cond.CategoryIDs = append(cond.CategoryIDs, uuid.UUID(id.Bytes))
			}
		}
	default:
		return Condition{}, ErrDataIntegrity
	}
	return cond, nil
}
