package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/minhnb-dev/backend-cuahang/internal/obs"
	"github.com/minhnb-dev/backend-cuahang/internal/pricing"
	"github.com/minhnb-dev/backend-cuahang/internal/repo"
)

// ErrNotFound indicates the requested product could not be located.
var ErrNotFound = errors.New("product not found")

// Store captures the catalog reads the service needs. repo.Products
// satisfies it.
type Store interface {
	GetBySlug(ctx context.Context, slug string) (repo.Product, error)
	List(ctx context.Context, limit, offset int32) ([]repo.Product, error)
	Count(ctx context.Context) (int64, error)
}

// ProductView is a catalog entry with its price derived at view time.
type ProductView struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Slug           string `json:"slug"`
	Price          int64  `json:"price"`
	EffectivePrice int64  `json:"effectivePrice"`
	DiscountActive bool   `json:"discountActive"`
	Stock          int32  `json:"stock"`
	CategoryID     string `json:"categoryId,omitempty"`
}

// ListResult pages the catalog.
type ListResult struct {
	Items []ProductView `json:"items"`
	Total int64         `json:"total"`
}

// Service assembles catalog views and caches list pages. Detail views are
// cached under the slug; the effective price is recomputed per request so a
// discount window opening never serves a stale price.
type Service struct {
	Store Store
	Cache *Cache
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// List returns a catalog page.
func (s *Service) List(ctx context.Context, limit, offset int32) (ListResult, error) {
	if s == nil || s.Store == nil {
		return ListResult{}, errors.New("catalog service not configured")
	}
	key := fmt.Sprintf("catalog:list:%d:%d", limit, offset)
	var cached []repo.Product
	if found, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && found {
		countCache("hit")
		total, err := s.Store.Count(ctx)
		if err != nil {
			return ListResult{}, err
		}
		return s.assemble(cached, total), nil
	}
	countCache("miss")
	products, err := s.Store.List(ctx, limit, offset)
	if err != nil {
		return ListResult{}, err
	}
	total, err := s.Store.Count(ctx)
	if err != nil {
		return ListResult{}, err
	}
	_ = s.Cache.SetJSON(ctx, key, products)
	return s.assemble(products, total), nil
}

// GetBySlug returns one product view.
func (s *Service) GetBySlug(ctx context.Context, slug string) (ProductView, error) {
	if s == nil || s.Store == nil {
		return ProductView{}, errors.New("catalog service not configured")
	}
	key := "catalog:product:" + slug
	var cached repo.Product
	if found, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && found {
		countCache("hit")
		return s.view(cached), nil
	}
	countCache("miss")
	p, err := s.Store.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductView{}, ErrNotFound
		}
		return ProductView{}, err
	}
	_ = s.Cache.SetJSON(ctx, key, p)
	return s.view(p), nil
}

func (s *Service) assemble(products []repo.Product, total int64) ListResult {
	out := ListResult{Items: make([]ProductView, 0, len(products)), Total: total}
	for _, p := range products {
		out.Items = append(out.Items, s.view(p))
	}
	return out
}

func (s *Service) view(p repo.Product) ProductView {
	now := s.now()
	unit := unitFromProduct(p)
	return ProductView{
		ID:             repo.UUIDString(p.ID),
		Title:          p.Title,
		Slug:           p.Slug,
		Price:          p.Price,
		EffectivePrice: pricing.EffectivePrice(unit, now),
		DiscountActive: pricing.DiscountActive(unit, now),
		Stock:          p.Stock,
		CategoryID:     repo.UUIDString(p.CategoryID),
	}
}

func countCache(result string) {
	if obs.CatalogCacheTotal != nil {
		obs.CatalogCacheTotal.WithLabelValues(result).Inc()
	}
}

func unitFromProduct(p repo.Product) pricing.Product {
	unit := pricing.Product{Price: p.Price}
	if p.DiscountBps.Valid {
		unit.DiscountBps = p.DiscountBps.Int32
	}
	if p.DiscountStart.Valid {
		start := p.DiscountStart.Time
		unit.DiscountStart = &start
	}
	if p.DiscountEnd.Valid {
		end := p.DiscountEnd.Time
		unit.DiscountEnd = &end
	}
	return unit
}
