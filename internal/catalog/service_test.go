package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/minhnb-dev/backend-cuahang/internal/obs"
	"github.com/minhnb-dev/backend-cuahang/internal/repo"
)

type stubStore struct {
	product repo.Product
	gets    int
}

func (s *stubStore) GetBySlug(ctx context.Context, slug string) (repo.Product, error) {
	s.gets++
	if s.product.Slug != slug {
		return repo.Product{}, pgx.ErrNoRows
	}
	return s.product, nil
}

func (s *stubStore) List(ctx context.Context, limit, offset int32) ([]repo.Product, error) {
	return []repo.Product{s.product}, nil
}

func (s *stubStore) Count(ctx context.Context) (int64, error) { return 1, nil }

func testProduct() repo.Product {
	return repo.Product{
		ID:    pgtype.UUID{Bytes: [16]byte{1}, Valid: true},
		Title: "Ao thun",
		Slug:  "ao-thun",
		Price: 150_000,
		Stock: 10,
	}
}

func TestGetBySlugCachesAndCounts(t *testing.T) {
	obs.MustRegisterDomainMetrics("cuahang", prometheus.NewRegistry())
	missBefore := testutil.ToFloat64(obs.CatalogCacheTotal.WithLabelValues("miss"))
	hitBefore := testutil.ToFloat64(obs.CatalogCacheTotal.WithLabelValues("hit"))

	store := &stubStore{product: testProduct()}
	svc := &Service{
		Store: store,
		Cache: newTestCache(t),
		Now:   func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
	}

	first, err := svc.GetBySlug(context.Background(), "ao-thun")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.GetBySlug(context.Background(), "ao-thun")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.gets != 1 {
		t.Fatalf("expected one store read, got %d", store.gets)
	}
	if first.EffectivePrice != second.EffectivePrice || first.Price != 150_000 {
		t.Fatalf("expected identical views, got %+v vs %+v", first, second)
	}
	if got := testutil.ToFloat64(obs.CatalogCacheTotal.WithLabelValues("miss")) - missBefore; got != 1 {
		t.Fatalf("expected one cache miss, got %v", got)
	}
	if got := testutil.ToFloat64(obs.CatalogCacheTotal.WithLabelValues("hit")) - hitBefore; got != 1 {
		t.Fatalf("expected one cache hit, got %v", got)
	}
}
