package config

import (
	"testing"
	"time"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("JWT_SECRET", "secret")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/cuahang")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CART_TTL", "")
	t.Setenv("CURRENCY_CODE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CurrencyCode != "VND" {
		t.Fatalf("expected VND default, got %s", cfg.CurrencyCode)
	}
	if cfg.CartTTL != 168*time.Hour {
		t.Fatalf("expected 168h cart TTL, got %s", cfg.CartTTL)
	}
	if cfg.VoucherRateMax != 20 {
		t.Fatalf("expected voucher rate max 20, got %d", cfg.VoucherRateMax)
	}
}

func TestHTTPAddr(t *testing.T) {
	cfg := &Config{Port: "9090"}
	if cfg.HTTPAddr() != ":9090" {
		t.Fatalf("unexpected addr %s", cfg.HTTPAddr())
	}
	cfg.Port = ":7070"
	if cfg.HTTPAddr() != ":7070" {
		t.Fatalf("unexpected addr %s", cfg.HTTPAddr())
	}
}
