package affiliate

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/dealpicks/affiliate-engine/internal/registry"
	"github.com/dealpicks/affiliate-engine/internal/storage"
)

func TestConfigServiceUpsertAndGet(t *testing.T) {
	repo := storage.NewInMemoryConfigRepo()
	svc := NewConfigService(repo, registry.New(), nil, zap.NewNop())

	if err := svc.Upsert(context.Background(), "amazon", "mytag-21", "sub1", true); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	cfg := svc.Get("amazon")
	if cfg == nil {
		t.Fatal("config not visible in cache after upsert")
	}
	if cfg.AffiliateID != "mytag-21" || cfg.SubID != "sub1" || !cfg.Enabled {
		t.Errorf("unexpected config: %+v", cfg)
	}

	// The cache hands out copies; mutating one must not leak back.
	cfg.AffiliateID = "mutated"
	if svc.Get("amazon").AffiliateID != "mytag-21" {
		t.Error("Get returned a shared pointer into the cache")
	}

	// Replacing the config keeps one entry per network.
	if err := svc.Upsert(context.Background(), "amazon", "newtag-21", "", false); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	cfg = svc.Get("amazon")
	if cfg.AffiliateID != "newtag-21" || cfg.Enabled {
		t.Errorf("upsert did not replace config: %+v", cfg)
	}
	if got := len(svc.List()); got != 1 {
		t.Errorf("expected 1 config, got %d", got)
	}
}

func TestConfigServiceUpsertValidation(t *testing.T) {
	svc := NewConfigService(storage.NewInMemoryConfigRepo(), registry.New(), nil, zap.NewNop())

	err := svc.Upsert(context.Background(), "nonsense", "abc", "", true)
	if !errors.Is(err, ErrUnknownNetwork) {
		t.Errorf("expected ErrUnknownNetwork, got %v", err)
	}

	err = svc.Upsert(context.Background(), "amazon", "not a valid tag!", "", true)
	if !errors.Is(err, ErrInvalidAffiliateID) {
		t.Errorf("expected ErrInvalidAffiliateID, got %v", err)
	}

	err = svc.Upsert(context.Background(), "cj", "abc", "", true)
	if !errors.Is(err, ErrInvalidAffiliateID) {
		t.Errorf("cj requires numeric ids, got %v", err)
	}
}

func TestConfigServiceLoad(t *testing.T) {
	repo := storage.NewInMemoryConfigRepo()
	seed := NewConfigService(repo, registry.New(), nil, zap.NewNop())
	if err := seed.Upsert(context.Background(), "amazon", "mytag-21", "", true); err != nil {
		t.Fatalf("seed upsert failed: %v", err)
	}
	if err := seed.Upsert(context.Background(), "flipkart", "fk123", "", false); err != nil {
		t.Fatalf("seed upsert failed: %v", err)
	}

	// A fresh service over the same repo sees the stored configs after
	// Load, the way a restart would.
	svc := NewConfigService(repo, registry.New(), nil, zap.NewNop())
	if svc.Get("amazon") != nil {
		t.Fatal("cache should be empty before Load")
	}
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg := svc.Get("amazon"); cfg == nil || cfg.AffiliateID != "mytag-21" {
		t.Errorf("amazon config not loaded: %+v", cfg)
	}
	if cfg := svc.Get("flipkart"); cfg == nil || cfg.Enabled {
		t.Errorf("flipkart config not loaded as disabled: %+v", cfg)
	}

	list := svc.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 configs, got %d", len(list))
	}
	if list[0].NetworkID != "amazon" || list[1].NetworkID != "flipkart" {
		t.Errorf("list not sorted by network id: %s, %s", list[0].NetworkID, list[1].NetworkID)
	}
}
