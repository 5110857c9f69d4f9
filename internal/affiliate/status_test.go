package affiliate

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/dealpicks/affiliate-engine/internal/models"
	"github.com/dealpicks/affiliate-engine/internal/storage"
)

func TestStatusStats(t *testing.T) {
	products := storage.NewInMemoryProductRepo(testTables)
	svc := NewStatusService(products, testTables, nil, 0, zap.NewNop())

	seed := []struct {
		table   string
		id      int64
		tagged  bool
		network string
	}{
		{"amazon_products", 1, true, "amazon"},
		{"amazon_products", 2, true, "amazon"},
		{"amazon_products", 3, false, ""},
		{"cuelinks_products", 1, true, "cuelinks"},
		{"cuelinks_products", 2, false, ""},
	}
	for _, s := range seed {
		err := products.Seed(s.table, models.Product{
			ID:               s.id,
			AffiliateURL:     "https://example.com",
			TagApplied:       s.tagged,
			AffiliateNetwork: s.network,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 5 || stats.Processed != 3 {
		t.Errorf("total=%d processed=%d, want 5/3", stats.Total, stats.Processed)
	}
	if stats.ProcessingRate != 60 {
		t.Errorf("processing rate %d, want 60", stats.ProcessingRate)
	}
	if stats.Networks["amazon"] != 2 || stats.Networks["cuelinks"] != 1 {
		t.Errorf("unexpected breakdown: %v", stats.Networks)
	}
}

func TestStatusStatsEmpty(t *testing.T) {
	products := storage.NewInMemoryProductRepo(testTables)
	svc := NewStatusService(products, testTables, nil, 0, zap.NewNop())

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 0 || stats.ProcessingRate != 0 {
		t.Errorf("empty tables must report zero stats: %+v", stats)
	}
}
