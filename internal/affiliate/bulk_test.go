package affiliate

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/dealpicks/affiliate-engine/internal/models"
	"github.com/dealpicks/affiliate-engine/internal/registry"
	"github.com/dealpicks/affiliate-engine/internal/storage"
)

var testTables = []string{"amazon_products", "cuelinks_products"}

func newTestBulk(t *testing.T) (*BulkService, *ConfigService, *storage.InMemoryProductRepo) {
	t.Helper()
	reg := registry.New()
	configs := NewConfigService(storage.NewInMemoryConfigRepo(), reg, nil, zap.NewNop())
	tagger := NewTagger(reg, configs, nil, zap.NewNop())
	products := storage.NewInMemoryProductRepo(testTables)
	syncer := NewSyncer(products, zap.NewNop())
	bulk := NewBulkService(tagger, syncer, products, testTables, nil, zap.NewNop())
	return bulk, configs, products
}

func seedProduct(t *testing.T, products *storage.InMemoryProductRepo, table string, id int64, url string) {
	t.Helper()
	err := products.Seed(table, models.Product{ID: id, Name: "p", AffiliateURL: url})
	if err != nil {
		t.Fatalf("seed %s/%d: %v", table, id, err)
	}
}

func TestProcessTable(t *testing.T) {
	bulk, configs, products := newTestBulk(t)
	configure(t, configs, "amazon", "mytag-21", "", true)

	seedProduct(t, products, "amazon_products", 1, "https://amazon.in/dp/B0001")
	seedProduct(t, products, "amazon_products", 2, "https://amazon.in/dp/B0002")
	seedProduct(t, products, "amazon_products", 3, "https://unknown.example/p/3")

	res, err := bulk.ProcessTable(context.Background(), "amazon_products", 100)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if res.Processed != 3 || res.Successful != 2 || res.Failed != 1 {
		t.Errorf("processed=%d successful=%d failed=%d, want 3/2/1", res.Processed, res.Successful, res.Failed)
	}

	p := products.Get("amazon_products", 1)
	if p == nil || !p.TagApplied {
		t.Fatalf("product 1 not marked applied: %+v", p)
	}
	if p.AffiliateURL != "https://amazon.in/dp/B0001?tag=mytag-21" {
		t.Errorf("unexpected tagged url: %s", p.AffiliateURL)
	}
	if p.OriginalURL != "https://amazon.in/dp/B0001" {
		t.Errorf("original url not preserved: %s", p.OriginalURL)
	}
	if p.AffiliateNetwork != "amazon" {
		t.Errorf("network not recorded: %s", p.AffiliateNetwork)
	}

	// The unmatched product stays untouched and eligible for a later
	// run.
	p = products.Get("amazon_products", 3)
	if p == nil || p.TagApplied {
		t.Errorf("failed product must stay untagged: %+v", p)
	}
}

func TestProcessTableConverges(t *testing.T) {
	bulk, configs, products := newTestBulk(t)
	configure(t, configs, "amazon", "mytag-21", "", true)

	seedProduct(t, products, "amazon_products", 1, "https://amazon.in/dp/B0001")
	seedProduct(t, products, "amazon_products", 2, "https://amazon.in/dp/B0002")

	first, err := bulk.ProcessTable(context.Background(), "amazon_products", 100)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if first.Successful != 2 {
		t.Fatalf("first run successful=%d, want 2", first.Successful)
	}

	second, err := bulk.ProcessTable(context.Background(), "amazon_products", 100)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second.Processed != 0 {
		t.Errorf("second run reprocessed %d tagged records", second.Processed)
	}
}

func TestProcessTableRespectsLimit(t *testing.T) {
	bulk, configs, products := newTestBulk(t)
	configure(t, configs, "amazon", "mytag-21", "", true)

	for i := int64(1); i <= 5; i++ {
		seedProduct(t, products, "amazon_products", i, "https://amazon.in/dp/B000")
	}

	res, err := bulk.ProcessTable(context.Background(), "amazon_products", 2)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if res.Processed != 2 {
		t.Errorf("processed %d, want limit 2", res.Processed)
	}
}

func TestProcessTableUnknownTable(t *testing.T) {
	bulk, _, _ := newTestBulk(t)

	_, err := bulk.ProcessTable(context.Background(), "users; drop table users", 10)
	if err == nil {
		t.Fatal("expected error for table outside the allow-list")
	}
}

func TestProcessAllTables(t *testing.T) {
	bulk, configs, products := newTestBulk(t)
	configure(t, configs, "amazon", "mytag-21", "", true)
	configure(t, configs, "cuelinks", "12345", "", true)

	seedProduct(t, products, "amazon_products", 1, "https://amazon.in/dp/B0001")
	seedProduct(t, products, "cuelinks_products", 1, "https://cuelinks.com/deal/1")
	seedProduct(t, products, "cuelinks_products", 2, "https://nothing.example/x")

	summary, err := bulk.ProcessAllTables(context.Background(), 100)
	if err != nil {
		t.Fatalf("process all failed: %v", err)
	}
	if summary.TotalProcessed != 3 || summary.TotalSuccessful != 2 || summary.TotalFailed != 1 {
		t.Errorf("totals %d/%d/%d, want 3/2/1",
			summary.TotalProcessed, summary.TotalSuccessful, summary.TotalFailed)
	}
	if summary.SuccessRate != 66 {
		t.Errorf("success rate %d, want 66", summary.SuccessRate)
	}
	if len(summary.Tables) != len(testTables) {
		t.Errorf("expected a result per table, got %d", len(summary.Tables))
	}
}

func TestSyncerRejectsFailedResult(t *testing.T) {
	products := storage.NewInMemoryProductRepo(testTables)
	syncer := NewSyncer(products, zap.NewNop())

	err := syncer.Apply(context.Background(), "amazon_products", 1, &models.TaggingResult{Success: false})
	if err == nil {
		t.Fatal("expected rejection of unsuccessful result")
	}
}
