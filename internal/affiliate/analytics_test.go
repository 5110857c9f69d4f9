package affiliate

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dealpicks/affiliate-engine/internal/models"
	"github.com/dealpicks/affiliate-engine/internal/storage"
)

func newTestAnalytics() (*AnalyticsService, *storage.InMemoryAnalyticsRepo, *storage.InMemoryEventLog) {
	repo := storage.NewInMemoryAnalyticsRepo()
	events := storage.NewInMemoryEventLog()
	svc := NewAnalyticsService(repo, events, nil, nil, 0, nil, zap.NewNop())
	return svc, repo, events
}

func TestTrackClick(t *testing.T) {
	svc, repo, events := newTestAnalytics()
	key := models.AnalyticsKey{ProductID: 7, ProductTable: "amazon_products", NetworkID: "amazon"}
	info := ClickInfo{AffiliateURL: "https://amazon.in/dp/B0001?tag=mytag-21", IP: "203.0.113.9", UserAgent: "test-agent"}

	if err := svc.TrackClick(context.Background(), key, info); err != nil {
		t.Fatalf("track click failed: %v", err)
	}
	if err := svc.TrackClick(context.Background(), key, info); err != nil {
		t.Fatalf("track click failed: %v", err)
	}

	// Two clicks on the same key increment one counter row instead of
	// creating a second.
	if repo.Len() != 1 {
		t.Errorf("expected 1 counter row, got %d", repo.Len())
	}
	e := repo.Entry(key)
	if e == nil || e.Clicks != 2 {
		t.Fatalf("expected 2 clicks, got %+v", e)
	}
	if e.Conversions != 0 {
		t.Errorf("clicks must not bump conversions: %+v", e)
	}

	// Each click still lands in the raw event log.
	clicks := events.Clicks()
	if len(clicks) != 2 {
		t.Fatalf("expected 2 raw events, got %d", len(clicks))
	}
	if clicks[0].ID == clicks[1].ID {
		t.Error("raw events must carry distinct ids")
	}
	if clicks[0].IP != "203.0.113.9" || clicks[0].UserAgent != "test-agent" {
		t.Errorf("request context not recorded: %+v", clicks[0])
	}
}

func TestTrackClickWithoutEventLog(t *testing.T) {
	repo := storage.NewInMemoryAnalyticsRepo()
	svc := NewAnalyticsService(repo, nil, nil, nil, 0, nil, zap.NewNop())
	key := models.AnalyticsKey{ProductID: 1, ProductTable: "amazon_products", NetworkID: "amazon"}

	if err := svc.TrackClick(context.Background(), key, ClickInfo{}); err != nil {
		t.Fatalf("tracking must work without an event log: %v", err)
	}
	if e := repo.Entry(key); e == nil || e.Clicks != 1 {
		t.Errorf("counter not incremented: %+v", e)
	}
}

func TestTrackConversion(t *testing.T) {
	svc, repo, events := newTestAnalytics()
	key := models.AnalyticsKey{ProductID: 7, ProductTable: "amazon_products", NetworkID: "amazon"}

	if err := svc.TrackConversion(context.Background(), key, 49.99, "INR"); err != nil {
		t.Fatalf("track conversion failed: %v", err)
	}
	if err := svc.TrackConversion(context.Background(), key, 10.01, "INR"); err != nil {
		t.Fatalf("track conversion failed: %v", err)
	}

	e := repo.Entry(key)
	if e == nil || e.Conversions != 2 {
		t.Fatalf("expected 2 conversions, got %+v", e)
	}
	if e.Revenue != 60.0 {
		t.Errorf("revenue %v, want 60.0", e.Revenue)
	}

	convs := events.Conversions()
	if len(convs) != 2 {
		t.Fatalf("expected 2 raw conversion events, got %d", len(convs))
	}
	if convs[0].Currency != "INR" {
		t.Errorf("currency not recorded: %+v", convs[0])
	}
}

func TestRollup(t *testing.T) {
	svc, _, _ := newTestAnalytics()
	ctx := context.Background()

	amazonKey := models.AnalyticsKey{ProductID: 1, ProductTable: "amazon_products", NetworkID: "amazon"}
	flipkartKey := models.AnalyticsKey{ProductID: 2, ProductTable: "amazon_products", NetworkID: "flipkart"}

	for i := 0; i < 3; i++ {
		if err := svc.TrackClick(ctx, amazonKey, ClickInfo{}); err != nil {
			t.Fatal(err)
		}
	}
	if err := svc.TrackConversion(ctx, amazonKey, 100, "INR"); err != nil {
		t.Fatal(err)
	}
	if err := svc.TrackClick(ctx, flipkartKey, ClickInfo{}); err != nil {
		t.Fatal(err)
	}
	if err := svc.TrackConversion(ctx, flipkartKey, 250, "INR"); err != nil {
		t.Fatal(err)
	}

	rollups, err := svc.Rollup(ctx, 30, "")
	if err != nil {
		t.Fatalf("rollup failed: %v", err)
	}
	if len(rollups) != 2 {
		t.Fatalf("expected 2 network rollups, got %d", len(rollups))
	}

	// Sorted by revenue descending, so flipkart comes first.
	if rollups[0].NetworkID != "flipkart" || rollups[0].TotalRevenue != 250 {
		t.Errorf("unexpected top rollup: %+v", rollups[0])
	}
	if rollups[1].NetworkID != "amazon" || rollups[1].TotalClicks != 3 {
		t.Errorf("unexpected amazon rollup: %+v", rollups[1])
	}
	if rollups[1].AvgClicksPerProduct != 3.0 {
		t.Errorf("avg clicks %v, want 3.0", rollups[1].AvgClicksPerProduct)
	}

	filtered, err := svc.Rollup(ctx, 30, "amazon")
	if err != nil {
		t.Fatalf("filtered rollup failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].NetworkID != "amazon" {
		t.Errorf("network filter not applied: %+v", filtered)
	}
}

func TestRollupWindow(t *testing.T) {
	svc, _, _ := newTestAnalytics()
	ctx := context.Background()
	key := models.AnalyticsKey{ProductID: 1, ProductTable: "amazon_products", NetworkID: "amazon"}

	// Record the click 90 days in the past, then query a 30-day window.
	svc.now = func() time.Time { return time.Now().AddDate(0, 0, -90) }
	if err := svc.TrackClick(ctx, key, ClickInfo{}); err != nil {
		t.Fatal(err)
	}

	svc.now = time.Now
	rollups, err := svc.Rollup(ctx, 30, "")
	if err != nil {
		t.Fatalf("rollup failed: %v", err)
	}
	if len(rollups) != 0 {
		t.Errorf("stale entry leaked into the window: %+v", rollups)
	}

	wide, err := svc.Rollup(ctx, 120, "")
	if err != nil {
		t.Fatalf("rollup failed: %v", err)
	}
	if len(wide) != 1 {
		t.Errorf("entry missing from the wide window: %+v", wide)
	}
}
