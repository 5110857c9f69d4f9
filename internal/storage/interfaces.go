package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dealpicks/affiliate-engine/internal/models"
)

// ErrUnknownTable is returned when a caller names a product table
// outside the configured allow-list. Table names are interpolated into
// SQL, so the allow-list is the only thing standing between a request
// body and the database.
var ErrUnknownTable = errors.New("unknown product table")

// ConfigRepo persists per-network affiliate configurations.
type ConfigRepo interface {
	// LoadAll returns every stored configuration, enabled or not.
	LoadAll(ctx context.Context) ([]*models.AffiliateConfig, error)
	// Get returns the configuration for a network or nil if absent.
	Get(ctx context.Context, networkID string) (*models.AffiliateConfig, error)
	// Upsert inserts or replaces the configuration for cfg.NetworkID.
	Upsert(ctx context.Context, cfg *models.AffiliateConfig) error
}

// ProductRepo reads and mutates the affiliate slice of product rows.
// Implementations must reject table names outside their allow-list
// with ErrUnknownTable.
type ProductRepo interface {
	// ListUntagged returns up to limit rows whose tag has not been
	// applied and whose source link is non-empty.
	ListUntagged(ctx context.Context, table string, limit int) ([]*models.ProductLink, error)
	// ApplyTagging writes the tagging outcome onto one row in a single
	// update: original URL, affiliate URL, network id, the applied
	// flag, and the audit snapshot.
	ApplyTagging(ctx context.Context, table string, productID int64, result *models.TaggingResult, snap *models.AppliedSnapshot) error
	// ListWithAffiliate returns a page of products carrying affiliate
	// URLs, newest first.
	ListWithAffiliate(ctx context.Context, table string, limit, offset int) ([]*models.Product, error)
	// CountAll and CountTagged feed the status endpoint.
	CountAll(ctx context.Context, table string) (int, error)
	CountTagged(ctx context.Context, table string) (int, error)
	// NetworkBreakdown returns tagged-row counts grouped by network.
	NetworkBreakdown(ctx context.Context, table string) (map[string]int, error)
}

// AnalyticsRepo maintains the monotonic per-(product, table, network)
// counters and answers time-windowed rollups. Nothing is ever deleted.
type AnalyticsRepo interface {
	TrackClick(ctx context.Context, key models.AnalyticsKey, affiliateURL string, at time.Time) error
	TrackConversion(ctx context.Context, key models.AnalyticsKey, revenue float64, at time.Time) error
	// Rollup aggregates entries touched since the given time, grouped
	// by network and sorted by total revenue descending. networkID
	// filters to one network when non-empty.
	Rollup(ctx context.Context, since time.Time, networkID string) ([]*models.NetworkRollup, error)
}

// EventLog is the append-only sink for raw click/conversion events.
// Implementations may drop events on failure; counters in
// AnalyticsRepo remain the source of truth for rollups.
type EventLog interface {
	AppendClick(ctx context.Context, ev *models.ClickEvent) error
	AppendConversion(ctx context.Context, ev *models.ConversionEvent) error
}
