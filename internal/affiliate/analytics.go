package affiliate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dealpicks/affiliate-engine/internal/geo"
	"github.com/dealpicks/affiliate-engine/internal/metrics"
	"github.com/dealpicks/affiliate-engine/internal/models"
	"github.com/dealpicks/affiliate-engine/internal/storage"
)

// AnalyticsService records clicks and conversions and serves
// time-windowed rollups. Counters in the analytics repo are the source
// of truth; the event log keeps raw history and may be absent.
type AnalyticsService struct {
	repo     storage.AnalyticsRepo
	events   storage.EventLog
	geo      *geo.Resolver
	cache    *redis.Client
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewAnalyticsService(repo storage.AnalyticsRepo, events storage.EventLog, resolver *geo.Resolver, cache *redis.Client, cacheTTL time.Duration, m *metrics.Metrics, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		repo:     repo,
		events:   events,
		geo:      resolver,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// ClickInfo carries the request context of one click.
type ClickInfo struct {
	AffiliateURL string
	IP           string
	UserAgent    string
}

// TrackClick increments the counter row for the key (inserting it on
// first click) and appends a geo-enriched raw event to the log. The
// counter write is the one that matters: its failure propagates, while
// a dead event log only costs history.
func (s *AnalyticsService) TrackClick(ctx context.Context, key models.AnalyticsKey, info ClickInfo) error {
	at := s.now().UTC()
	if err := s.repo.TrackClick(ctx, key, info.AffiliateURL, at); err != nil {
		return err
	}

	s.metrics.RecordClick(key.NetworkID)

	if s.events != nil {
		g := s.geo.Lookup(info.IP)
		ev := &models.ClickEvent{
			ID:           uuid.New().String(),
			Timestamp:    at,
			ProductID:    key.ProductID,
			ProductTable: key.ProductTable,
			NetworkID:    key.NetworkID,
			AffiliateURL: info.AffiliateURL,
			IP:           info.IP,
			UserAgent:    info.UserAgent,
			GeoCountry:   g.Country,
			GeoRegion:    g.Region,
			GeoCity:      g.City,
		}
		if err := s.events.AppendClick(ctx, ev); err != nil {
			s.logger.Error("failed to append click event", zap.Error(err), zap.String("event_id", ev.ID))
		}
	}

	s.logger.Debug("click tracked",
		zap.Int64("product_id", key.ProductID),
		zap.String("table", key.ProductTable),
		zap.String("network", key.NetworkID),
	)
	return nil
}

// TrackConversion increments the conversion counter and revenue for
// the key and appends a raw conversion event.
func (s *AnalyticsService) TrackConversion(ctx context.Context, key models.AnalyticsKey, revenue float64, currency string) error {
	at := s.now().UTC()
	if err := s.repo.TrackConversion(ctx, key, revenue, at); err != nil {
		return err
	}

	s.metrics.RecordConversion(key.NetworkID, revenue)

	if s.events != nil {
		ev := &models.ConversionEvent{
			ID:           uuid.New().String(),
			Timestamp:    at,
			ProductID:    key.ProductID,
			ProductTable: key.ProductTable,
			NetworkID:    key.NetworkID,
			Revenue:      revenue,
			Currency:     currency,
		}
		if err := s.events.AppendConversion(ctx, ev); err != nil {
			s.logger.Error("failed to append conversion event", zap.Error(err), zap.String("event_id", ev.ID))
		}
	}
	return nil
}

// Rollup aggregates analytics over the trailing window of days,
// optionally filtered to one network, grouped by network and sorted by
// revenue descending. Responses are cached briefly in Redis when a
// client is configured.
func (s *AnalyticsService) Rollup(ctx context.Context, days int, networkID string) ([]*models.NetworkRollup, error) {
	if days <= 0 {
		days = 30
	}
	cacheKey := fmt.Sprintf("affiliate:rollup:%d:%s", days, networkID)

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []*models.NetworkRollup
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	since := s.now().UTC().AddDate(0, 0, -days)
	rollups, err := s.repo.Rollup(ctx, since, networkID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(rollups); err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("failed to cache rollup", zap.Error(err))
			}
		}
	}
	return rollups, nil
}
