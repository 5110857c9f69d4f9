package affiliate

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dealpicks/affiliate-engine/internal/models"
	"github.com/dealpicks/affiliate-engine/internal/storage"
)

const statusCacheKey = "affiliate:status:stats"

// StatusService summarizes tagging progress across all product tables
// for the admin dashboard.
type StatusService struct {
	products storage.ProductRepo
	tables   []string
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewStatusService(products storage.ProductRepo, tables []string, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *StatusService {
	return &StatusService{
		products: products,
		tables:   tables,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Stats aggregates totals, processed counts and a per-network
// breakdown over every configured table. Briefly cached in Redis: the
// dashboard polls this and the counts move slowly.
func (s *StatusService) Stats(ctx context.Context) (*models.AffiliateStats, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, statusCacheKey).Bytes(); err == nil {
			var cached models.AffiliateStats
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		}
	}

	stats := &models.AffiliateStats{Networks: make(map[string]int)}
	for _, table := range s.tables {
		total, err := s.products.CountAll(ctx, table)
		if err != nil {
			return nil, err
		}
		tagged, err := s.products.CountTagged(ctx, table)
		if err != nil {
			return nil, err
		}
		breakdown, err := s.products.NetworkBreakdown(ctx, table)
		if err != nil {
			return nil, err
		}

		stats.Total += total
		stats.Processed += tagged
		for network, count := range breakdown {
			stats.Networks[network] += count
		}
	}
	if stats.Total > 0 {
		stats.ProcessingRate = stats.Processed * 100 / stats.Total
	}

	if s.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, statusCacheKey, raw, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("failed to cache affiliate stats", zap.Error(err))
			}
		}
	}
	return stats, nil
}
