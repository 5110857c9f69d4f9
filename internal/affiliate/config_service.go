package affiliate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/dealpicks/affiliate-engine/internal/metrics"
	"github.com/dealpicks/affiliate-engine/internal/models"
	"github.com/dealpicks/affiliate-engine/internal/registry"
	"github.com/dealpicks/affiliate-engine/internal/storage"
)

// Validation failures surfaced to the configure endpoint.
var (
	ErrUnknownNetwork     = errors.New("unknown affiliate network")
	ErrInvalidAffiliateID = errors.New("affiliate id does not match network format")
)

// ConfigService owns per-network affiliate configurations: a durable
// repo plus an in-memory cache the tagger reads synchronously. Upsert
// writes the store first, then the cache, so the next tagging call
// observes an admin edit immediately.
type ConfigService struct {
	repo     storage.ConfigRepo
	registry *registry.Registry
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu    sync.RWMutex
	cache map[string]*models.AffiliateConfig
}

func NewConfigService(repo storage.ConfigRepo, reg *registry.Registry, m *metrics.Metrics, logger *zap.Logger) *ConfigService {
	return &ConfigService{
		repo:     repo,
		registry: reg,
		metrics:  m,
		logger:   logger,
		cache:    make(map[string]*models.AffiliateConfig),
	}
}

// Load populates the cache from the repo. Called once at startup.
func (s *ConfigService) Load(ctx context.Context) error {
	configs, err := s.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load affiliate configs: %w", err)
	}

	s.mu.Lock()
	s.cache = make(map[string]*models.AffiliateConfig, len(configs))
	for _, c := range configs {
		s.cache[c.NetworkID] = c
	}
	s.mu.Unlock()

	s.logger.Info("loaded affiliate configurations", zap.Int("count", len(configs)))
	return nil
}

// Get returns the cached configuration for a network, or nil. Reads
// never touch the durable store.
func (s *ConfigService) Get(networkID string) *models.AffiliateConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.cache[networkID]; ok {
		cp := *c
		return &cp
	}
	return nil
}

// List returns all cached configurations sorted by network id.
func (s *ConfigService) List() []*models.AffiliateConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.AffiliateConfig, 0, len(s.cache))
	for _, c := range s.cache {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NetworkID < out[j].NetworkID })
	return out
}

// Upsert validates and stores a configuration, then refreshes the
// cache. Unknown networks and malformed affiliate ids come back as
// ErrUnknownNetwork / ErrInvalidAffiliateID; anything else is a
// storage failure.
func (s *ConfigService) Upsert(ctx context.Context, networkID, affiliateID, subID string, enabled bool) error {
	network := s.registry.Get(networkID)
	if network == nil {
		return fmt.Errorf("%w: %q", ErrUnknownNetwork, networkID)
	}
	if !network.ValidateAffiliateID(affiliateID) {
		return fmt.Errorf("%w: network %s, id %q", ErrInvalidAffiliateID, networkID, affiliateID)
	}

	cfg := &models.AffiliateConfig{
		NetworkID:   networkID,
		AffiliateID: affiliateID,
		SubID:       subID,
		Enabled:     enabled,
	}
	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[networkID] = cfg
	s.mu.Unlock()

	s.metrics.RecordConfigUpdate(networkID)
	s.logger.Info("affiliate network configured",
		zap.String("network", networkID),
		zap.Bool("enabled", enabled),
	)
	return nil
}
