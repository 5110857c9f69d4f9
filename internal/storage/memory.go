package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dealpicks/affiliate-engine/internal/models"
)

// In-memory implementations. Not durable; they back tests and
// database-less development runs.

// InMemoryConfigRepo stores affiliate configs in a map.
type InMemoryConfigRepo struct {
	mu      sync.RWMutex
	configs map[string]*models.AffiliateConfig
}

func NewInMemoryConfigRepo() *InMemoryConfigRepo {
	return &InMemoryConfigRepo{configs: make(map[string]*models.AffiliateConfig)}
}

func (r *InMemoryConfigRepo) LoadAll(ctx context.Context) ([]*models.AffiliateConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*models.AffiliateConfig, 0, len(r.configs))
	for _, c := range r.configs {
		cp := *c
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].NetworkID < res[j].NetworkID })
	return res, nil
}

func (r *InMemoryConfigRepo) Get(ctx context.Context, networkID string) (*models.AffiliateConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.configs[networkID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *InMemoryConfigRepo) Upsert(ctx context.Context, cfg *models.AffiliateConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *cfg
	cp.UpdatedAt = time.Now().UTC()
	r.configs[cfg.NetworkID] = &cp
	return nil
}

// memProduct is the stored shape of one in-memory product row.
type memProduct struct {
	models.Product
	Snapshot *models.AppliedSnapshot
}

// InMemoryProductRepo stores product rows per table.
type InMemoryProductRepo struct {
	mu      sync.RWMutex
	allowed map[string]bool
	tables  map[string]map[int64]*memProduct
}

func NewInMemoryProductRepo(tables []string) *InMemoryProductRepo {
	allowed := make(map[string]bool, len(tables))
	data := make(map[string]map[int64]*memProduct, len(tables))
	for _, t := range tables {
		allowed[t] = true
		data[t] = make(map[int64]*memProduct)
	}
	return &InMemoryProductRepo{allowed: allowed, tables: data}
}

// Seed inserts a product row for tests.
func (r *InMemoryProductRepo) Seed(table string, p models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.allowed[table] {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	r.tables[table][p.ID] = &memProduct{Product: p}
	return nil
}

// Get returns a stored row for assertions, or nil.
func (r *InMemoryProductRepo) Get(table string, id int64) *models.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rowset, ok := r.tables[table]; ok {
		if p, ok := rowset[id]; ok {
			cp := p.Product
			return &cp
		}
	}
	return nil
}

func (r *InMemoryProductRepo) check(table string) error {
	if !r.allowed[table] {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return nil
}

func (r *InMemoryProductRepo) ListUntagged(ctx context.Context, table string, limit int) ([]*models.ProductLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(table); err != nil {
		return nil, err
	}

	var links []*models.ProductLink
	for _, p := range r.tables[table] {
		if !p.TagApplied && p.AffiliateURL != "" {
			links = append(links, &models.ProductLink{ID: p.ID, SourceURL: p.AffiliateURL})
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}
	return links, nil
}

func (r *InMemoryProductRepo) ApplyTagging(ctx context.Context, table string, productID int64, result *models.TaggingResult, snap *models.AppliedSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(table); err != nil {
		return err
	}
	p, ok := r.tables[table][productID]
	if !ok {
		return fmt.Errorf("product %d not found in %s", productID, table)
	}
	p.OriginalURL = result.OriginalURL
	p.AffiliateURL = result.AffiliateURL
	p.AffiliateNetwork = result.NetworkID
	p.TagApplied = true
	p.Snapshot = snap
	return nil
}

func (r *InMemoryProductRepo) ListWithAffiliate(ctx context.Context, table string, limit, offset int) ([]*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(table); err != nil {
		return nil, err
	}

	var all []*models.Product
	for _, p := range r.tables[table] {
		if p.AffiliateURL != "" {
			cp := p.Product
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *InMemoryProductRepo) CountAll(ctx context.Context, table string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(table); err != nil {
		return 0, err
	}
	return len(r.tables[table]), nil
}

func (r *InMemoryProductRepo) CountTagged(ctx context.Context, table string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(table); err != nil {
		return 0, err
	}
	n := 0
	for _, p := range r.tables[table] {
		if p.TagApplied {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryProductRepo) NetworkBreakdown(ctx context.Context, table string) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(table); err != nil {
		return nil, err
	}
	breakdown := make(map[string]int)
	for _, p := range r.tables[table] {
		if p.TagApplied && p.AffiliateNetwork != "" {
			breakdown[p.AffiliateNetwork]++
		}
	}
	return breakdown, nil
}

// InMemoryAnalyticsRepo keeps counter rows in a map.
type InMemoryAnalyticsRepo struct {
	mu      sync.RWMutex
	entries map[models.AnalyticsKey]*models.AnalyticsEntry
}

func NewInMemoryAnalyticsRepo() *InMemoryAnalyticsRepo {
	return &InMemoryAnalyticsRepo{entries: make(map[models.AnalyticsKey]*models.AnalyticsEntry)}
}

// Entry returns a copy of one counter row for assertions, or nil.
func (r *InMemoryAnalyticsRepo) Entry(key models.AnalyticsKey) *models.AnalyticsEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[key]; ok {
		cp := *e
		return &cp
	}
	return nil
}

// Len returns the number of counter rows.
func (r *InMemoryAnalyticsRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *InMemoryAnalyticsRepo) TrackClick(ctx context.Context, key models.AnalyticsKey, affiliateURL string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		e = &models.AnalyticsEntry{Key: key, CreatedAt: at}
		r.entries[key] = e
	}
	e.Clicks++
	e.AffiliateURL = affiliateURL
	e.LastClickedAt = at
	return nil
}

func (r *InMemoryAnalyticsRepo) TrackConversion(ctx context.Context, key models.AnalyticsKey, revenue float64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		e = &models.AnalyticsEntry{Key: key, CreatedAt: at}
		r.entries[key] = e
	}
	e.Conversions++
	e.Revenue += revenue
	return nil
}

func (r *InMemoryAnalyticsRepo) Rollup(ctx context.Context, since time.Time, networkID string) ([]*models.NetworkRollup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agg := make(map[string]*models.NetworkRollup)
	for key, e := range r.entries {
		touched := e.CreatedAt
		if e.LastClickedAt.After(touched) {
			touched = e.LastClickedAt
		}
		if !touched.After(since) {
			continue
		}
		if networkID != "" && key.NetworkID != networkID {
			continue
		}
		ru, ok := agg[key.NetworkID]
		if !ok {
			ru = &models.NetworkRollup{NetworkID: key.NetworkID}
			agg[key.NetworkID] = ru
		}
		ru.TotalProducts++
		ru.TotalClicks += e.Clicks
		ru.TotalConversions += e.Conversions
		ru.TotalRevenue += e.Revenue
	}

	rollups := make([]*models.NetworkRollup, 0, len(agg))
	for _, ru := range agg {
		if ru.TotalProducts > 0 {
			ru.AvgClicksPerProduct = float64(ru.TotalClicks) / float64(ru.TotalProducts)
		}
		rollups = append(rollups, ru)
	}
	sort.Slice(rollups, func(i, j int) bool { return rollups[i].TotalRevenue > rollups[j].TotalRevenue })
	return rollups, nil
}

// InMemoryEventLog collects events in slices.
type InMemoryEventLog struct {
	mu          sync.RWMutex
	clicks      []*models.ClickEvent
	conversions []*models.ConversionEvent
}

func NewInMemoryEventLog() *InMemoryEventLog {
	return &InMemoryEventLog{}
}

func (l *InMemoryEventLog) AppendClick(ctx context.Context, ev *models.ClickEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *ev
	l.clicks = append(l.clicks, &cp)
	return nil
}

func (l *InMemoryEventLog) AppendConversion(ctx context.Context, ev *models.ConversionEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *ev
	l.conversions = append(l.conversions, &cp)
	return nil
}

// Clicks returns the recorded click events.
func (l *InMemoryEventLog) Clicks() []*models.ClickEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*models.ClickEvent, len(l.clicks))
	copy(out, l.clicks)
	return out
}

// Conversions returns the recorded conversion events.
func (l *InMemoryEventLog) Conversions() []*models.ConversionEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*models.ConversionEvent, len(l.conversions))
	copy(out, l.conversions)
	return out
}
