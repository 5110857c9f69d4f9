package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dealpicks/affiliate-engine/internal/affiliate"
	"github.com/dealpicks/affiliate-engine/internal/middleware"
	"github.com/dealpicks/affiliate-engine/internal/models"
	"github.com/dealpicks/affiliate-engine/internal/storage"
)

// pageTables maps UI page slugs to product tables. Unknown pages are
// rejected rather than interpolated.
var pageTables = map[string]string{
	"click-picks": "click_picks_products",
	"prime-picks": "amazon_products",
	"amazon":      "amazon_products",
	"cue-picks":   "cuelinks_products",
	"cuelinks":    "cuelinks_products",
	"value-picks": "value_picks_products",
}

// ---- Status & networks ----

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := s.status.Stats(r.Context())
	if err != nil {
		s.logger.Error("failed to collect affiliate stats", zap.Error(err))
		s.errorResponse(w, "failed to collect stats", http.StatusInternalServerError)
		return
	}

	supported := make([]map[string]string, 0)
	for _, n := range s.registry.List() {
		supported = append(supported, map[string]string{
			"id":           n.ID,
			"name":         n.Name,
			"tagParameter": n.TagParameter,
		})
	}

	s.jsonResponse(w, map[string]any{
		"success":           true,
		"stats":             stats,
		"networks":          s.configs.List(),
		"supportedNetworks": supported,
	})
}

func (s *Server) handleNetworks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.jsonResponse(w, map[string]any{
		"success":  true,
		"networks": s.registry.List(),
	})
}

// ---- Configure ----

type configureRequest struct {
	NetworkID   string `json:"networkId"`
	AffiliateID string `json:"affiliateId"`
	SubID       string `json:"subId,omitempty"`
	Enabled     *bool  `json:"enabled,omitempty"`
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req configureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.NetworkID == "" || req.AffiliateID == "" {
		s.errorResponse(w, "networkId and affiliateId are required", http.StatusBadRequest)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	err := s.configs.Upsert(r.Context(), req.NetworkID, req.AffiliateID, req.SubID, enabled)
	switch {
	case errors.Is(err, affiliate.ErrUnknownNetwork), errors.Is(err, affiliate.ErrInvalidAffiliateID):
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		s.logger.Error("failed to configure network", zap.String("network", req.NetworkID), zap.Error(err))
		s.errorResponse(w, "failed to configure network", http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, map[string]any{
		"success": true,
		"message": req.NetworkID + " configured successfully",
	})
}

// ---- Build URL ----

type buildURLRequest struct {
	URL       string `json:"url"`
	NetworkID string `json:"networkId,omitempty"`
	ProductID int64  `json:"productId,omitempty"`
	TableName string `json:"tableName,omitempty"`
}

func (s *Server) handleBuildURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req buildURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		s.errorResponse(w, "url is required", http.StatusBadRequest)
		return
	}

	result := s.tagger.BuildAffiliateURL(req.URL, req.NetworkID)

	if result.Success && req.ProductID != 0 && req.TableName != "" {
		if err := s.syncer.Apply(r.Context(), req.TableName, req.ProductID, result); err != nil {
			if errors.Is(err, storage.ErrUnknownTable) {
				s.errorResponse(w, err.Error(), http.StatusBadRequest)
				return
			}
			s.logger.Error("failed to persist tagging result",
				zap.String("table", req.TableName),
				zap.Int64("product_id", req.ProductID),
				zap.Error(err),
			)
			s.errorResponse(w, "failed to persist tagging result", http.StatusInternalServerError)
			return
		}
	}

	s.jsonResponse(w, result)
}

// ---- Bulk process ----

type bulkProcessRequest struct {
	TableName string `json:"tableName,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

func (s *Server) handleBulkProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bulkProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Limit <= 0 {
		req.Limit = s.config.Affiliate.DefaultBulkLimit
	}

	if req.TableName != "" {
		result, err := s.bulk.ProcessTable(r.Context(), req.TableName, req.Limit)
		if err != nil {
			if errors.Is(err, storage.ErrUnknownTable) {
				s.errorResponse(w, err.Error(), http.StatusBadRequest)
				return
			}
			s.logger.Error("bulk processing failed", zap.String("table", req.TableName), zap.Error(err))
			s.errorResponse(w, "bulk processing failed", http.StatusInternalServerError)
			return
		}
		s.jsonResponse(w, map[string]any{"success": true, "result": result})
		return
	}

	summary, err := s.bulk.ProcessAllTables(r.Context(), req.Limit)
	if err != nil {
		s.logger.Error("bulk processing failed", zap.Error(err))
		s.errorResponse(w, "bulk processing failed", http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, map[string]any{"success": true, "results": summary})
}

// ---- Products by page ----

func (s *Server) handleProductsByPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	page := strings.TrimPrefix(r.URL.Path, "/affiliate/products/")
	table, ok := pageTables[page]
	if page == "" || !ok {
		s.errorResponse(w, "invalid page specified", http.StatusBadRequest)
		return
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	products, err := s.products.ListWithAffiliate(r.Context(), table, limit, offset)
	if err != nil {
		s.logger.Error("failed to list products", zap.String("table", table), zap.Error(err))
		s.errorResponse(w, "failed to list products", http.StatusInternalServerError)
		return
	}

	// Products that slipped past bulk processing get tagged lazily on
	// read; a persist failure here only degrades this response.
	for _, p := range products {
		if p.TagApplied || p.AffiliateURL == "" {
			continue
		}
		result := s.tagger.BuildAffiliateURL(p.AffiliateURL, "")
		if !result.Success {
			continue
		}
		if err := s.syncer.Apply(r.Context(), table, p.ID, result); err != nil {
			s.logger.Error("lazy tagging persist failed",
				zap.String("table", table),
				zap.Int64("product_id", p.ID),
				zap.Error(err),
			)
			continue
		}
		p.OriginalURL = result.OriginalURL
		p.AffiliateURL = result.AffiliateURL
		p.AffiliateNetwork = result.NetworkID
		p.TagApplied = true
	}

	s.jsonResponse(w, map[string]any{
		"success":  true,
		"products": products,
		"page":     page,
		"limit":    limit,
		"offset":   offset,
	})
}

// ---- Validate ----

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		s.errorResponse(w, "url is required", http.StatusBadRequest)
		return
	}

	s.jsonResponse(w, map[string]any{
		"success":    true,
		"validation": s.tagger.Validate(req.URL),
	})
}

// ---- Analytics ----

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	days := queryInt(r, "days", 30)
	networkID := r.URL.Query().Get("networkId")

	rollups, err := s.analytics.Rollup(r.Context(), days, networkID)
	if err != nil {
		s.logger.Error("failed to build analytics rollup", zap.Error(err))
		s.errorResponse(w, "failed to build analytics rollup", http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, map[string]any{
		"success":   true,
		"analytics": rollups,
		"period":    strconv.Itoa(days) + " days",
	})
}

type trackClickRequest struct {
	ProductID    int64  `json:"productId"`
	TableName    string `json:"tableName"`
	NetworkID    string `json:"networkId"`
	AffiliateURL string `json:"affiliateUrl,omitempty"`
}

func (s *Server) handleTrackClick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req trackClickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.ProductID == 0 || req.TableName == "" || req.NetworkID == "" {
		s.errorResponse(w, "productId, tableName and networkId are required", http.StatusBadRequest)
		return
	}

	key := models.AnalyticsKey{
		ProductID:    req.ProductID,
		ProductTable: req.TableName,
		NetworkID:    req.NetworkID,
	}
	info := affiliate.ClickInfo{
		AffiliateURL: req.AffiliateURL,
		IP:           middleware.ClientIP(r),
		UserAgent:    r.UserAgent(),
	}
	if err := s.analytics.TrackClick(r.Context(), key, info); err != nil {
		s.logger.Error("failed to track click", zap.Error(err))
		s.errorResponse(w, "failed to track click", http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, map[string]any{
		"success": true,
		"message": "click tracked",
	})
}

type trackConversionRequest struct {
	ProductID int64   `json:"productId"`
	TableName string  `json:"tableName"`
	NetworkID string  `json:"networkId"`
	Revenue   float64 `json:"revenue,omitempty"`
	Currency  string  `json:"currency,omitempty"`
}

func (s *Server) handleTrackConversion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req trackConversionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.ProductID == 0 || req.TableName == "" || req.NetworkID == "" {
		s.errorResponse(w, "productId, tableName and networkId are required", http.StatusBadRequest)
		return
	}

	key := models.AnalyticsKey{
		ProductID:    req.ProductID,
		ProductTable: req.TableName,
		NetworkID:    req.NetworkID,
	}
	if err := s.analytics.TrackConversion(r.Context(), key, req.Revenue, req.Currency); err != nil {
		s.logger.Error("failed to track conversion", zap.Error(err))
		s.errorResponse(w, "failed to track conversion", http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, map[string]any{
		"success": true,
		"message": "conversion tracked",
	})
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
	}
	return def
}
