package models

import "time"

// AffiliateConfig is the operator's per-network configuration. At most
// one config exists per network id.
type AffiliateConfig struct {
	NetworkID   string    `json:"network_id"`
	AffiliateID string    `json:"affiliate_id"`
	SubID       string    `json:"sub_id,omitempty"`
	Enabled     bool      `json:"enabled"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaggingResult is the outcome of a single tagging attempt. "Not
// configured" and "invalid id" are ordinary results, not errors; only
// storage failures travel on the error return of the services that
// produce this value.
type TaggingResult struct {
	Success      bool   `json:"success"`
	OriginalURL  string `json:"original_url"`
	AffiliateURL string `json:"affiliate_url"`
	NetworkID    string `json:"network_id"`
	NetworkName  string `json:"network_name"`
	// Matched is false when detection fell through to the catch-all.
	Matched bool   `json:"matched"`
	Error   string `json:"error,omitempty"`
}

// AppliedSnapshot is the audit blob stored on a product record when a
// tag is applied.
type AppliedSnapshot struct {
	NetworkID   string `json:"networkId"`
	NetworkName string `json:"networkName"`
	ProcessedAt int64  `json:"processedAt"`
}

// BulkResult aggregates one bulk run over a single product table.
type BulkResult struct {
	Table      string           `json:"table"`
	Processed  int              `json:"processed"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Results    []*TaggingResult `json:"results"`
}

// BulkSummary aggregates bulk runs across every product table.
type BulkSummary struct {
	Tables          map[string]*BulkResult `json:"tables"`
	TotalProcessed  int                    `json:"total_processed"`
	TotalSuccessful int                    `json:"total_successful"`
	TotalFailed     int                    `json:"total_failed"`
	SuccessRate     int                    `json:"success_rate_pct"`
}

// ValidationReport is returned by the validate endpoint.
type ValidationReport struct {
	IsValid bool     `json:"is_valid"`
	Network string   `json:"network,omitempty"`
	Issues  []string `json:"issues,omitempty"`
}

// AffiliateStats summarizes tagging progress across product tables.
type AffiliateStats struct {
	Total          int            `json:"total"`
	Processed      int            `json:"processed"`
	ProcessingRate int            `json:"processing_rate_pct"`
	Networks       map[string]int `json:"networks"`
}
