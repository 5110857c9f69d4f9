package models

import "time"

// AnalyticsKey identifies one counter row: a product in a table,
// attributed to a network.
type AnalyticsKey struct {
	ProductID    int64  `json:"product_id"`
	ProductTable string `json:"product_table"`
	NetworkID    string `json:"network_id"`
}

// AnalyticsEntry holds the monotonically increasing counters for one
// key. Rows are created on first click and only ever incremented.
type AnalyticsEntry struct {
	Key           AnalyticsKey `json:"key"`
	AffiliateURL  string       `json:"affiliate_url"`
	Clicks        int64        `json:"clicks"`
	Conversions   int64        `json:"conversions"`
	Revenue       float64      `json:"revenue"`
	LastClickedAt time.Time    `json:"last_clicked_at"`
	CreatedAt     time.Time    `json:"created_at"`
}

// NetworkRollup is one row of the time-windowed analytics aggregate.
type NetworkRollup struct {
	NetworkID           string  `json:"network_id"`
	TotalProducts       int64   `json:"total_products"`
	TotalClicks         int64   `json:"total_clicks"`
	TotalConversions    int64   `json:"total_conversions"`
	TotalRevenue        float64 `json:"total_revenue"`
	AvgClicksPerProduct float64 `json:"avg_clicks_per_product"`
}

// ClickEvent is one raw click appended to the event log. The upsert
// counters answer rollup queries; the event log keeps full history.
type ClickEvent struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	ProductID    int64     `json:"product_id"`
	ProductTable string    `json:"product_table"`
	NetworkID    string    `json:"network_id"`
	AffiliateURL string    `json:"affiliate_url"`
	IP           string    `json:"ip,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	GeoCountry   string    `json:"geo_country,omitempty"`
	GeoRegion    string    `json:"geo_region,omitempty"`
	GeoCity      string    `json:"geo_city,omitempty"`
}

// ConversionEvent is one raw conversion appended to the event log.
type ConversionEvent struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	ProductID    int64     `json:"product_id"`
	ProductTable string    `json:"product_table"`
	NetworkID    string    `json:"network_id"`
	Revenue      float64   `json:"revenue,omitempty"`
	Currency     string    `json:"currency,omitempty"`
}
