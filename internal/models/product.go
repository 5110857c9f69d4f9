package models

// ProductLink is the slice of a product row the bulk processor needs:
// its id and the raw source link awaiting tagging.
type ProductLink struct {
	ID        int64  `json:"id"`
	SourceURL string `json:"source_url"`
}

// Product is the read model served to the UI from the products
// endpoint. Prices and images are opaque here; the engine only owns
// the four affiliate fields.
type Product struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Price            float64 `json:"price"`
	Currency         string  `json:"currency,omitempty"`
	ImageURL         string  `json:"image_url,omitempty"`
	Category         string  `json:"category,omitempty"`
	OriginalURL      string  `json:"original_url,omitempty"`
	AffiliateURL     string  `json:"affiliate_url"`
	AffiliateNetwork string  `json:"affiliate_network,omitempty"`
	TagApplied       bool    `json:"affiliate_tag_applied"`
}
