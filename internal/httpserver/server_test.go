package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/dealpicks/affiliate-engine/internal/config"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Affiliate: config.AffiliateConfig{
			ProductTables:    []string{"amazon_products", "cuelinks_products"},
			DefaultBulkLimit: 100,
		},
	}
	handler, err := NewServer(&Dependencies{
		Config: cfg,
		Logger: zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return handler
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("%s %s returned invalid json: %v\n%s", method, path, err, rec.Body.String())
		}
	}
	return rec, decoded
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t)
	rec, body := doJSON(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	h := newTestServer(t)
	rec, body := doJSON(t, h, http.MethodGet, "/affiliate/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if body["success"] != true {
		t.Errorf("unexpected body: %v", body)
	}
	supported, ok := body["supportedNetworks"].([]any)
	if !ok || len(supported) == 0 {
		t.Errorf("expected supported networks in status, got %v", body["supportedNetworks"])
	}
}

func TestNetworksEndpoint(t *testing.T) {
	h := newTestServer(t)
	rec, body := doJSON(t, h, http.MethodGet, "/affiliate/networks", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	networks, ok := body["networks"].([]any)
	if !ok || len(networks) < 8 {
		t.Errorf("expected the built-in catalog, got %v", body["networks"])
	}
}

func TestConfigureEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec, body := doJSON(t, h, http.MethodPost, "/affiliate/configure",
		`{"networkId":"amazon","affiliateId":"mytag-21"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %v", rec.Code, body)
	}
	if body["success"] != true {
		t.Errorf("unexpected body: %v", body)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown network", `{"networkId":"nope","affiliateId":"x"}`, http.StatusBadRequest},
		{"invalid affiliate id", `{"networkId":"cj","affiliateId":"not-numeric"}`, http.StatusBadRequest},
		{"missing fields", `{"networkId":"amazon"}`, http.StatusBadRequest},
		{"malformed json", `{"networkId":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doJSON(t, h, http.MethodPost, "/affiliate/configure", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status %d, want %d", rec.Code, tt.want)
			}
		})
	}

	rec, _ = doJSON(t, h, http.MethodGet, "/affiliate/configure", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET configure status %d, want 405", rec.Code)
	}
}

func TestBuildURLEndpoint(t *testing.T) {
	h := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/affiliate/configure",
		`{"networkId":"amazon","affiliateId":"mytag-21"}`)

	rec, body := doJSON(t, h, http.MethodPost, "/affiliate/build-url",
		`{"url":"https://amazon.in/dp/B000123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %v", rec.Code, body)
	}
	if body["success"] != true {
		t.Fatalf("tagging failed: %v", body)
	}
	if body["affiliate_url"] != "https://amazon.in/dp/B000123?tag=mytag-21" {
		t.Errorf("unexpected url: %v", body["affiliate_url"])
	}

	// An unconfigured network is a tagging failure inside a 200, not an
	// http error.
	rec, body = doJSON(t, h, http.MethodPost, "/affiliate/build-url",
		`{"url":"https://flipkart.com/item/1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if body["success"] != false {
		t.Errorf("expected unsuccessful result, got %v", body)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/affiliate/build-url", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing url status %d, want 400", rec.Code)
	}
}

func TestBulkProcessEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec, body := doJSON(t, h, http.MethodPost, "/affiliate/bulk-process", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %v", rec.Code, body)
	}
	results, ok := body["results"].(map[string]any)
	if !ok {
		t.Fatalf("expected summary, got %v", body)
	}
	if results["total_processed"] != float64(0) {
		t.Errorf("empty tables should process nothing: %v", results)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/affiliate/bulk-process",
		`{"tableName":"not_a_table"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown table status %d, want 400", rec.Code)
	}
}

func TestProductsEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec, body := doJSON(t, h, http.MethodGet, "/affiliate/products/prime-picks", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %v", rec.Code, body)
	}
	if body["page"] != "prime-picks" {
		t.Errorf("unexpected page: %v", body["page"])
	}

	rec, _ = doJSON(t, h, http.MethodGet, "/affiliate/products/not-a-page", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown page status %d, want 400", rec.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	h := newTestServer(t)
	doJSON(t, h, http.MethodPost, "/affiliate/configure",
		`{"networkId":"amazon","affiliateId":"mytag-21"}`)

	rec, body := doJSON(t, h, http.MethodPost, "/affiliate/validate",
		`{"url":"https://amazon.in/dp/B0001?tag=mytag-21"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	validation, ok := body["validation"].(map[string]any)
	if !ok || validation["is_valid"] != true {
		t.Errorf("expected valid report, got %v", body)
	}

	rec, body = doJSON(t, h, http.MethodPost, "/affiliate/validate",
		`{"url":"https://amazon.in/dp/B0001"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	validation, ok = body["validation"].(map[string]any)
	if !ok || validation["is_valid"] != false {
		t.Errorf("expected invalid report, got %v", body)
	}
}

func TestTrackingEndpoints(t *testing.T) {
	h := newTestServer(t)

	click := `{"productId":7,"tableName":"amazon_products","networkId":"amazon","affiliateUrl":"https://amazon.in/dp/B0001?tag=mytag-21"}`
	rec, body := doJSON(t, h, http.MethodPost, "/affiliate/track-click", click)
	if rec.Code != http.StatusOK {
		t.Fatalf("track-click status %d: %v", rec.Code, body)
	}
	if body["success"] != true {
		t.Errorf("unexpected body: %v", body)
	}

	conv := `{"productId":7,"tableName":"amazon_products","networkId":"amazon","revenue":49.99,"currency":"INR"}`
	rec, body = doJSON(t, h, http.MethodPost, "/affiliate/track-conversion", conv)
	if rec.Code != http.StatusOK {
		t.Fatalf("track-conversion status %d: %v", rec.Code, body)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/affiliate/track-click", `{"productId":7}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("incomplete click status %d, want 400", rec.Code)
	}

	rec, body = doJSON(t, h, http.MethodGet, "/affiliate/analytics?days=30", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("analytics status %d: %v", rec.Code, body)
	}
	rollups, ok := body["analytics"].([]any)
	if !ok || len(rollups) != 1 {
		t.Fatalf("expected one network rollup, got %v", body["analytics"])
	}
	amazon := rollups[0].(map[string]any)
	if amazon["total_clicks"] != float64(1) || amazon["total_conversions"] != float64(1) {
		t.Errorf("unexpected rollup: %v", amazon)
	}
}
