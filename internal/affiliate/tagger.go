package affiliate

import (
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/dealpicks/affiliate-engine/internal/metrics"
	"github.com/dealpicks/affiliate-engine/internal/models"
	"github.com/dealpicks/affiliate-engine/internal/registry"
)

// Tagger builds tagged affiliate URLs. Tagging is pure string work:
// every "failure" here (no config, bad id, already tagged) is an
// ordinary TaggingResult, never an error.
type Tagger struct {
	registry *registry.Registry
	configs  *ConfigService
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewTagger(reg *registry.Registry, configs *ConfigService, m *metrics.Metrics, logger *zap.Logger) *Tagger {
	return &Tagger{
		registry: reg,
		configs:  configs,
		metrics:  m,
		logger:   logger,
	}
}

// BuildAffiliateURL resolves the network for originalURL (using
// networkIDHint when it names a known network), applies the active
// configuration, and returns the tagged URL. The config is read once
// up front and used for the whole attempt.
func (t *Tagger) BuildAffiliateURL(originalURL, networkIDHint string) *models.TaggingResult {
	var detection models.Detection
	if networkIDHint != "" {
		if n := t.registry.Get(networkIDHint); n != nil {
			detection = models.Detection{Network: n, Matched: true}
		}
	}
	if detection.Network == nil {
		detection = t.registry.Detect(originalURL)
		if !detection.Matched {
			t.metrics.RecordFallback()
			t.logger.Debug("no network matched, using catch-all", zap.String("url", originalURL))
		}
	}
	network := detection.Network

	result := &models.TaggingResult{
		OriginalURL:  originalURL,
		AffiliateURL: originalURL,
		NetworkID:    network.ID,
		NetworkName:  network.Name,
		Matched:      detection.Matched,
	}

	cfg := t.configs.Get(network.ID)
	if cfg == nil || !cfg.Enabled || cfg.AffiliateID == "" {
		result.Error = "no active configuration for network " + network.ID
		t.metrics.RecordTagging(network.ID, metrics.OutcomeNotConfigured)
		return result
	}

	if !network.ValidateAffiliateID(cfg.AffiliateID) {
		result.Error = "configured affiliate id does not match " + network.ID + " format"
		t.metrics.RecordTagging(network.ID, metrics.OutcomeInvalidID)
		return result
	}

	// Re-tagging an already tagged URL is a no-op success, not a
	// second append.
	if alreadyTagged(originalURL, network) {
		result.Success = true
		t.metrics.RecordTagging(network.ID, metrics.OutcomeAlreadyTagged)
		return result
	}

	switch network.Strategy {
	case models.BuildWrapRedirect:
		result.AffiliateURL = buildWrapped(originalURL, network, cfg)
	default:
		result.AffiliateURL = buildAppended(originalURL, network, cfg)
	}
	result.Success = true

	t.metrics.RecordTagging(network.ID, metrics.OutcomeSuccess)
	t.logger.Debug("built affiliate url",
		zap.String("network", network.ID),
		zap.String("affiliate_url", result.AffiliateURL),
	)
	return result
}

// Validate inspects a URL against the registry and the active
// configuration, reporting every issue rather than the first.
func (t *Tagger) Validate(rawURL string) *models.ValidationReport {
	detection := t.registry.Detect(rawURL)
	network := detection.Network

	var issues []string
	if !detection.Matched {
		issues = append(issues, "no specific network detected, catch-all applies")
	}

	cfg := t.configs.Get(network.ID)
	switch {
	case cfg == nil:
		issues = append(issues, "no configuration for "+network.Name)
	case !cfg.Enabled:
		issues = append(issues, network.Name+" is disabled")
	case !network.ValidateAffiliateID(cfg.AffiliateID):
		issues = append(issues, "invalid affiliate id format")
	}

	if !alreadyTagged(rawURL, network) {
		issues = append(issues, "missing "+network.TagParameter+" parameter")
	}

	return &models.ValidationReport{
		IsValid: len(issues) == 0,
		Network: network.Name,
		Issues:  issues,
	}
}

// alreadyTagged reports whether the URL already carries the network's
// tag. For append networks that means the tag parameter exists as a
// query key; for wrapper networks, that the URL already points at the
// redirector host.
func alreadyTagged(rawURL string, network *models.AffiliateNetwork) bool {
	if network.Strategy == models.BuildWrapRedirect {
		host := wrapHost(network.WrapTemplate)
		return host != "" && strings.Contains(strings.ToLower(rawURL), host)
	}

	parsed, err := url.Parse(rawURL)
	if err == nil && parsed.RawQuery != "" {
		if parsed.Query().Has(network.TagParameter) {
			return true
		}
	}
	// Malformed URLs still get the substring check so a second append
	// never slips through.
	return err != nil && strings.Contains(rawURL, network.TagParameter+"=")
}

// buildAppended splices the tag template onto the URL: '&' when the
// URL already has a query string, otherwise the template's own leading
// separator.
func buildAppended(rawURL string, network *models.AffiliateNetwork, cfg *models.AffiliateConfig) string {
	tag := strings.ReplaceAll(network.TagFormat, "{affiliateId}", cfg.AffiliateID)

	var out string
	switch {
	case strings.Contains(rawURL, "?"):
		out = rawURL + "&" + strings.TrimLeft(tag, "?&")
	case strings.HasPrefix(tag, "?"):
		out = rawURL + tag
	default:
		out = rawURL + "?" + strings.TrimLeft(tag, "?&")
	}

	if cfg.SubID != "" && network.SubParameter != "" {
		out += "&" + network.SubParameter + "=" + url.QueryEscape(cfg.SubID)
	}
	return out
}

// buildWrapped rewrites the URL into the network's redirector link.
func buildWrapped(rawURL string, network *models.AffiliateNetwork, cfg *models.AffiliateConfig) string {
	out := strings.ReplaceAll(network.WrapTemplate, "{affiliateId}", cfg.AffiliateID)
	out = strings.ReplaceAll(out, "{{URL_ENC}}", url.QueryEscape(rawURL))
	out = strings.ReplaceAll(out, "{{URL}}", rawURL)
	if cfg.SubID != "" && network.SubParameter != "" {
		out += "&" + network.SubParameter + "=" + url.QueryEscape(cfg.SubID)
	}
	return out
}

// wrapHost extracts the redirector host from a wrap template.
func wrapHost(template string) string {
	u, err := url.Parse(strings.ReplaceAll(template, "{affiliateId}", "x"))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Host)
}
