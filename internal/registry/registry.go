package registry

import (
	"regexp"
	"strings"

	"github.com/dealpicks/affiliate-engine/internal/models"
)

// CustomNetworkID is the catch-all network every registry carries. It
// matches any URL and accepts any reasonably shaped affiliate id, so
// detection never fails outright.
const CustomNetworkID = "custom"

// Registry is the static catalog of affiliate networks. It is built
// once at startup and injected into the services that need it; there
// is no package-level state.
type Registry struct {
	ordered []*models.AffiliateNetwork
	byID    map[string]*models.AffiliateNetwork
}

// New returns a registry with the built-in network catalog. More
// specific networks are registered before generic ones because
// detection is first-registered-wins.
func New() *Registry {
	r := &Registry{byID: make(map[string]*models.AffiliateNetwork)}
	for _, n := range builtinNetworks() {
		r.register(n)
	}
	return r
}

// NewEmpty returns a registry without the built-in catalog. Intended
// for tests that want full control over registration order.
func NewEmpty() *Registry {
	return &Registry{byID: make(map[string]*models.AffiliateNetwork)}
}

// Register adds a network to the catalog. Later registrations with an
// existing id replace the entry but keep its detection position.
func (r *Registry) Register(n *models.AffiliateNetwork) {
	r.register(n)
}

func (r *Registry) register(n *models.AffiliateNetwork) {
	if n.IDValidation == nil && n.ValidationPattern != "" {
		n.IDValidation = regexp.MustCompile(n.ValidationPattern)
	}
	if existing, ok := r.byID[n.ID]; ok {
		*existing = *n
		return
	}
	r.byID[n.ID] = n
	r.ordered = append(r.ordered, n)
}

// Get returns the network with the given id, or nil if unknown.
func (r *Registry) Get(id string) *models.AffiliateNetwork {
	return r.byID[id]
}

// List returns all registered networks in registration order.
func (r *Registry) List() []*models.AffiliateNetwork {
	out := make([]*models.AffiliateNetwork, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Custom returns the catch-all network.
func (r *Registry) Custom() *models.AffiliateNetwork {
	return r.byID[CustomNetworkID]
}

// Detect classifies a URL against the catalog. Networks are scanned in
// registration order, skipping the catch-all; the first whose pattern
// appears as a substring of the lowercased URL wins. Substring
// containment is intentional: it tolerates redirector domains and
// shortened links that full hostname parsing would miss. When nothing
// matches the catch-all is returned with Matched=false.
func (r *Registry) Detect(rawURL string) models.Detection {
	lower := strings.ToLower(rawURL)
	for _, n := range r.ordered {
		if n.ID == CustomNetworkID {
			continue
		}
		for _, pattern := range n.URLPatterns {
			if strings.Contains(lower, strings.ToLower(pattern)) {
				return models.Detection{Network: n, Matched: true}
			}
		}
	}
	return models.Detection{Network: r.Custom(), Matched: false}
}

func builtinNetworks() []*models.AffiliateNetwork {
	return []*models.AffiliateNetwork{
		{
			ID:                "amazon",
			Name:              "Amazon Associates",
			URLPatterns:       []string{"amazon.com", "amazon.in", "amazon.co.uk", "amazon.de", "amazon.fr", "amzn.to"},
			TagParameter:      "tag",
			TagFormat:         "?tag={affiliateId}",
			SubParameter:      "ascsubtag",
			Strategy:          models.BuildAppendParam,
			ValidationPattern: `^[a-zA-Z0-9-]{1,20}$`,
		},
		{
			ID:                "cuelinks",
			Name:              "CueLinks",
			URLPatterns:       []string{"cuelinks.com", "clnk.in", "linksredirect.com"},
			TagParameter:      "subid",
			TagFormat:         "&subid={affiliateId}",
			SubParameter:      "subid2",
			Strategy:          models.BuildWrapRedirect,
			WrapTemplate:      "https://linksredirect.com/?cid={affiliateId}&source=linkkit&url={{URL_ENC}}",
			ValidationPattern: `^[a-zA-Z0-9_-]{1,50}$`,
		},
		{
			ID:                "cj",
			Name:              "Commission Junction",
			URLPatterns:       []string{"cj.com", "commission-junction.com", "anrdoezrs.net", "dpbolvw.net", "jdoqocy.com"},
			TagParameter:      "sid",
			TagFormat:         "&sid={affiliateId}",
			Strategy:          models.BuildAppendParam,
			ValidationPattern: `^[0-9]{1,20}$`,
		},
		{
			ID:                "shareasale",
			Name:              "ShareASale",
			URLPatterns:       []string{"shareasale.com", "shareapic.net"},
			TagParameter:      "afftrack",
			TagFormat:         "&afftrack={affiliateId}",
			Strategy:          models.BuildAppendParam,
			ValidationPattern: `^[a-zA-Z0-9_-]{1,50}$`,
		},
		{
			ID:                "impact",
			Name:              "Impact Radius",
			URLPatterns:       []string{"impact.com", "impactradius.com"},
			TagParameter:      "clickid",
			TagFormat:         "&clickid={affiliateId}",
			Strategy:          models.BuildAppendParam,
			ValidationPattern: `^[a-zA-Z0-9_-]{1,50}$`,
		},
		{
			ID:                "clickbank",
			Name:              "ClickBank",
			URLPatterns:       []string{"clickbank.net", "cb-analytics.com"},
			TagParameter:      "tid",
			TagFormat:         "?tid={affiliateId}",
			Strategy:          models.BuildAppendParam,
			ValidationPattern: `^[a-zA-Z0-9]{1,20}$`,
		},
		{
			ID:                "flipkart",
			Name:              "Flipkart Affiliate",
			URLPatterns:       []string{"flipkart.com", "fkrt.it"},
			TagParameter:      "affid",
			TagFormat:         "&affid={affiliateId}",
			Strategy:          models.BuildAppendParam,
			ValidationPattern: `^[a-zA-Z0-9]{1,20}$`,
		},
		{
			ID:                CustomNetworkID,
			Name:              "Custom Network",
			URLPatterns:       []string{"*"},
			TagParameter:      "ref",
			TagFormat:         "?ref={affiliateId}",
			SubParameter:      "subref",
			Strategy:          models.BuildAppendParam,
			ValidationPattern: `^[a-zA-Z0-9_-]{1,50}$`,
		},
	}
}
