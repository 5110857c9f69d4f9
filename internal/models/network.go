package models

import "regexp"

// BuildStrategy selects how a network splices its tracking identifier
// into an outbound URL.
type BuildStrategy string

const (
	// BuildAppendParam appends the tag as a query parameter using the
	// network's TagFormat template.
	BuildAppendParam BuildStrategy = "append_param"
	// BuildWrapRedirect wraps the whole URL into a redirector link,
	// e.g. the CueLinks linksredirect scheme.
	BuildWrapRedirect BuildStrategy = "wrap_redirect"
)

// AffiliateNetwork describes one affiliate program known to the
// registry. Entries are built once at process start and never mutated.
type AffiliateNetwork struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	URLPatterns  []string `json:"url_patterns"`
	TagParameter string   `json:"tag_parameter"`
	// TagFormat is the template spliced into the URL, e.g.
	// "?tag={affiliateId}" or "&subid={affiliateId}". A leading '?'
	// marks the network's preferred separator for clean URLs.
	TagFormat string `json:"tag_format"`
	// SubParameter is the query key used for the optional secondary
	// tracking id. Empty means the network ignores sub ids.
	SubParameter string `json:"sub_parameter,omitempty"`

	Strategy BuildStrategy `json:"strategy"`
	// WrapTemplate is only used with BuildWrapRedirect. {affiliateId}
	// and {{URL_ENC}} placeholders are substituted at build time.
	WrapTemplate string `json:"wrap_template,omitempty"`

	// ValidationPattern is the source pattern for IDValidation, kept
	// for display and persistence.
	ValidationPattern string         `json:"validation_pattern"`
	IDValidation      *regexp.Regexp `json:"-"`
}

// ValidateAffiliateID reports whether id satisfies the network's
// identifier rule. Networks without a compiled rule accept anything
// non-empty.
func (n *AffiliateNetwork) ValidateAffiliateID(id string) bool {
	if id == "" {
		return false
	}
	if n.IDValidation == nil {
		return true
	}
	return n.IDValidation.MatchString(id)
}

// Detection is the outcome of classifying a URL. Matched is false when
// the URL fell through to the catch-all network; the Network field is
// never nil.
type Detection struct {
	Network *AffiliateNetwork `json:"network"`
	Matched bool              `json:"matched"`
}
