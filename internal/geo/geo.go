package geo

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Info holds the geo fields attached to click events.
type Info struct {
	Country string
	Region  string
	City    string
}

// Resolver looks up geo information for an IP address. A nil Resolver
// is valid and resolves nothing, so callers don't branch on whether
// geo enrichment is configured.
type Resolver struct {
	reader *geoip2.Reader
}

// NewResolver opens a MaxMind GeoLite2 database.
func NewResolver(dbPath string) (*Resolver, error) {
	reader, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	return &Resolver{reader: reader}, nil
}

// Lookup returns geo information for an IP, or an empty Info when the
// resolver is nil or the IP is unusable. Click tracking must never
// fail because of geo.
func (r *Resolver) Lookup(ip string) Info {
	if r == nil || r.reader == nil {
		return Info{}
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Info{}
	}
	record, err := r.reader.City(parsed)
	if err != nil {
		return Info{}
	}

	info := Info{
		Country: record.Country.IsoCode,
		City:    record.City.Names["en"],
	}
	if len(record.Subdivisions) > 0 {
		info.Region = record.Subdivisions[0].Names["en"]
	}
	return info
}

// Close closes the underlying GeoIP database.
func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}
