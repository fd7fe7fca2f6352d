// Package geoip maps client IP addresses to a coarse city position using a
// MaxMind GeoLite2/GeoIP2 City database.
package geoip

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/samirrijal/poonyc/internal/core/domain"
)

// Locator implements ports.RegionLocator.
type Locator struct {
	db *geoip2.Reader
}

// Open loads the City database at path.
func Open(path string) (*Locator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip db: %w", err)
	}
	return &Locator{db: db}, nil
}

// Locate returns the city position for ip. Private, unparsable and unknown
// addresses report false.
func (l *Locator) Locate(ip string) (domain.GeoPoint, bool) {
	addr := net.ParseIP(ip)
	if addr == nil || addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() {
		return domain.GeoPoint{}, false
	}
	rec, err := l.db.City(addr)
	if err != nil {
		return domain.GeoPoint{}, false
	}
	pt := domain.GeoPoint{Lat: rec.Location.Latitude, Lon: rec.Location.Longitude}
	if pt == (domain.GeoPoint{}) || !pt.Valid() {
		return domain.GeoPoint{}, false
	}
	return pt, true
}

// Close releases the database.
func (l *Locator) Close() error {
	return l.db.Close()
}
