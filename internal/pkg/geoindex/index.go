// Package geoindex keeps resolved pins in an R-tree so the map can ask which
// pins fall inside the viewport and which one is closest to the user.
package geoindex

import (
	"sort"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/samirrijal/poonyc/internal/core/domain"
	"github.com/samirrijal/poonyc/internal/pkg/geospatial"
)

const (
	tolerance   = 1e-9
	minChildren = 4
	maxChildren = 16
	dimensions  = 2
)

// pinItem wraps a Pin for R-tree indexing. seq is the pin's position in the
// slice the index was built from; results are returned in that order.
type pinItem struct {
	pin  domain.Pin
	seq  int
	rect *rtreego.Rect
}

func (p *pinItem) Bounds() *rtreego.Rect {
	return p.rect
}

// PinIndex is an immutable-after-build spatial index over pins.
type PinIndex struct {
	mu   sync.RWMutex
	tree *rtreego.Rtree
	size int
}

// New builds an index over pins.
func New(pins []domain.Pin) *PinIndex {
	ix := &PinIndex{tree: rtreego.NewTree(dimensions, minChildren, maxChildren)}
	for i, p := range pins {
		pt := rtreego.Point{p.Coordinate.Lat, p.Coordinate.Lon}
		ix.tree.Insert(&pinItem{pin: p, seq: i, rect: pt.ToRect(tolerance)})
		ix.size++
	}
	return ix
}

// Len returns the number of indexed pins.
func (ix *PinIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.size
}

// InBounds returns the pins inside b, in build order.
func (ix *PinIndex) InBounds(b domain.Bounds) []domain.Pin {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.size == 0 || b.MaxLat <= b.MinLat || b.MaxLon <= b.MinLon {
		return nil
	}
	rect, err := rtreego.NewRect(
		rtreego.Point{b.MinLat, b.MinLon},
		[]float64{b.MaxLat - b.MinLat, b.MaxLon - b.MinLon},
	)
	if err != nil {
		return nil
	}

	var items []*pinItem
	for _, s := range ix.tree.SearchIntersect(rect) {
		item, ok := s.(*pinItem)
		if !ok || !b.Contains(item.pin.Coordinate) {
			continue
		}
		items = append(items, item)
	}
	return ordered(items)
}

// WithinRadius returns the pins within radiusMeters of p, in build order.
func (ix *PinIndex) WithinRadius(p domain.GeoPoint, radiusMeters float64) []domain.Pin {
	var out []domain.Pin
	for _, pin := range ix.InBounds(geospatial.BoundingBox(p, radiusMeters)) {
		if geospatial.Distance(p, pin.Coordinate) <= radiusMeters {
			out = append(out, pin)
		}
	}
	return out
}

// Nearest returns the pin closest to p and its distance in meters.
func (ix *PinIndex) Nearest(p domain.GeoPoint) (domain.Pin, float64, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.size == 0 {
		return domain.Pin{}, 0, false
	}
	item, ok := ix.tree.NearestNeighbor(rtreego.Point{p.Lat, p.Lon}).(*pinItem)
	if !ok || item == nil {
		return domain.Pin{}, 0, false
	}
	return item.pin, geospatial.Distance(p, item.pin.Coordinate), true
}

func ordered(items []*pinItem) []domain.Pin {
	sort.Slice(items, func(i, j int) bool { return items[i].seq < items[j].seq })
	out := make([]domain.Pin, len(items))
	for i, it := range items {
		out[i] = it.pin
	}
	return out
}
