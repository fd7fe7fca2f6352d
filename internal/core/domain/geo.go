package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Region is the visible map area: a centre plus latitude/longitude spans in degrees.
type Region struct {
	Center  GeoPoint `json:"center"`
	SpanLat float64  `json:"span_lat"`
	SpanLon float64  `json:"span_lon"`
}

// RegionAround returns a square region of the given span centred on p.
func RegionAround(p GeoPoint, span float64) Region {
	return Region{Center: p, SpanLat: span, SpanLon: span}
}

// Bounds returns the region's bounding box.
func (r Region) Bounds() Bounds {
	return Bounds{
		MinLat: r.Center.Lat - r.SpanLat/2,
		MinLon: r.Center.Lon - r.SpanLon/2,
		MaxLat: r.Center.Lat + r.SpanLat/2,
		MaxLon: r.Center.Lon + r.SpanLon/2,
	}
}

// Valid reports whether the region has a plausible centre and positive spans.
func (r Region) Valid() bool {
	return r.Center.Valid() && r.SpanLat > 0 && r.SpanLon > 0 && r.SpanLat <= 180 && r.SpanLon <= 360
}

// Valid reports whether the point lies within WGS 84 ranges.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether p lies inside the box, edges included.
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}
