package geo

// Region is any geographic area that can answer a point-membership test.
// Similarity matching never needs to know whether it is looking at a real
// isochrone polygon or a degraded circle substitute.
type Region interface {
	Contains(c Coordinate) bool
}

// CircleRegion is a fixed-radius disc around a center point. It is the
// substitute region used when isochrone generation is unavailable.
type CircleRegion struct {
	Center  Coordinate
	RadiusM float64
}

// NewCircleRegion builds a circular region with the given radius in metres.
func NewCircleRegion(center Coordinate, radiusM float64) CircleRegion {
	return CircleRegion{Center: center, RadiusM: radiusM}
}

func (r CircleRegion) Contains(c Coordinate) bool {
	return HaversineMeters(r.Center, c) <= r.RadiusM
}

// PolygonRegion is a simple (non self-intersecting) polygon, typically an
// isochrone contour returned by the routing provider.
type PolygonRegion struct {
	vertices []Coordinate
}

// NewPolygonRegion builds a polygon from its outer ring. A closing vertex
// equal to the first is optional. Polygons with fewer than three distinct
// vertices contain nothing.
func NewPolygonRegion(ring []Coordinate) PolygonRegion {
	if n := len(ring); n > 1 && ring[0] == ring[n-1] {
		ring = ring[:n-1]
	}
	vertices := make([]Coordinate, len(ring))
	copy(vertices, ring)
	return PolygonRegion{vertices: vertices}
}

// Vertices returns a copy of the polygon's outer ring.
func (r PolygonRegion) Vertices() []Coordinate {
	out := make([]Coordinate, len(r.vertices))
	copy(out, r.vertices)
	return out
}

// Contains implements ray casting over the outer ring. Points exactly on an
// edge may fall on either side; at the scale of isochrone contours this is
// irrelevant.
func (r PolygonRegion) Contains(c Coordinate) bool {
	n := len(r.vertices)
	if n < 3 {
		return false
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		vi, vj := r.vertices[i], r.vertices[j]
		if (vi.Lat > c.Lat) != (vj.Lat > c.Lat) {
			crossLon := (vj.Lon-vi.Lon)*(c.Lat-vi.Lat)/(vj.Lat-vi.Lat) + vi.Lon
			if c.Lon < crossLon {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
