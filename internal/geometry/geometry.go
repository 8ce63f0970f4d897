// Package geometry answers one question for the interpolator: which areas
// border a given area. Adjacency is exposed as a capability interface so the
// resolution pipeline can run against a synthetic graph in tests and against
// real polygon boundaries in production.
package geometry

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// NeighborIndex reports the topological neighbors of an area.
type NeighborIndex interface {
	// Neighbors returns the identifiers of every other area whose geometry
	// is not disjoint from the named area's geometry. Unknown identifiers
	// return nil.
	Neighbors(geoID string) []string
}

// StaticIndex is a map-backed NeighborIndex for tests and callers that
// already know their adjacency graph.
type StaticIndex map[string][]string

// Neighbors implements NeighborIndex.
func (s StaticIndex) Neighbors(geoID string) []string {
	return s[geoID]
}

// PolygonIndex derives adjacency from area polygons: two areas are neighbors
// when their polygons touch or overlap.
type PolygonIndex struct {
	ids    []string
	polys  map[string]orb.Polygon
	bounds map[string]orb.Bound
}

// NewPolygonIndex creates an empty index.
func NewPolygonIndex() *PolygonIndex {
	return &PolygonIndex{
		polys:  make(map[string]orb.Polygon),
		bounds: make(map[string]orb.Bound),
	}
}

// Add registers an area polygon.
func (p *PolygonIndex) Add(geoID string, poly orb.Polygon) {
	if _, ok := p.polys[geoID]; !ok {
		p.ids = append(p.ids, geoID)
	}
	p.polys[geoID] = poly
	p.bounds[geoID] = poly.Bound()
}

// Len returns the number of indexed areas.
func (p *PolygonIndex) Len() int {
	return len(p.ids)
}

// Neighbors implements NeighborIndex with a bounding-box prefilter followed
// by an exact disjointness test.
func (p *PolygonIndex) Neighbors(geoID string) []string {
	poly, ok := p.polys[geoID]
	if !ok {
		return nil
	}
	bound := p.bounds[geoID]

	var neighbors []string
	for _, other := range p.ids {
		if other == geoID {
			continue
		}
		if !bound.Intersects(p.bounds[other]) {
			continue
		}
		if !disjoint(poly, p.polys[other]) {
			neighbors = append(neighbors, other)
		}
	}
	return neighbors
}

// LoadGeoJSON reads a FeatureCollection and indexes each feature's polygon
// under its idProperty value. MultiPolygons contribute every member polygon
// merged into one test set.
func LoadGeoJSON(r io.Reader, idProperty string) (*PolygonIndex, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read boundary document: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse boundary document: %w", err)
	}

	idx := NewPolygonIndex()
	for _, f := range fc.Features {
		id, ok := f.Properties[idProperty].(string)
		if !ok || id == "" {
			return nil, fmt.Errorf("boundary feature missing %q property", idProperty)
		}
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			idx.Add(id, g)
		case orb.MultiPolygon:
			// Flatten to one polygon ring set; disjointness only needs the
			// rings, not the polygon/hole structure.
			var merged orb.Polygon
			for _, poly := range g {
				merged = append(merged, poly...)
			}
			idx.Add(id, merged)
		default:
			return nil, fmt.Errorf("boundary feature %s has non-polygon geometry %T", id, f.Geometry)
		}
	}
	return idx, nil
}

// disjoint reports whether two polygons share no point: no ring segments
// cross or touch and neither contains the other.
func disjoint(a, b orb.Polygon) bool {
	for _, ringA := range a {
		for _, ringB := range b {
			if ringsIntersect(ringA, ringB) {
				return false
			}
		}
	}
	if len(a) > 0 && len(a[0]) > 0 && planar.PolygonContains(b, a[0][0]) {
		return false
	}
	if len(b) > 0 && len(b[0]) > 0 && planar.PolygonContains(a, b[0][0]) {
		return false
	}
	return true
}

func ringsIntersect(a, b orb.Ring) bool {
	for i := 1; i < len(a); i++ {
		for j := 1; j < len(b); j++ {
			if segmentsIntersect(a[i-1], a[i], b[j-1], b[j]) {
				return true
			}
		}
	}
	return false
}

// segmentsIntersect is the standard orientation test, counting touching
// endpoints and collinear overlap as intersections.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if d1 == 0 && onSegment(q1, q2, p1) {
		return true
	}
	if d2 == 0 && onSegment(q1, q2, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, q2) {
		return true
	}
	return false
}

func cross(a, b, p orb.Point) float64 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return min(a[0], b[0]) <= p[0] && p[0] <= max(a[0], b[0]) &&
		min(a[1], b[1]) <= p[1] && p[1] <= max(a[1], b[1])
}
