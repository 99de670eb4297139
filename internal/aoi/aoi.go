// Package aoi turns a typed coordinate and a buffer radius into the
// rectangular area every remote computation is restricted to.
package aoi

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/rotisserie/eris"
	"golang.org/x/text/width"

	"github.com/sells-group/water-quality/pkg/earthengine"
)

// ErrInvalidCoordinate is returned for coordinate text that is not exactly
// two comma-separated numbers.
var ErrInvalidCoordinate = eris.New("invalid coordinate input: enter comma-separated latitude and longitude")

// ErrInvalidRadius is returned for a non-positive or non-finite radius.
var ErrInvalidRadius = eris.New("invalid buffer radius: must be a positive number of kilometers")

// MetersPerKilometer converts the user's radius into the service's unit.
const MetersPerKilometer = 1000

// Coordinate is a point in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point returns the coordinate in lon/lat order.
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// ParseCoordinate reads "lat, lon". Full-width digits and punctuation, as
// produced by CJK input methods, are folded to ASCII first.
func ParseCoordinate(text string) (Coordinate, error) {
	parts := strings.Split(width.Narrow.String(text), ",")
	if len(parts) != 2 {
		return Coordinate{}, ErrInvalidCoordinate
	}

	var vals [2]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Coordinate{}, ErrInvalidCoordinate
		}
		vals[i] = v
	}
	return Coordinate{Lat: vals[0], Lon: vals[1]}, nil
}

// AOI is the bounding rectangle of a disc around Center.
type AOI struct {
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radius_m"`
	Bound        orb.Bound  `json:"-"`
}

// Build buffers c by radiusKm and keeps the bounding rectangle of the disc.
// Near the antimeridian the rectangle is kept continuous, so one of its
// longitudes lies outside ±180.
func Build(c Coordinate, radiusKm float64) (AOI, error) {
	if radiusKm <= 0 || math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) {
		return AOI{}, ErrInvalidRadius
	}
	meters := radiusKm * MetersPerKilometer

	bound := geo.NewBoundAroundPoint(c.Point(), meters)
	if bound.Min.X() > bound.Max.X() {
		if c.Lon >= 0 {
			bound.Max[0] += 360
		} else {
			bound.Min[0] -= 360
		}
	}

	return AOI{
		Center:       c,
		RadiusMeters: meters,
		Bound:        bound,
	}, nil
}

// Contains reports whether c lies inside the rectangle.
func (a AOI) Contains(c Coordinate) bool {
	return a.Bound.Contains(c.Point())
}

// Ring is the closed boundary, counter-clockwise from the south-west corner.
func (a AOI) Ring() orb.Ring {
	return a.Bound.ToRing()
}

// BBox returns west, south, east, north.
func (a AOI) BBox() [4]float64 {
	return [4]float64{a.Bound.Min.X(), a.Bound.Min.Y(), a.Bound.Max.X(), a.Bound.Max.Y()}
}

// WidthMeters is the east-west extent measured through the center.
func (a AOI) WidthMeters() float64 {
	lat := a.Center.Lat
	return geo.Distance(orb.Point{a.Bound.Min.X(), lat}, orb.Point{a.Bound.Max.X(), lat})
}

// Geometry is the same area as a remote geometry: the center buffered by
// the radius, reduced to its bounds by the service.
func (a AOI) Geometry() earthengine.Geometry {
	return earthengine.Point(a.Center.Lon, a.Center.Lat).Buffer(a.RadiusMeters).Bounds()
}
