package export

import (
	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
)

// toShape converts polygons to one shapefile polygon record. Shapefiles
// want outer rings clockwise and holes counter-clockwise, the reverse of
// GeoJSON, so rings are reoriented. Rings with fewer than four points are
// dropped; nil means nothing usable was left.
func toShape(polys []*geom.Polygon) *shp.Polygon {
	var parts [][]shp.Point
	for _, p := range polys {
		for i := 0; i < p.NumLinearRings(); i++ {
			ring := ringPoints(p.LinearRing(i))
			if len(ring) < 4 {
				if i == 0 {
					break
				}
				continue
			}
			clockwise := signedArea(ring) < 0
			if (i == 0) != clockwise {
				reverse(ring)
			}
			parts = append(parts, ring)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	poly := shp.Polygon(*shp.NewPolyLine(parts))
	return &poly
}

func ringPoints(r *geom.LinearRing) []shp.Point {
	flat := r.FlatCoords()
	stride := r.Stride()
	pts := make([]shp.Point, 0, len(flat)/stride+1)
	for i := 0; i+1 < len(flat); i += stride {
		pts = append(pts, shp.Point{X: flat[i], Y: flat[i+1]})
	}
	if n := len(pts); n > 0 && pts[0] != pts[n-1] {
		pts = append(pts, pts[0])
	}
	return pts
}

// signedArea is positive for counter-clockwise rings.
func signedArea(pts []shp.Point) float64 {
	var sum float64
	for i := 0; i+1 < len(pts); i++ {
		sum += pts[i].X*pts[i+1].Y - pts[i+1].X*pts[i].Y
	}
	return sum / 2
}

func reverse(pts []shp.Point) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}
