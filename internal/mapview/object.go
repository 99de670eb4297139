// Package mapview turns remote analysis objects into map layers and
// assembles the page the user sees.
package mapview

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/water-quality/pkg/earthengine"
)

// ErrUnsupportedObject is recorded for a layer whose object is not one of
// the known variants.
var ErrUnsupportedObject = eris.New("mapview: unsupported object")

// Object is a remote value that can be shown on the map. The variants are
// Raster, RasterCollection, Geometry and FeatureCollection.
type Object interface {
	object()
}

// Raster is a single image.
type Raster struct {
	Image earthengine.Image
}

// RasterCollection is shown as its mosaic.
type RasterCollection struct {
	Collection earthengine.ImageCollection
}

// Geometry is fetched as GeoJSON and drawn by the browser.
type Geometry struct {
	Geometry earthengine.Geometry
}

// FeatureCollection is shown as painted outlines.
type FeatureCollection struct {
	Features earthengine.FeatureCollection
}

func (Raster) object()            {}
func (RasterCollection) object()  {}
func (Geometry) object()          {}
func (FeatureCollection) object() {}
