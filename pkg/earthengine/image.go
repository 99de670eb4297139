package earthengine

import (
	"time"
)

// Image is a lazily computed remote raster. Bands holds the labels the
// service will assign to its bands, as far as they can be derived from the
// operations that produced it; nil means unknown.
type Image struct {
	node  Node
	bands []string
}

// Node returns the expression behind the image.
func (i Image) Node() Node { return i.node }

// Bands returns the tracked band labels.
func (i Image) Bands() []string {
	out := make([]string, len(i.bands))
	copy(out, i.bands)
	return out
}

// Defined reports whether the handle refers to an expression at all.
func (i Image) Defined() bool { return i.node != nil }

// ConstantImage is a single-band image with the same value everywhere.
func ConstantImage(v float64) Image {
	return Image{
		node:  Invoke("Image.constant", map[string]Node{"value": Const(v)}),
		bands: []string{"constant"},
	}
}

// EmptyImage is a fully masked constant image, the canvas for Paint.
func EmptyImage() Image {
	zero := ConstantImage(0)
	return Image{
		node:  Invoke("Image.mask", map[string]Node{"image": zero.node, "mask": zero.node}),
		bands: []string{"constant"},
	}
}

// Select keeps the named bands.
func (i Image) Select(bands ...string) Image {
	return Image{
		node:  Invoke("Image.select", map[string]Node{"input": i.node, "bandSelectors": Strings(bands...)}),
		bands: bands,
	}
}

// NormalizedDifference computes (a - b) / (a + b). Pixels where the
// denominator is zero come back masked. The output band is labelled "nd".
func (i Image) NormalizedDifference(a, b string) Image {
	return Image{
		node:  Invoke("Image.normalizedDifference", map[string]Node{"input": i.node, "bandNames": Strings(a, b)}),
		bands: []string{"nd"},
	}
}

func (i Image) binary(function string, other Image) Image {
	return Image{
		node:  Invoke(function, map[string]Node{"image1": i.node, "image2": other.node}),
		bands: i.bands,
	}
}

// Subtract, Multiply and Divide are per-pixel arithmetic. The result keeps
// the labels of the left operand.
func (i Image) Subtract(other Image) Image { return i.binary("Image.subtract", other) }
func (i Image) Multiply(other Image) Image { return i.binary("Image.multiply", other) }
func (i Image) Divide(other Image) Image   { return i.binary("Image.divide", other) }

// Gt is 1 where the image exceeds v and 0 elsewhere.
func (i Image) Gt(v float64) Image {
	return i.binary("Image.gt", ConstantImage(v))
}

// SelfMask masks every pixel whose value is zero.
func (i Image) SelfMask() Image {
	return Image{node: Invoke("Image.selfMask", map[string]Node{"image": i.node}), bands: i.bands}
}

// UpdateMask restricts the image to pixels where mask is defined and non-zero.
func (i Image) UpdateMask(mask Image) Image {
	return Image{
		node:  Invoke("Image.updateMask", map[string]Node{"image": i.node, "mask": mask.node}),
		bands: i.bands,
	}
}

// Paint burns the features of fc into the image with the given colour and
// outline width.
func (i Image) Paint(fc FeatureCollection, color, width float64) Image {
	return Image{
		node: Invoke("Image.paint", map[string]Node{
			"image":             i.node,
			"featureCollection": fc.node,
			"color":             Const(color),
			"width":             Const(width),
		}),
		bands: i.bands,
	}
}

// Get reads an image property.
func (i Image) Get(property string) Node {
	return Invoke("Element.get", map[string]Node{"object": i.node, "property": Const(property)})
}

// ReduceOptions are the spatial parameters of a region reduction.
type ReduceOptions struct {
	Scale      float64
	BestEffort bool
	MaxPixels  float64
}

func (o ReduceOptions) args() map[string]Node {
	args := map[string]Node{}
	if o.Scale > 0 {
		args["scale"] = Const(o.Scale)
	}
	if o.BestEffort {
		args["bestEffort"] = Const(true)
	}
	if o.MaxPixels > 0 {
		args["maxPixels"] = Const(o.MaxPixels)
	}
	return args
}

// ReduceRegion summarises the image over g. The keys of the returned
// dictionary follow the service's naming for r applied to the image bands.
func (i Image) ReduceRegion(r Reducer, g Geometry, opts ReduceOptions) Dictionary {
	args := opts.args()
	args["image"] = i.node
	args["reducer"] = r.node
	args["geometry"] = g.node
	return Dictionary{
		node: Invoke("Image.reduceRegion", args),
		keys: r.OutputKeys(i.bands),
	}
}

// VectorOptions parameterise ReduceToVectors.
type VectorOptions struct {
	ReduceOptions
	EightConnected bool
	LabelProperty  string
}

// ReduceToVectors turns connected runs of equal pixels inside g into
// polygons.
func (i Image) ReduceToVectors(g Geometry, opts VectorOptions) FeatureCollection {
	args := opts.args()
	args["image"] = i.node
	args["reducer"] = CountEveryReducer().node
	args["geometry"] = g.node
	args["geometryType"] = Const("polygon")
	args["eightConnected"] = Const(opts.EightConnected)
	if opts.LabelProperty != "" {
		args["labelProperty"] = Const(opts.LabelProperty)
	}
	return FeatureCollection{node: Invoke("Image.reduceToVectors", args)}
}

// ImageCollection is a lazily filtered remote image catalog.
type ImageCollection struct {
	node Node
}

// LoadCollection refers to a catalog collection by id.
func LoadCollection(id string) ImageCollection {
	return ImageCollection{node: Invoke("ImageCollection.load", map[string]Node{"id": Const(id)})}
}

// Node returns the expression behind the collection.
func (c ImageCollection) Node() Node { return c.node }

func (c ImageCollection) filter(f Node) ImageCollection {
	return ImageCollection{node: Invoke("Collection.filter", map[string]Node{"collection": c.node, "filter": f})}
}

// FilterBounds keeps images whose footprint intersects g.
func (c ImageCollection) FilterBounds(g Geometry) ImageCollection {
	return c.filter(Invoke("Filter.intersects", map[string]Node{
		"leftField":  Const(".all"),
		"rightValue": g.node,
	}))
}

// FilterDate keeps images acquired in the half-open range [start, end):
// scenes from the end date itself are excluded. Dates are sent as calendar
// dates and interpreted by the service.
func (c ImageCollection) FilterDate(start, end time.Time) ImageCollection {
	return c.filter(Invoke("Filter.dateRangeContains", map[string]Node{
		"leftValue": Invoke("DateRange", map[string]Node{
			"start": Const(start.Format(time.DateOnly)),
			"end":   Const(end.Format(time.DateOnly)),
		}),
		"rightField": Const("system:time_start"),
	}))
}

// Sort orders the collection by an image property.
func (c ImageCollection) Sort(property string, ascending bool) ImageCollection {
	return ImageCollection{node: Invoke("Collection.limit", map[string]Node{
		"collection": c.node,
		"key":        Const(property),
		"ascending":  Const(ascending),
	})}
}

// First is the first image of the collection, null when it is empty.
func (c ImageCollection) First() Image {
	return Image{node: Invoke("Collection.first", map[string]Node{"collection": c.node})}
}

// Size counts the images in the collection.
func (c ImageCollection) Size() Node {
	return Invoke("Collection.size", map[string]Node{"collection": c.node})
}

// Mosaic composites the collection into one image, last image on top.
func (c ImageCollection) Mosaic() Image {
	return Image{node: Invoke("ImageCollection.mosaic", map[string]Node{"collection": c.node})}
}

// Geometry is a remote geometry.
type Geometry struct {
	node Node
}

// Node returns the expression behind the geometry.
func (g Geometry) Node() Node { return g.node }

// Point is a lon/lat point.
func Point(lon, lat float64) Geometry {
	return Geometry{node: Invoke("GeometryConstructors.Point", map[string]Node{
		"coordinates": Numbers(lon, lat),
	})}
}

// Buffer grows the geometry by meters.
func (g Geometry) Buffer(meters float64) Geometry {
	return Geometry{node: Invoke("Geometry.buffer", map[string]Node{"geometry": g.node, "distance": Const(meters)})}
}

// Bounds is the bounding rectangle of the geometry.
func (g Geometry) Bounds() Geometry {
	return Geometry{node: Invoke("Geometry.bounds", map[string]Node{"geometry": g.node})}
}

// FeatureCollection is a remote vector collection.
type FeatureCollection struct {
	node Node
}

// Node returns the expression behind the collection.
func (fc FeatureCollection) Node() Node { return fc.node }

// FeatureCollectionOf wraps geometries as a collection of property-less
// features.
func FeatureCollectionOf(geoms ...Geometry) FeatureCollection {
	features := make([]Node, len(geoms))
	for i, g := range geoms {
		features[i] = Invoke("Feature", map[string]Node{"geometry": g.node})
	}
	return FeatureCollection{node: Invoke("Collection", map[string]Node{"features": Array{Items: features}})}
}

// Reducer is a remote aggregation function together with the names of its
// outputs.
type Reducer struct {
	node    Node
	outputs []string
}

// Node returns the expression behind the reducer.
func (r Reducer) Node() Node { return r.node }

// MinMaxReducer yields min and max.
func MinMaxReducer() Reducer {
	return Reducer{node: Invoke("Reducer.minMax", nil), outputs: []string{"min", "max"}}
}

// MeanReducer yields the unweighted mean.
func MeanReducer() Reducer {
	return Reducer{node: Invoke("Reducer.mean", nil), outputs: []string{"mean"}}
}

// CountEveryReducer counts every pixel regardless of mask.
func CountEveryReducer() Reducer {
	return Reducer{node: Invoke("Reducer.countEvery", nil), outputs: []string{"count"}}
}

// Combine runs both reducers over the same inputs in one pass.
func (r Reducer) Combine(other Reducer) Reducer {
	outputs := append(append([]string{}, r.outputs...), other.outputs...)
	return Reducer{
		node: Invoke("Reducer.combine", map[string]Node{
			"reducer1":     r.node,
			"reducer2":     other.node,
			"sharedInputs": Const(true),
		}),
		outputs: outputs,
	}
}

// OutputKeys predicts the dictionary keys a region reduction produces for
// the given band labels: a single-output reducer keeps the band names,
// otherwise each output is suffixed to each band.
func (r Reducer) OutputKeys(bands []string) []string {
	if len(r.outputs) == 1 {
		return append([]string{}, bands...)
	}
	keys := make([]string, 0, len(bands)*len(r.outputs))
	for _, b := range bands {
		for _, o := range r.outputs {
			keys = append(keys, b+"_"+o)
		}
	}
	return keys
}

// Dictionary is a remote key/value result.
type Dictionary struct {
	node Node
	keys []string
}

// NewDictionary bundles several remote values so they are fetched in one
// request.
func NewDictionary(entries map[string]Node) Dictionary {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	return Dictionary{node: Dict{Entries: entries}, keys: keys}
}

// Node returns the expression behind the dictionary.
func (d Dictionary) Node() Node { return d.node }

// Keys returns the keys the dictionary is expected to carry.
func (d Dictionary) Keys() []string { return append([]string{}, d.keys...) }
