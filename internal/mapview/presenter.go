package mapview

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/water-quality/internal/analysis"
	"github.com/sells-group/water-quality/internal/aoi"
	"github.com/sells-group/water-quality/internal/config"
	"github.com/sells-group/water-quality/internal/monitoring"
	"github.com/sells-group/water-quality/pkg/earthengine"
)

// Layer names on the map.
const (
	LayerScene     = "Sentinel-2"
	LayerWater     = "Water Bodies"
	LayerTurbidity = "NDTI Clipped"
	LayerArea      = "Area of Interest"
)

// Layer kinds.
const (
	KindTile    = "tile"
	KindGeoJSON = "geojson"
)

// Layer is one toggleable overlay. Err is set when no tile source could be
// obtained; such layers are omitted from the map.
type Layer struct {
	Name    string          `json:"name"`
	Kind    string          `json:"kind,omitempty"`
	TileURL string          `json:"tile_url,omitempty"`
	GeoJSON json.RawMessage `json:"geojson,omitempty"`
	Err     error           `json:"-"`
	Error   string          `json:"error,omitempty"`
}

// OK reports whether the layer can be drawn.
func (l Layer) OK() bool { return l.Err == nil }

// Presenter resolves objects to layers.
type Presenter struct {
	client  earthengine.Client
	imagery config.ImageryConfig
	mapCfg  config.MapConfig
}

// NewPresenter creates a presenter.
func NewPresenter(client earthengine.Client, imagery config.ImageryConfig, mapCfg config.MapConfig) *Presenter {
	return &Presenter{client: client, imagery: imagery, mapCfg: mapCfg}
}

// AddLayer obtains a displayable source for obj. Failures are logged and
// stored on the layer, never returned, so one bad layer leaves the others
// intact.
func (p *Presenter) AddLayer(ctx context.Context, obj Object, vis earthengine.Visualization, name string) Layer {
	layer := Layer{Name: name}

	var err error
	switch o := obj.(type) {
	case Raster:
		layer.Kind = KindTile
		layer.TileURL, err = p.tiles(ctx, o.Image.Node(), vis)
	case RasterCollection:
		layer.Kind = KindTile
		layer.TileURL, err = p.tiles(ctx, o.Collection.Mosaic().Node(), vis)
	case Geometry:
		layer.Kind = KindGeoJSON
		layer.GeoJSON, err = p.geoJSON(ctx, o.Geometry)
	case FeatureCollection:
		layer.Kind = KindTile
		outline := earthengine.EmptyImage().Paint(o.Features, 0, 2)
		layer.TileURL, err = p.tiles(ctx, outline.Node(), vis)
	default:
		err = ErrUnsupportedObject
	}

	if err != nil {
		layer.Err = err
		layer.Error = err.Error()
		zap.L().Warn("mapview: could not display layer", zap.String("layer", name), zap.Error(err))
		monitoring.IncLayerFailure(name)
	}
	return layer
}

func (p *Presenter) tiles(ctx context.Context, n earthengine.Node, vis earthengine.Visualization) (string, error) {
	if n == nil {
		return "", eris.New("mapview: undefined image")
	}
	id, err := p.client.CreateMap(ctx, n, vis)
	if err != nil {
		return "", eris.Wrap(err, "mapview: create map")
	}
	return id.TileURL, nil
}

func (p *Presenter) geoJSON(ctx context.Context, g earthengine.Geometry) (json.RawMessage, error) {
	if g.Node() == nil {
		return nil, eris.New("mapview: undefined geometry")
	}
	raw, err := p.client.ComputeValue(ctx, g.Node())
	if err != nil {
		return nil, eris.Wrap(err, "mapview: compute geometry")
	}
	if _, err := geojson.UnmarshalGeometry(raw); err != nil {
		return nil, eris.Wrap(err, "mapview: decode geometry")
	}
	return raw, nil
}

// Visualizations for the three analysis layers.
func (p *Presenter) sceneVis() earthengine.Visualization {
	return earthengine.Visualization{
		Bands: []string{p.imagery.Bands.Red, p.imagery.Bands.Green, p.imagery.Bands.Blue},
		Range: &earthengine.Range{Min: 0, Max: p.imagery.MaxReflectance},
	}
}

func waterVis() earthengine.Visualization {
	return earthengine.Visualization{Palette: []string{"0000FF"}}
}

func turbidityVis() earthengine.Visualization {
	palette := make([]string, len(TurbidityPalette))
	for i, c := range TurbidityPalette {
		palette[i] = c[1:]
	}
	return earthengine.Visualization{
		Range:   &earthengine.Range{Min: 0, Max: analysis.DisplayMax},
		Palette: palette,
	}
}

// View is everything the page needs to draw the map.
type View struct {
	Center     aoi.Coordinate `json:"center"`
	Zoom       int            `json:"zoom"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	BasemapURL string         `json:"basemap_url"`
	Bounds     [4]float64     `json:"bounds"`
	Layers     []Layer        `json:"layers"`
	Legend     Colormap       `json:"legend"`
	Messages   []string       `json:"messages,omitempty"`
}

// TileLayers returns the layers that resolved.
func (v View) TileLayers() []Layer {
	var out []Layer
	for _, l := range v.Layers {
		if l.OK() {
			out = append(out, l)
		}
	}
	return out
}

const maxConcurrentLayers = 4

type layerRequest struct {
	obj  Object
	vis  earthengine.Visualization
	name string
}

// Build assembles the map for a run. Layers are requested concurrently and
// keep their display order. A missing normalized raster is reported as a
// message and its layer is skipped.
func (p *Presenter) Build(ctx context.Context, res *analysis.Result) View {
	view := View{
		Center:     res.Request.Coordinate,
		Zoom:       p.mapCfg.Zoom,
		Width:      p.mapCfg.Width,
		Height:     p.mapCfg.Height,
		BasemapURL: p.mapCfg.BasemapURL,
		Bounds:     res.Area.BBox(),
		Legend:     TurbidityColormap(),
	}

	requests := []layerRequest{{Geometry{Geometry: res.Area.Geometry()}, earthengine.Visualization{}, LayerArea}}
	if res.Scene != nil {
		requests = append(requests,
			layerRequest{Raster{Image: res.TrueColor}, p.sceneVis(), LayerScene},
			layerRequest{Raster{Image: res.Rasters.WaterMask}, waterVis(), LayerWater},
		)
		if res.NormalizeErr != nil {
			view.Messages = append(view.Messages, res.NormalizeErr.Error())
		} else {
			requests = append(requests, layerRequest{Raster{Image: res.Normalized}, turbidityVis(), LayerTurbidity})
		}
	}

	view.Layers = make([]Layer, len(requests))
	var g errgroup.Group
	g.SetLimit(maxConcurrentLayers)
	for i, s := range requests {
		g.Go(func() error {
			view.Layers[i] = p.AddLayer(ctx, s.obj, s.vis, s.name)
			return nil
		})
	}
	_ = g.Wait()

	for _, l := range view.Layers {
		if l.Err != nil && !errors.Is(l.Err, ErrUnsupportedObject) {
			view.Messages = append(view.Messages, "Could not display "+l.Name)
		}
	}
	return view
}
