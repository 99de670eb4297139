// Package export writes the water bodies of a run to a shapefile in the
// working directory.
package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/water-quality/internal/aoi"
	"github.com/sells-group/water-quality/internal/config"
	"github.com/sells-group/water-quality/internal/mapview"
	"github.com/sells-group/water-quality/internal/monitoring"
	"github.com/sells-group/water-quality/pkg/earthengine"
)

// FileName is the fixed output name. Existing files are overwritten.
const FileName = "water_bodies.shp"

// ErrNotVectorizable is returned when the object has no polygon
// representation. No file is written in that case.
var ErrNotVectorizable = eris.New("export: water bodies cannot be expressed as discrete features, nothing was written")

// wgs84 is the ESRI WKT written to the .prj sidecar.
const wgs84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// Report describes a written shapefile.
type Report struct {
	Path     string   `json:"path"`
	Features int      `json:"features"`
	Skipped  int      `json:"skipped"`
	Files    []string `json:"files"`
}

// Exporter vectorizes remote objects and writes them locally.
type Exporter struct {
	client earthengine.Client
	cfg    config.ImageryConfig
	dir    string
}

// NewExporter writes into dir; "" means the working directory.
func NewExporter(client earthengine.Client, cfg config.ImageryConfig, dir string) *Exporter {
	return &Exporter{client: client, cfg: cfg, dir: dir}
}

// Export converts obj to polygons and writes them as FileName. Rasters are
// vectorized over the area by the remote service, feature collections and
// geometries are fetched as they are. Raster collections and unknown
// objects are rejected with ErrNotVectorizable.
func (e *Exporter) Export(ctx context.Context, obj mapview.Object, area aoi.AOI) (*Report, error) {
	report, err := e.export(ctx, obj, area)
	monitoring.IncExport(err)
	return report, err
}

func (e *Exporter) export(ctx context.Context, obj mapview.Object, area aoi.AOI) (*Report, error) {
	features, err := e.fetch(ctx, obj, area)
	if err != nil {
		return nil, err
	}

	records, skipped := polygons(features)
	if len(records) == 0 {
		return nil, ErrNotVectorizable
	}

	path := filepath.Join(e.dir, FileName)
	if err := writeShapefile(path, records); err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(path, filepath.Ext(path))
	report := &Report{
		Path:     path,
		Features: len(records),
		Skipped:  skipped,
		Files:    []string{base + ".shp", base + ".shx", base + ".dbf", base + ".prj"},
	}
	zap.L().Info("export: wrote shapefile",
		zap.String("path", path),
		zap.Int("features", report.Features),
		zap.Int("skipped", skipped),
	)
	return report, nil
}

// fetch returns the object as GeoJSON features.
func (e *Exporter) fetch(ctx context.Context, obj mapview.Object, area aoi.AOI) ([]*geojson.Feature, error) {
	switch o := obj.(type) {
	case mapview.Raster:
		if !o.Image.Defined() {
			return nil, ErrNotVectorizable
		}
		fc := o.Image.ReduceToVectors(area.Geometry(), earthengine.VectorOptions{
			ReduceOptions: earthengine.ReduceOptions{
				Scale:      e.cfg.Scale,
				BestEffort: e.cfg.BestEffort,
			},
			LabelProperty: "label",
		})
		return e.fetchFeatures(ctx, fc.Node())

	case mapview.FeatureCollection:
		if o.Features.Node() == nil {
			return nil, ErrNotVectorizable
		}
		return e.fetchFeatures(ctx, o.Features.Node())

	case mapview.Geometry:
		if o.Geometry.Node() == nil {
			return nil, ErrNotVectorizable
		}
		raw, err := e.client.ComputeValue(ctx, o.Geometry.Node())
		if err != nil {
			return nil, eris.Wrap(err, "export: compute geometry")
		}
		var g geom.T
		if err := geojson.Unmarshal(raw, &g); err != nil {
			return nil, eris.Wrap(err, "export: decode geometry")
		}
		return []*geojson.Feature{{ID: "0", Geometry: g}}, nil

	default:
		return nil, ErrNotVectorizable
	}
}

func (e *Exporter) fetchFeatures(ctx context.Context, n earthengine.Node) ([]*geojson.Feature, error) {
	raw, err := e.client.ComputeValue(ctx, n)
	if err != nil {
		return nil, eris.Wrap(err, "export: vectorize")
	}
	if string(raw) == "null" {
		return nil, ErrNotVectorizable
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, eris.Wrap(err, "export: decode features")
	}
	return fc.Features, nil
}

// record is one output row.
type record struct {
	id    string
	label float64
	shape *shp.Polygon
}

// polygons keeps the polygonal features and counts the rest as skipped.
func polygons(features []*geojson.Feature) ([]record, int) {
	var out []record
	skipped := 0
	for i, f := range features {
		if f == nil || f.Geometry == nil {
			skipped++
			continue
		}

		var polys []*geom.Polygon
		switch g := f.Geometry.(type) {
		case *geom.Polygon:
			polys = []*geom.Polygon{g}
		case *geom.MultiPolygon:
			for j := 0; j < g.NumPolygons(); j++ {
				polys = append(polys, g.Polygon(j))
			}
		default:
			skipped++
			continue
		}

		shape := toShape(polys)
		if shape == nil {
			skipped++
			continue
		}

		id := f.ID
		if id == "" {
			id = strconv.Itoa(i)
		}
		out = append(out, record{id: id, label: numberProperty(f.Properties, "label"), shape: shape})
	}
	return out, skipped
}

func numberProperty(props map[string]interface{}, key string) float64 {
	if v, ok := props[key].(float64); ok {
		return v
	}
	return 0
}

func writeShapefile(path string, records []record) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}

	fields := []shp.Field{
		shp.StringField("fid", 64),
		shp.NumberField("label", 10),
	}
	if err := w.SetFields(fields); err != nil {
		w.Close()
		return eris.Wrap(err, "export: set fields")
	}

	for _, r := range records {
		row := int(w.Write(r.shape))
		if err := w.WriteAttribute(row, 0, r.id); err != nil {
			w.Close()
			return eris.Wrapf(err, "export: write fid of row %d", row)
		}
		if err := w.WriteAttribute(row, 1, r.label); err != nil {
			w.Close()
			return eris.Wrapf(err, "export: write label of row %d", row)
		}
	}
	w.Close()

	base := strings.TrimSuffix(path, filepath.Ext(path))
	if err := renameAttributeTable(base); err != nil {
		return err
	}

	if err := os.WriteFile(base+".prj", []byte(wgs84), 0o644); err != nil {
		return eris.Wrap(err, "export: write projection")
	}
	return nil
}

// renameAttributeTable moves the table go-shp writes as "<base>dbf" to
// "<base>.dbf", where readers look for it.
func renameAttributeTable(base string) error {
	misnamed := base + "dbf"
	if _, err := os.Stat(misnamed); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return eris.Wrap(err, "export: stat attribute table")
	}
	if err := os.Rename(misnamed, base+".dbf"); err != nil {
		return eris.Wrap(err, "export: rename attribute table")
	}
	return nil
}
