// Package analysis runs the remote imagery pipeline: least-cloudy scene
// selection, water and turbidity band math, region statistics and the
// display stretch of the turbidity raster.
package analysis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/water-quality/internal/aoi"
	"github.com/sells-group/water-quality/internal/config"
	"github.com/sells-group/water-quality/pkg/earthengine"
)

// ErrNoScene is returned when no scene intersects the area within the date
// range.
var ErrNoScene = eris.New("no data: no satellite scene covers this area and date range")

// Scene is the least-cloudy observation selected for a run. The pixels stay
// on the remote service; Image is only a handle.
type Scene struct {
	Image      earthengine.Image `json:"-"`
	ID         string            `json:"id"`
	AcquiredAt time.Time         `json:"acquired_at"`
	CloudCover *float64          `json:"cloud_cover,omitempty"`
	Candidates int               `json:"candidates"`
}

// SceneCollection is the filtered and cloud-sorted catalog for the area and
// dates. Its first element is the scene the run uses.
func SceneCollection(cfg config.ImageryConfig, area aoi.AOI, start, end time.Time) earthengine.ImageCollection {
	return earthengine.LoadCollection(cfg.Collection).
		FilterBounds(area.Geometry()).
		FilterDate(start, end).
		Sort(cfg.CloudProperty, true)
}

// QueryScene selects the least-cloudy scene. The candidate count is fetched
// first so an empty catalog is reported as ErrNoScene instead of failing
// later on a null image.
func QueryScene(ctx context.Context, client earthengine.Client, cfg config.ImageryConfig, area aoi.AOI, start, end time.Time) (*Scene, error) {
	collection := SceneCollection(cfg, area, start, end)

	raw, err := client.ComputeValue(ctx, collection.Size())
	if err != nil {
		return nil, eris.Wrap(err, "analysis: count scenes")
	}
	var count int
	if err := json.Unmarshal(raw, &count); err != nil {
		return nil, eris.Wrap(err, "analysis: decode scene count")
	}
	if count == 0 {
		return nil, ErrNoScene
	}

	first := collection.First()
	meta := earthengine.NewDictionary(map[string]earthengine.Node{
		"id":    first.Get("system:index"),
		"time":  first.Get("system:time_start"),
		"cloud": first.Get(cfg.CloudProperty),
	})
	raw, err = client.ComputeValue(ctx, meta.Node())
	if err != nil {
		return nil, eris.Wrap(err, "analysis: read scene metadata")
	}

	var info struct {
		ID    string   `json:"id"`
		Time  *float64 `json:"time"`
		Cloud *float64 `json:"cloud"`
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, eris.Wrap(err, "analysis: decode scene metadata")
	}

	scene := &Scene{
		Image:      first,
		ID:         info.ID,
		CloudCover: info.Cloud,
		Candidates: count,
	}
	if info.Time != nil {
		scene.AcquiredAt = time.UnixMilli(int64(*info.Time)).UTC()
	}
	return scene, nil
}
