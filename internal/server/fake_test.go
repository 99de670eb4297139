package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sells-group/water-quality/internal/config"
	"github.com/sells-group/water-quality/pkg/earthengine"
)

// fakeClient answers by the root function name of the submitted
// expression; dictionary roots have the empty name.
type fakeClient struct {
	mu       sync.Mutex
	values   map[string]string
	errs     map[string]error
	computed []string
	maps     []string
}

func (f *fakeClient) ComputeValue(_ context.Context, n earthengine.Node) (json.RawMessage, error) {
	if _, err := earthengine.Serialize(n); err != nil {
		return nil, err
	}
	name := earthengine.FunctionName(n)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.computed = append(f.computed, name)
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	if v, ok := f.values[name]; ok {
		return json.RawMessage(v), nil
	}
	return json.RawMessage("null"), nil
}

func (f *fakeClient) CreateMap(_ context.Context, n earthengine.Node, _ earthengine.Visualization) (*earthengine.MapID, error) {
	if _, err := earthengine.Serialize(n); err != nil {
		return nil, err
	}
	name := earthengine.FunctionName(n)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.maps = append(f.maps, name)
	if err := f.errs["maps:"+name]; err != nil {
		return nil, err
	}
	id := fmt.Sprintf("projects/water-proj/maps/m%d", len(f.maps))
	return &earthengine.MapID{Name: id, TileURL: "https://ee.test/v1/" + id + "/tiles/{z}/{x}/{y}"}, nil
}

func happyValues() map[string]string {
	return map[string]string{
		"Collection.size":                `7`,
		"":                               `{"id":"20200314T075651_20200314T080525_T36NYF","time":1584172800000,"cloud":0.42}`,
		"Image.reduceRegion":             `{"nd_min":-0.31,"nd_max":0.27,"nd_mean":-0.04}`,
		"Geometry.bounds": `{"type":"Polygon","coordinates":[[[35.287,1.827],[35.323,1.827],[35.323,1.863],[35.287,1.863],[35.287,1.827]]]}`,
		"Image.reduceToVectors": `{"type":"FeatureCollection","features":[
			{"type":"Feature","id":"+1+1","geometry":{"type":"Polygon","coordinates":[[[35.30,1.84],[35.31,1.84],[35.31,1.85],[35.30,1.85],[35.30,1.84]]]},"properties":{"label":1}}]}`,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Imagery: config.ImageryConfig{
			Collection:     "COPERNICUS/S2",
			CloudProperty:  "CLOUDY_PIXEL_PERCENTAGE",
			Scale:          10,
			BestEffort:     true,
			MaxReflectance: 3000,
			Bands:          config.BandsConfig{Blue: "B2", Green: "B3", Red: "B4", NIR: "B8"},
		},
		Map: config.MapConfig{
			Zoom:       14,
			Width:      1000,
			Height:     600,
			BasemapURL: "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		},
		Server: config.ServerConfig{Port: 8080},
	}
}
