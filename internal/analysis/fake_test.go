package analysis

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sells-group/water-quality/internal/config"
	"github.com/sells-group/water-quality/pkg/earthengine"
)

// fakeClient answers by the root function name of the submitted
// expression. Dictionary roots have the empty name.
type fakeClient struct {
	mu       sync.Mutex
	values   map[string]string
	errs     map[string]error
	computed []string
}

func (f *fakeClient) ComputeValue(_ context.Context, n earthengine.Node) (json.RawMessage, error) {
	if _, err := earthengine.Serialize(n); err != nil {
		return nil, err
	}
	name := earthengine.FunctionName(n)

	f.mu.Lock()
	f.computed = append(f.computed, name)
	f.mu.Unlock()

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
	return &earthengine.MapID{Name: "projects/p/maps/x", TileURL: "https://tiles/{z}/{x}/{y}"}, nil
}

func testImagery() config.ImageryConfig {
	return config.ImageryConfig{
		Collection:     "COPERNICUS/S2",
		CloudProperty:  "CLOUDY_PIXEL_PERCENTAGE",
		Scale:          10,
		BestEffort:     true,
		MaxReflectance: 3000,
		Bands:          config.BandsConfig{Blue: "B2", Green: "B3", Red: "B4", NIR: "B8"},
	}
}

func sceneResponses() map[string]string {
	return map[string]string{
		"Collection.size":    `4`,
		"":                   `{"id":"20200314T075651_20200314T080525_T36NYF","time":1584172800000,"cloud":0.42}`,
		"Image.reduceRegion": `{"nd_min":-0.4,"nd_max":0.6,"nd_mean":0.05}`,
	}
}

func ptr(v float64) *float64 { return &v }
