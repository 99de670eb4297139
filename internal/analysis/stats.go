package analysis

import (
	"context"
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/water-quality/internal/aoi"
	"github.com/sells-group/water-quality/internal/config"
	"github.com/sells-group/water-quality/pkg/earthengine"
)

// Statistics summarise a raster over the area. A nil field means the
// service returned no value, typically because every pixel was masked.
type Statistics struct {
	Min  *float64 `json:"min"`
	Max  *float64 `json:"max"`
	Mean *float64 `json:"mean"`
}

// HasRange reports whether both min and max are present.
func (s Statistics) HasRange() bool {
	return s.Min != nil && s.Max != nil
}

// StatisticsReducer computes min, max and mean in one pass.
func StatisticsReducer() earthengine.Reducer {
	return earthengine.MinMaxReducer().Combine(earthengine.MeanReducer())
}

// ExtractStatistics reduces img over the area. The result keys are derived
// from the band label the image carries, which for a normalized difference
// is the service's own label rather than a name chosen here.
func ExtractStatistics(ctx context.Context, client earthengine.Client, img earthengine.Image, area aoi.AOI, cfg config.ImageryConfig) (Statistics, error) {
	bands := img.Bands()
	if len(bands) != 1 {
		return Statistics{}, eris.Errorf("analysis: statistics need a single-band image, got %d bands", len(bands))
	}

	dict := img.ReduceRegion(StatisticsReducer(), area.Geometry(), earthengine.ReduceOptions{
		Scale:      cfg.Scale,
		BestEffort: cfg.BestEffort,
	})
	keys := dict.Keys()
	if len(keys) != 3 {
		return Statistics{}, eris.Errorf("analysis: unexpected statistic keys %v", keys)
	}

	raw, err := client.ComputeValue(ctx, dict.Node())
	if err != nil {
		return Statistics{}, eris.Wrap(err, "analysis: reduce region")
	}

	var values map[string]*float64
	if err := json.Unmarshal(raw, &values); err != nil {
		return Statistics{}, eris.Wrap(err, "analysis: decode statistics")
	}

	return Statistics{
		Min:  finite(values[keys[0]]),
		Max:  finite(values[keys[1]]),
		Mean: finite(values[keys[2]]),
	}, nil
}

func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}
