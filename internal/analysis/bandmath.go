package analysis

import (
	"github.com/sells-group/water-quality/internal/config"
	"github.com/sells-group/water-quality/pkg/earthengine"
)

// Rasters are the derived quantities of a scene, all lazy.
type Rasters struct {
	WaterIndex      earthengine.Image
	WaterMask       earthengine.Image
	Turbidity       earthengine.Image
	MaskedTurbidity earthengine.Image
}

// ComputeBandMath derives the water index (green vs NIR), the water mask
// (index > 0, false pixels masked), the turbidity index (red vs green) and
// the turbidity restricted to water. Both indices use the service's
// normalized difference, so a zero denominator yields a masked pixel in
// either case.
func ComputeBandMath(scene earthengine.Image, bands config.BandsConfig) Rasters {
	water := scene.NormalizedDifference(bands.Green, bands.NIR)
	mask := water.Gt(0).SelfMask()
	turbidity := scene.NormalizedDifference(bands.Red, bands.Green)

	return Rasters{
		WaterIndex:      water,
		WaterMask:       mask,
		Turbidity:       turbidity,
		MaskedTurbidity: turbidity.UpdateMask(mask),
	}
}

// TrueColor selects the red, green and blue bands for display.
func TrueColor(scene earthengine.Image, bands config.BandsConfig) earthengine.Image {
	return scene.Select(bands.Red, bands.Green, bands.Blue)
}
