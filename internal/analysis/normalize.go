package analysis

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/water-quality/pkg/earthengine"
)

// DisplayMax is the top of the display range.
const DisplayMax = 255

var (
	// ErrMissingStatistics is returned when min or max could not be computed.
	ErrMissingStatistics = eris.New("no data: turbidity statistics are missing for this area")

	// ErrFlatTurbidity is returned when min equals max and no stretch exists.
	ErrFlatTurbidity = eris.New("no visualization possible: turbidity is uniform over this area")
)

// Stretch maps v from [lo, hi] onto [0, DisplayMax].
func Stretch(v, lo, hi float64) (float64, error) {
	if hi == lo {
		return 0, ErrFlatTurbidity
	}
	return (v - lo) / (hi - lo) * DisplayMax, nil
}

// Normalize builds the remote equivalent of Stretch over every pixel of img.
func Normalize(img earthengine.Image, stats Statistics) (earthengine.Image, error) {
	if !stats.HasRange() {
		return earthengine.Image{}, ErrMissingStatistics
	}
	lo, hi := *stats.Min, *stats.Max
	if hi == lo {
		return earthengine.Image{}, ErrFlatTurbidity
	}

	return img.
		Subtract(earthengine.ConstantImage(lo)).
		Divide(earthengine.ConstantImage(hi - lo)).
		Multiply(earthengine.ConstantImage(DisplayMax)), nil
}
