package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/water-quality/internal/aoi"
	"github.com/sells-group/water-quality/internal/input"
)

func defaultRequest(t *testing.T) input.Request {
	t.Helper()
	req, err := input.Parse(input.DefaultForm())
	require.NoError(t, err)
	return *req
}

func TestRunner_Run(t *testing.T) {
	fc := &fakeClient{values: sceneResponses()}
	r := NewRunner(fc, testImagery())

	var seen []Stage
	r.OnStage = func(s Stage) { seen = append(seen, s) }

	res, err := r.Run(context.Background(), defaultRequest(t))
	require.NoError(t, err)

	assert.Equal(t, Stages, seen)
	require.Len(t, res.Stages, len(Stages))
	for _, s := range res.Stages {
		assert.Empty(t, s.Error, s.Name)
	}

	assert.InDelta(t, 2000, res.Area.RadiusMeters, 1e-9)
	assert.True(t, res.Area.Contains(aoi.Coordinate{Lat: 1.845125, Lon: 35.304635}))
	require.NotNil(t, res.Scene)
	assert.True(t, res.TrueColor.Defined())
	assert.True(t, res.Rasters.WaterMask.Defined())
	assert.True(t, res.Normalized.Defined())
	assert.NoError(t, res.NormalizeErr)
	assert.Empty(t, res.Note)
}

func TestRunner_NoScene(t *testing.T) {
	fc := &fakeClient{values: map[string]string{"Collection.size": `0`}}

	res, err := NewRunner(fc, testImagery()).Run(context.Background(), defaultRequest(t))
	assert.ErrorIs(t, err, ErrNoScene)
	require.NotNil(t, res)
	assert.Nil(t, res.Scene)
	assert.Positive(t, res.Area.RadiusMeters)
}

func TestRunner_FlatTurbidity(t *testing.T) {
	values := sceneResponses()
	values["Image.reduceRegion"] = `{"nd_min":0.1,"nd_max":0.1,"nd_mean":0.1}`
	fc := &fakeClient{values: values}

	res, err := NewRunner(fc, testImagery()).Run(context.Background(), defaultRequest(t))
	require.NoError(t, err)
	assert.ErrorIs(t, res.NormalizeErr, ErrFlatTurbidity)
	assert.False(t, res.Normalized.Defined())
	assert.NotEmpty(t, res.Note)
	require.NotNil(t, res.Stats.Mean)
}

func TestRunner_MissingStatistics(t *testing.T) {
	values := sceneResponses()
	values["Image.reduceRegion"] = `{}`
	fc := &fakeClient{values: values}

	res, err := NewRunner(fc, testImagery()).Run(context.Background(), defaultRequest(t))
	require.NoError(t, err)
	assert.ErrorIs(t, res.NormalizeErr, ErrMissingStatistics)
	assert.Nil(t, res.Stats.Mean)
}

func TestRunner_StatisticsFailure(t *testing.T) {
	boom := errors.New("computation timed out")
	fc := &fakeClient{values: sceneResponses(), errs: map[string]error{"Image.reduceRegion": boom}}

	res, err := NewRunner(fc, testImagery()).Run(context.Background(), defaultRequest(t))
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, res)
	assert.NotNil(t, res.Scene)
	assert.Equal(t, StageStatistics, res.Stages[len(res.Stages)-1].Name)
}

func TestRunner_InvalidRadius(t *testing.T) {
	req := input.Request{
		Coordinate: aoi.Coordinate{Lat: 1, Lon: 2},
		Start:      time.Now(),
		End:        time.Now(),
		BufferKm:   0,
	}

	res, err := NewRunner(&fakeClient{}, testImagery()).Run(context.Background(), req)
	assert.ErrorIs(t, err, aoi.ErrInvalidRadius)
	assert.Nil(t, res)
}

func TestRunOutcome(t *testing.T) {
	assert.Equal(t, "no_data", runOutcome(ErrNoScene))
	assert.Equal(t, "invalid_input", runOutcome(aoi.ErrInvalidCoordinate))
	assert.Equal(t, "error", runOutcome(errors.New("x")))
}
