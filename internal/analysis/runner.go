package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/water-quality/internal/aoi"
	"github.com/sells-group/water-quality/internal/config"
	"github.com/sells-group/water-quality/internal/input"
	"github.com/sells-group/water-quality/internal/monitoring"
	"github.com/sells-group/water-quality/pkg/earthengine"
)

// Stage names a step of a run.
type Stage string

// Run stages, in execution order.
const (
	StageArea       Stage = "area"
	StageScene      Stage = "scene"
	StageBandMath   Stage = "band_math"
	StageStatistics Stage = "statistics"
	StageNormalize  Stage = "normalize"
)

// Stages lists every stage in order.
var Stages = []Stage{StageArea, StageScene, StageBandMath, StageStatistics, StageNormalize}

// StageResult records how a stage went.
type StageResult struct {
	Name       Stage  `json:"name"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Result is everything a run produced. Fields after the failing stage are
// zero. When the normalized raster cannot be built, NormalizeErr says why
// and the run itself still succeeds.
type Result struct {
	Request      input.Request     `json:"request"`
	Area         aoi.AOI           `json:"area"`
	Scene        *Scene            `json:"scene,omitempty"`
	TrueColor    earthengine.Image `json:"-"`
	Rasters      Rasters           `json:"-"`
	Stats        Statistics        `json:"statistics"`
	Normalized   earthengine.Image `json:"-"`
	NormalizeErr error             `json:"-"`
	Note         string            `json:"note,omitempty"`
	Stages       []StageResult     `json:"stages"`
}

// Runner executes the pipeline against one client.
type Runner struct {
	client earthengine.Client
	cfg    config.ImageryConfig

	// OnStage, when set, is called before each stage starts.
	OnStage func(Stage)
}

// NewRunner creates a runner.
func NewRunner(client earthengine.Client, cfg config.ImageryConfig) *Runner {
	return &Runner{client: client, cfg: cfg}
}

// Run builds the area and executes every remote stage for req. The returned
// result is non-nil whenever the area could be built, including when a
// later stage fails, so callers can still center a map on it.
func (r *Runner) Run(ctx context.Context, req input.Request) (*Result, error) {
	log := zap.L().With(
		zap.Float64("lat", req.Coordinate.Lat),
		zap.Float64("lon", req.Coordinate.Lon),
		zap.String("start", req.Start.Format(time.DateOnly)),
		zap.String("end", req.End.Format(time.DateOnly)),
	)
	log.Info("analysis: starting run")

	result := &Result{Request: req}

	track := func(stage Stage, fn func() error) error {
		if r.OnStage != nil {
			r.OnStage(stage)
		}
		start := time.Now()
		err := fn()
		sr := StageResult{Name: stage, DurationMs: time.Since(start).Milliseconds()}
		if err != nil {
			sr.Error = err.Error()
			log.Warn("analysis: stage failed", zap.String("stage", string(stage)), zap.Int64("duration_ms", sr.DurationMs), zap.Error(err))
		} else {
			log.Debug("analysis: stage complete", zap.String("stage", string(stage)), zap.Int64("duration_ms", sr.DurationMs))
		}
		result.Stages = append(result.Stages, sr)
		return err
	}

	var area aoi.AOI
	if err := track(StageArea, func() error {
		var err error
		area, err = aoi.Build(req.Coordinate, req.BufferKm)
		return err
	}); err != nil {
		monitoring.IncRun("invalid_input")
		return nil, err
	}
	result.Area = area

	var scene *Scene
	if err := track(StageScene, func() error {
		var err error
		scene, err = QueryScene(ctx, r.client, r.cfg, area, req.Start, req.End)
		return err
	}); err != nil {
		monitoring.IncRun(runOutcome(err))
		return result, err
	}
	result.Scene = scene

	_ = track(StageBandMath, func() error {
		result.TrueColor = TrueColor(scene.Image, r.cfg.Bands)
		result.Rasters = ComputeBandMath(scene.Image, r.cfg.Bands)
		return nil
	})

	if err := track(StageStatistics, func() error {
		var err error
		result.Stats, err = ExtractStatistics(ctx, r.client, result.Rasters.MaskedTurbidity, area, r.cfg)
		return err
	}); err != nil {
		monitoring.IncRun(runOutcome(err))
		return result, eris.Wrap(err, "analysis: statistics")
	}

	_ = track(StageNormalize, func() error {
		result.Normalized, result.NormalizeErr = Normalize(result.Rasters.MaskedTurbidity, result.Stats)
		return result.NormalizeErr
	})
	if result.NormalizeErr != nil {
		result.Note = result.NormalizeErr.Error()
		monitoring.IncRun("no_data")
	} else {
		monitoring.IncRun("ok")
	}

	log.Info("analysis: run complete",
		zap.String("scene", scene.ID),
		zap.Bool("normalized", result.NormalizeErr == nil),
	)
	return result, nil
}

func runOutcome(err error) string {
	switch {
	case errors.Is(err, ErrNoScene):
		return "no_data"
	case errors.Is(err, aoi.ErrInvalidCoordinate), errors.Is(err, aoi.ErrInvalidRadius):
		return "invalid_input"
	default:
		return "error"
	}
}
