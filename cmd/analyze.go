package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/water-quality/internal/analysis"
	"github.com/sells-group/water-quality/internal/input"
	"github.com/sells-group/water-quality/internal/mapview"
	"github.com/sells-group/water-quality/pkg/earthengine"
)

var (
	analyzeForm   input.Form
	analyzeOutput string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the analysis once and print statistics and tile URLs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeOutput != "json" && analyzeOutput != "yaml" {
			return eris.Errorf("unsupported output format %q (use json or yaml)", analyzeOutput)
		}

		req, err := input.Parse(analyzeForm)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		env, err := initRemote(ctx, "analyze")
		if err != nil {
			return err
		}

		res, err := runWithProgress(ctx, env.Client, *req, cmd.ErrOrStderr())
		if err != nil && res == nil {
			return err
		}

		sum := summarize(analyzeForm, res, err)
		if err == nil || errors.Is(err, analysis.ErrNoScene) {
			view := mapview.NewPresenter(env.Client, cfg.Imagery, cfg.Map).Build(ctx, res)
			for _, l := range view.Layers {
				sum.Layers = append(sum.Layers, layerSummary{Name: l.Name, TileURL: l.TileURL, Error: l.Error})
			}
		}

		if werr := writeSummary(cmd.OutOrStdout(), analyzeOutput, sum); werr != nil {
			return werr
		}
		if err != nil && !errors.Is(err, analysis.ErrNoScene) {
			return err
		}
		return nil
	},
}

// runWithProgress runs the pipeline with a stage bar on w.
func runWithProgress(ctx context.Context, client earthengine.Client, req input.Request, w io.Writer) (*analysis.Result, error) {
	bar := progressbar.NewOptions(len(analysis.Stages),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("analysis"),
		progressbar.OptionClearOnFinish(),
	)
	defer func() { _ = bar.Finish() }()

	runner := analysis.NewRunner(client, cfg.Imagery)
	runner.OnStage = func(s analysis.Stage) {
		bar.Describe(string(s))
		_ = bar.Add(1)
	}
	return runner.Run(ctx, req)
}

// summary is the printed result of one run.
type summary struct {
	Input       input.Form     `json:"input" yaml:"input"`
	Scene       string         `json:"scene,omitempty" yaml:"scene,omitempty"`
	AcquiredAt  string         `json:"acquired_at,omitempty" yaml:"acquired_at,omitempty"`
	CloudCover  *float64       `json:"cloud_cover,omitempty" yaml:"cloud_cover,omitempty"`
	RadiusM     float64        `json:"radius_m" yaml:"radius_m"`
	BBox        [4]float64     `json:"bbox" yaml:"bbox"`
	Min         *float64       `json:"ndti_min" yaml:"ndti_min"`
	Max         *float64       `json:"ndti_max" yaml:"ndti_max"`
	Mean        *float64       `json:"ndti_mean" yaml:"ndti_mean"`
	Note        string         `json:"note,omitempty" yaml:"note,omitempty"`
	Layers      []layerSummary `json:"layers,omitempty" yaml:"layers,omitempty"`
	Error       string         `json:"error,omitempty" yaml:"error,omitempty"`
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
}

type layerSummary struct {
	Name    string `json:"name" yaml:"name"`
	TileURL string `json:"tile_url,omitempty" yaml:"tile_url,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

func summarize(form input.Form, res *analysis.Result, runErr error) summary {
	sum := summary{Input: form, GeneratedAt: time.Now().UTC()}
	if runErr != nil {
		sum.Error = runErr.Error()
	}
	if res == nil {
		return sum
	}

	sum.RadiusM = res.Area.RadiusMeters
	sum.BBox = res.Area.BBox()
	sum.Min, sum.Max, sum.Mean = res.Stats.Min, res.Stats.Max, res.Stats.Mean
	sum.Note = res.Note
	if res.Scene != nil {
		sum.Scene = res.Scene.ID
		sum.CloudCover = res.Scene.CloudCover
		if !res.Scene.AcquiredAt.IsZero() {
			sum.AcquiredAt = res.Scene.AcquiredAt.Format(time.RFC3339)
		}
	}
	return sum
}

func writeSummary(w io.Writer, format string, sum summary) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(sum); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sum); err != nil {
			return eris.Wrap(err, "encode json")
		}
		return nil
	}
}

// addFormFlags binds the four analysis inputs.
func addFormFlags(cmd *cobra.Command, f *input.Form) {
	cmd.Flags().StringVar(&f.Coordinate, "coord", input.DefaultCoordinate, "comma-separated latitude and longitude")
	cmd.Flags().StringVar(&f.Start, "start", input.DefaultStart, "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.End, "end", input.DefaultEnd, "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.BufferKm, "buffer", input.DefaultBufferKm, "buffer radius in kilometers")
}

func init() {
	addFormFlags(analyzeCmd, &analyzeForm)
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "json", "output format: json or yaml")
	rootCmd.AddCommand(analyzeCmd)
}
