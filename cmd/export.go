package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/water-quality/internal/export"
	"github.com/sells-group/water-quality/internal/input"
	"github.com/sells-group/water-quality/internal/mapview"
)

var exportForm input.Form

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Save the water bodies of one run as " + export.FileName,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := input.Parse(exportForm)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		env, err := initRemote(ctx, "export")
		if err != nil {
			return err
		}

		res, err := runWithProgress(ctx, env.Client, *req, cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		report, err := export.NewExporter(env.Client, cfg.Imagery, "").
			Export(ctx, mapview.Raster{Image: res.Rasters.WaterMask}, res.Area)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d water bodies to %s (%d skipped)\n",
			report.Features, report.Path, report.Skipped)
		return nil
	},
}

func init() {
	addFormFlags(exportCmd, &exportForm)
	rootCmd.AddCommand(exportCmd)
}
