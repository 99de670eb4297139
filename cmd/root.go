package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/water-quality/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "water-quality",
	Short: "Water presence and turbidity from Sentinel-2 imagery",
	Long:  "Selects the least-cloudy Sentinel-2 scene around a point, derives water (NDWI) and turbidity (NDTI) rasters on Google Earth Engine, and shows them on a map or exports the water bodies as a shapefile.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
