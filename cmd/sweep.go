package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/anoixa/eatinator/internal/app"
	"github.com/spf13/cobra"
)

// sweepCmd 手动清理过期图片
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete dish images older than the retention window",
	Long: `Delete dish images older than the retention window (image_retention, default 24h).
Files are removed first, then their records. Records whose file could not be
removed are kept for the next run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		return runSweep(dryRun, timeout)
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.Flags().Bool("dry-run", false, "Only show how many images would be deleted")
	sweepCmd.Flags().Duration("timeout", 10*time.Minute, "Abort the sweep after this duration")
}

func runSweep(dryRun bool, timeout time.Duration) error {
	cfg := initRuntime()

	container := app.NewContainer(cfg)
	if err := container.InitDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer container.Close()

	images, err := container.ImageService()
	if err != nil {
		return fmt.Errorf("failed to initialize image service: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if dryRun {
		result, err := images.Expired(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("[DRY RUN] %d expired images would be deleted (retention %s)\n", result.Scanned, images.Retention())
		return nil
	}

	result, err := images.Sweep(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Sweep finished: scanned %d, removed %d, failed %d\n", result.Scanned, result.Removed, result.Failed)
	if result.Failed > 0 {
		return fmt.Errorf("%d images could not be removed", result.Failed)
	}
	return nil
}
