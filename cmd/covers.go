// file: cmd/covers.go
// version: 1.0.0
// guid: f1b7d3a6-4e92-4c05-9a8d-6e2c5f1b7a49

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/imageopt"
)

var optimizeCoversCmd = &cobra.Command{
	Use:   "optimize-covers",
	Short: "Downsize saved cover art for the site",
	Long: `Resize every JPG and PNG in the covers directory to fit --max-size and
re-encode it as JPEG. Results go to --out, or replace the sources when
--out is not set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := imageopt.DefaultOptions()
		opts.MaxSize, _ = cmd.Flags().GetInt("max-size")
		opts.Quality, _ = cmd.Flags().GetInt("quality")
		opts.OutDir, _ = cmd.Flags().GetString("out")
		opts.Workers, _ = cmd.Flags().GetInt("workers")
		return runOptimizeCovers(cmd, opts)
	},
}

func init() {
	defaults := imageopt.DefaultOptions()
	optimizeCoversCmd.Flags().Int("max-size", defaults.MaxSize, "longest edge in pixels")
	optimizeCoversCmd.Flags().Int("quality", defaults.Quality, "JPEG quality (1-100)")
	optimizeCoversCmd.Flags().String("out", "", "output directory (default: the covers directory)")
	optimizeCoversCmd.Flags().Int("workers", runtime.NumCPU(), "images processed in parallel")
}

func runOptimizeCovers(cmd *cobra.Command, opts imageopt.Options) error {
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()
	opts.Log = a.log

	out := cmd.OutOrStdout()
	dir := a.cfg.CoversDir
	fmt.Fprintf(out, "Optimizing covers in %s (max %dpx, quality %d)...\n", dir, opts.MaxSize, opts.Quality)

	report, err := imageopt.Optimize(cmd.Context(), dir, opts)
	if err != nil {
		return err
	}
	if len(report.Files) == 0 {
		fmt.Fprintf(out, "No JPG or PNG files found in %s\n", dir)
		return nil
	}

	var written uint64
	for _, f := range report.Files {
		if f.Err != nil {
			fmt.Fprintf(out, "  Failed: %s: %v\n", filepath.Base(f.Source), f.Err)
			continue
		}
		if info, err := os.Stat(f.Output); err == nil {
			written += uint64(info.Size())
		}
	}
	fmt.Fprintf(out, "Done: %d converted (%s written), %d failed\n", report.Converted(), humanize.Bytes(written), report.Failed())
	return nil
}
