package main

import (
	"fmt"
	"os"

	"github.com/nvr-ai/blanklabel/images"
	"github.com/nvr-ai/blanklabel/labels"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the process logger. Tests replace it with a no-op logger.
var newLogger = func(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func newRootCmd() *cobra.Command {
	var (
		cfg     = labels.DefaultConfig()
		resize  string
		filter  string
		verbose bool
		logger  *zap.Logger
	)

	cmd := &cobra.Command{
		Use:   "blanklabel <input_image> <output_image> <output_mask>",
		Short: "Copy an image into a dataset and write an all-zero label mask beside it",
		Long: `blanklabel reads an image, optionally resizes it, writes it to <output_image>
and writes an all-zero image of the same shape to <output_mask>.

The output encodings are chosen from the output file extensions.

Example:
  blanklabel photo.jpg dataset/images/0001.png dataset/labels/0001.png
  blanklabel --resize 400x400 photo.jpg images/0001.jpg labels/0001.png`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = newLogger(verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if resize != "" {
				size, err := images.ParseSize(resize)
				if err != nil {
					return err
				}
				cfg.Resize = &size
			}
			f, err := images.ParseResampleFilter(filter)
			if err != nil {
				return err
			}
			cfg.Filter = f

			pipeline, err := labels.NewPipeline(cfg, logger)
			if err != nil {
				return err
			}
			_, err = pipeline.Run(cmd.Context(), labels.Job{
				Input: args[0],
				Image: args[1],
				Mask:  args[2],
			})
			if err != nil {
				logger.Error("Failed to write label pair", zap.Error(err))
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&resize, "resize", "", "Resize to WIDTHxHEIGHT or a named resolution (deeplab, vga, nhd, 720p, 1080p, 4k) before writing")
	flags.StringVar(&filter, "filter", string(cfg.Filter), "Resample filter for the native backend: nearest, bilinear, bicubic, mitchell, lanczos2, lanczos3")
	flags.StringVar(&cfg.Backend, "backend", cfg.Backend, "Image backend: native, opencv or vips")
	flags.IntVar(&cfg.JPEGQuality, "jpeg-quality", cfg.JPEGQuality, "Quality for JPEG outputs (1-100)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

// execute runs the command with args and returns the process exit status.
func execute(args []string) int {
	cmd := newRootCmd()
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(os.Args[1:]))
}
