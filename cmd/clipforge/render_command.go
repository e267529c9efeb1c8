package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"clipforge/internal/logging"
	"clipforge/internal/render"
	"clipforge/internal/scrape"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var outputFlag string
	var verticalFlag bool
	var horizontalFlag bool
	var fpsFlag int
	var introFlag string
	var outroFlag string
	var sourceDirFlag string

	cmd := &cobra.Command{
		Use:   "render [clip...]",
		Short: "Render a compilation from local clips without the daemon",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verticalFlag && horizontalFlag {
				return errors.New("specify only one of --vertical or --horizontal")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			workDir := filepath.Join(cfg.Paths.StagingDir, "render-"+uuid.NewString())
			if err := os.MkdirAll(workDir, 0o755); err != nil {
				return fmt.Errorf("create work dir: %w", err)
			}
			defer os.RemoveAll(workDir)

			clips := args
			if len(clips) == 0 {
				dir := sourceDirFlag
				if dir == "" {
					dir = cfg.Scrape.Directory
				}
				if dir == "" {
					return errors.New("no clips given and no source directory configured")
				}
				source := scrape.NewDirectorySource(logger, dir)
				clips, err = source.Collect(cmd.Context(), workDir, cfg.Scrape.MaxClips)
				if err != nil {
					return err
				}
			}

			output := outputFlag
			if output == "" {
				name := fmt.Sprintf("compilation_%s.mp4", time.Now().Format("20060102_150405"))
				output = filepath.Join(cfg.Paths.OutputDir, name)
			}

			job := render.NewJobFromConfig(cfg, clips, output)
			job.StagingDir = workDir
			if verticalFlag {
				job.Orientation = render.Vertical
			}
			if horizontalFlag {
				job.Orientation = render.Horizontal
			}
			if fpsFlag > 0 {
				job.FrameRate = fpsFlag
			}
			if introFlag != "" {
				job.IntroPath = introFlag
			}
			if outroFlag != "" {
				job.OutroPath = outroFlag
			}

			out := cmd.OutOrStdout()
			pipeline := render.NewFromConfig(cfg, logger, render.WithProgress(func(update render.ProgressUpdate) {
				fmt.Fprintf(out, "  %-14s %3.0f%%\n", update.Phase, update.Percent)
			}))

			final, err := pipeline.Render(cmd.Context(), job)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Rendered %s%s\n", final, fileSizeSuffix(final))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file path")
	cmd.Flags().BoolVar(&verticalFlag, "vertical", false, "Render a 1080x1920 portrait canvas")
	cmd.Flags().BoolVar(&horizontalFlag, "horizontal", false, "Render a 1920x1080 landscape canvas")
	cmd.Flags().IntVar(&fpsFlag, "fps", 0, "Override the configured frame rate")
	cmd.Flags().StringVar(&introFlag, "intro", "", "Intro video prepended to the compilation")
	cmd.Flags().StringVar(&outroFlag, "outro", "", "Outro video appended to the compilation")
	cmd.Flags().StringVar(&sourceDirFlag, "source-dir", "", "Directory to collect clips from when no clips are given")

	return cmd
}
