package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/midiverse/internal/domain/model"
	"github.com/okian/midiverse/internal/loadtest"
)

func newLoadCommand() *cobra.Command {
	defaults := model.DefaultRenderOptions()
	cfg := loadtest.Config{
		BaseURL:    "http://localhost:8080",
		Requests:   100,
		Workers:    runtime.NumCPU() * 2,
		Timeout:    2 * time.Minute,
		Engine:     "builtin:sine",
		SampleRate: defaults.SampleRate,
		Channels:   defaults.Channels,
		BitDepth:   defaults.BitDepth,
	}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Submit concurrent renders to a running service and verify the results",
		Long: "Generates random MIDI files, posts one render request per file and downloads every\n" +
			"artifact to check its header. The work directory must be readable by the service.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.WorkDir == "" {
				dir, err := os.MkdirTemp("", "midiverse-load-")
				if err != nil {
					return err
				}
				cfg.WorkDir = dir
			}
			abs, err := filepath.Abs(cfg.WorkDir)
			if err != nil {
				return err
			}
			cfg.WorkDir = abs

			stats, err := loadtest.Run(cmd.Context(), &cfg)
			if stats != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "submitted=%d successful=%d rejected=%d failed=%d verified=%d duration=%s\n",
					stats.Submitted, stats.Successful, stats.Rejected, stats.Failed, stats.Verified, stats.Duration.Round(time.Millisecond))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "Base URL of the service")
	cmd.Flags().IntVarP(&cfg.Requests, "requests", "n", cfg.Requests, "Number of render requests")
	cmd.Flags().IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "Number of concurrent submitters")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	cmd.Flags().StringVar(&cfg.WorkDir, "work-dir", "", "Directory for generated MIDI files (default: a temp dir)")
	cmd.Flags().StringVar(&cfg.Engine, "engine", cfg.Engine, "vstPath sent with every request")
	cmd.Flags().Float64VarP(&cfg.SampleRate, "sample-rate", "r", cfg.SampleRate, "Sample rate in Hz")
	cmd.Flags().IntVarP(&cfg.Channels, "channels", "c", cfg.Channels, "Number of output channels")
	cmd.Flags().IntVarP(&cfg.BitDepth, "bit-depth", "b", cfg.BitDepth, "Bits per sample")
	cmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log every failed request")

	return cmd
}
