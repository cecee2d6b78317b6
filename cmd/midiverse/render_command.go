package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/midiverse/internal/domain/engine"
	"github.com/okian/midiverse/internal/domain/model"
	"github.com/okian/midiverse/internal/domain/pipeline"
	"github.com/okian/midiverse/pkg/logger"
)

func newRenderCommand() *cobra.Command {
	var (
		output      string
		sampleRate  float64
		channels    int
		bitDepth    int
		engineMode  string
		blockSize   int
		releaseTail time.Duration
	)

	cmd := &cobra.Command{
		Use:   "render <midi_file> <vst_plugin_path>",
		Short: "Render a MIDI file through a plugin or the fallback synth",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			midiPath, engineID := args[0], args[1]

			mode, err := engine.ParseMode(engineMode)
			if err != nil {
				return err
			}
			opts := model.RenderOptions{SampleRate: sampleRate, Channels: channels, BitDepth: bitDepth}
			if err := opts.Validate(); err != nil {
				return err
			}

			if _, err := os.Stat(midiPath); err != nil {
				return fmt.Errorf("MIDI file not found: %s", midiPath)
			}
			host := engine.BuiltinHost{}
			if !host.CanOpen(engineID) {
				if _, err := os.Stat(engineID); err != nil {
					return fmt.Errorf("VST plugin not found: %s", engineID)
				}
			}
			if dir := filepath.Dir(output); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
			}

			log := logger.Get()
			selector := engine.NewSelector(mode, host,
				engine.WithBlockSize(blockSize),
				engine.WithReleaseTail(releaseTail),
				engine.WithLogger(log.Named("engine")),
			)
			pipe := pipeline.New(selector, pipeline.FileSink{}, pipeline.WithLogger(log.Named("pipeline")))

			rep, err := pipe.Run(cmd.Context(), pipeline.Request{
				PerformancePath: midiPath,
				EngineID:        engineID,
				Options:         opts,
				OutputName:      output,
			})
			if err != nil {
				return fmt.Errorf("render failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Successfully rendered to %s\n", rep.Artifact.Path)
			fmt.Fprintf(cmd.OutOrStdout(), "engine=%s frames=%d bytes=%d warnings=%d\n",
				rep.Engine, rep.Frames, rep.Artifact.Size, rep.Warnings)
			return nil
		},
	}

	defaults := model.DefaultRenderOptions()
	cmd.Flags().StringVarP(&output, "output", "o", "output.wav", "Output WAV file")
	cmd.Flags().Float64VarP(&sampleRate, "sample-rate", "r", defaults.SampleRate, "Sample rate in Hz")
	cmd.Flags().IntVarP(&channels, "channels", "c", defaults.Channels, "Number of output channels")
	cmd.Flags().IntVarP(&bitDepth, "bit-depth", "b", defaults.BitDepth, "Bits per sample (16, 24 or 32)")
	cmd.Flags().StringVar(&engineMode, "engine-mode", string(engine.ModeAuto), "Engine selection: auto, plugin or fallback")
	cmd.Flags().IntVar(&blockSize, "block-size", engine.DefaultBlockSize, "Plugin processing block size in frames")
	cmd.Flags().DurationVar(&releaseTail, "release-tail", engine.DefaultReleaseTail, "Silence rendered after the last event")

	return cmd
}
