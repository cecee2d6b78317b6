package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/midiverse/pkg/logger"
)

func newRootCommand() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "midiverse",
		Short:         "Render MIDI performances to WAV",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return err
			}
			return logger.SetLevelString(logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newLoadCommand())

	return rootCmd
}
