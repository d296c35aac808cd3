package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var debug bool

	rootCmd := &cobra.Command{
		Use:           "cxc",
		Short:         "Codex Console (cxc): drive the Codex CLI over a local shell, WSL, or SSH",
		Long:          "cxc (Codex Console) runs the Codex CLI on a configurable execution backend, streams its output into a readable transcript with token metrics, keeps per-conversation history files with session resume, and manages the CLI's config from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if logger != nil {
				return nil
			}
			config := zap.NewProductionConfig()
			if debug {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			built, err := config.Build()
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			logger = built
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newChatCmd(app),
		newRunCmd(app),
		newDoctorCmd(app),
		newHistoryCmd(app),
		newConfigCmd(app),
		newUseCmd(app),
		newPasswordCmd(app),
	)

	return rootCmd
}
