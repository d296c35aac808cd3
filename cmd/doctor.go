package cmd

import (
	"context"
	"fmt"

	"github.com/bnema/codex-console/internal/adapters/render/transcript"
	"github.com/bnema/codex-console/internal/application"
	"github.com/spf13/cobra"
)

func newDoctorCmd(app *app) *cobra.Command {
	var install bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the backend shell and the codex CLI end to end",
		RunE: func(cmd *cobra.Command, _ []string) error {
			wired, err := app.buildStack(cmd.Context())
			if err != nil {
				return err
			}

			if install {
				msg, installErr := wired.driver.EnsureLatest(cmd.Context(), wired.password)
				if msg != "" {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), msg)
				}
				if installErr != nil {
					return fmt.Errorf("install codex: %w", installErr)
				}
			}

			worker := wired.newWorker()
			worker.Enqueue(application.PipelineRequest{ConversationDir: wired.settings.ConversationDir})
			worker.Enqueue(application.StopRequest{})

			var outcome *collected
			err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Checking codex backend...", func(ctx context.Context) error {
				outcome = drainWorker(ctx, worker)
				return nil
			})
			if err != nil {
				return err
			}

			healthy := outcome.sawTask(application.HealthCheckTask)
			output, err := transcript.Render(transcript.Turn{
				Title:      "Codex Doctor",
				Transcript: outcome.transcript,
				Usage:      outcome.usage,
				Failed:     !healthy,
			}, transcript.RenderOptions{Now: app.now()})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), output)
			if !healthy {
				return fmt.Errorf("backend checks failed on %s", wired.driver.Describe())
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&install, "install", false, "Install or update the codex CLI before checking")

	return cmd
}
