package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/codex-console/internal/adapters/render/transcript"
	"github.com/bnema/codex-console/internal/application"
	"github.com/spf13/cobra"
)

func newRunCmd(app *app) *cobra.Command {
	var (
		conversationPath string
		conversationDir  string
		resumeLast       bool
		showThinking     bool
	)

	cmd := &cobra.Command{
		Use:   "run <prompt>...",
		Short: "Run one codex exec turn and print the routed transcript",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wired, err := app.buildStack(cmd.Context())
			if err != nil {
				return err
			}

			dir := conversationDir
			if dir == "" {
				dir = wired.settings.ConversationDir
			}

			worker := wired.newWorker()
			worker.Enqueue(application.PromptRequest{
				Prompt:           strings.Join(args, " "),
				ConversationPath: conversationPath,
				ConversationDir:  dir,
				ResumeLast:       resumeLast,
			})
			worker.Enqueue(application.StopRequest{})

			var outcome *collected
			err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Running codex exec...", func(ctx context.Context) error {
				outcome = drainWorker(ctx, worker)
				return nil
			})
			if err != nil {
				return err
			}

			failed := outcome.sawRun && !outcome.runOK
			output, err := transcript.Render(transcript.Turn{
				Transcript: outcome.transcript,
				Thinking:   outcome.thinking,
				Usage:      outcome.usage,
				Failed:     failed,
			}, transcript.RenderOptions{Now: app.now(), ShowThinking: showThinking})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), output)
			if failed {
				return fmt.Errorf("codex exec failed")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&conversationPath, "conversation", "", "Existing conversation file to append to")
	cmd.Flags().StringVar(&conversationDir, "dir", "", "Conversation directory override")
	cmd.Flags().BoolVar(&resumeLast, "resume-last", false, "Resume the backend's most recent codex session when the conversation has none")
	cmd.Flags().BoolVar(&showThinking, "thinking", false, "Include the reasoning stream in the output")

	return cmd
}
