package cmd

import (
	"fmt"
	"path"
	"strings"

	"github.com/bnema/codex-console/internal/adapters/render/transcript"
	"github.com/bnema/codex-console/internal/application"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

func newHistoryCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage conversation transcripts on the backend",
	}

	cmd.AddCommand(
		newHistoryListCmd(app),
		newHistoryShowCmd(app),
		newHistoryNewCmd(app),
		newHistoryRenameCmd(app),
	)

	return cmd
}

func newHistoryListCmd(app *app) *cobra.Command {
	var conversationDir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversation files, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			wired, err := app.buildStack(cmd.Context())
			if err != nil {
				return err
			}

			dir := conversationDir
			if dir == "" {
				dir = wired.settings.ConversationDir
			}

			worker := wired.newWorker()
			worker.Enqueue(application.RefreshHistoryRequest{ConversationDir: dir})
			worker.Enqueue(application.StopRequest{})
			outcome := drainWorker(cmd.Context(), worker)

			output, err := transcript.RenderHistory(outcome.entries, transcript.RenderOptions{Now: app.now(), BaseDir: dir})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&conversationDir, "dir", "", "Conversation directory override")

	return cmd
}

func newHistoryShowCmd(app *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <path>",
		Short: "Print one conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wired, err := app.buildStack(cmd.Context())
			if err != nil {
				return err
			}

			target := resolveConversationPath(args[0], wired.settings.ConversationDir)

			worker := wired.newWorker()
			worker.Enqueue(application.OpenHistoryRequest{Path: target})
			worker.Enqueue(application.StopRequest{})
			outcome := drainWorker(cmd.Context(), worker)

			if !outcome.sawFile {
				return fmt.Errorf("no transcript at %s", target)
			}

			text := outcome.fileText
			if !raw {
				text = renderMarkdown(text)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(text, "\n"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the raw markdown without terminal styling")

	return cmd
}

func newHistoryNewCmd(app *app) *cobra.Command {
	var conversationDir string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a fresh conversation file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			wired, err := app.buildStack(cmd.Context())
			if err != nil {
				return err
			}

			dir := conversationDir
			if dir == "" {
				dir = wired.settings.ConversationDir
			}

			worker := wired.newWorker()
			worker.Enqueue(application.NewConversationRequest{ConversationDir: dir})
			worker.Enqueue(application.StopRequest{})
			outcome := drainWorker(cmd.Context(), worker)

			for _, line := range outcome.transcript {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			if !outcome.sawStarted {
				return fmt.Errorf("conversation was not created")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&conversationDir, "dir", "", "Conversation directory override")

	return cmd
}

func newHistoryRenameCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <path> <title>",
		Short: "Retitle a conversation file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wired, err := app.buildStack(cmd.Context())
			if err != nil {
				return err
			}

			target := resolveConversationPath(args[0], wired.settings.ConversationDir)

			worker := wired.newWorker()
			worker.Enqueue(application.RenameConversationRequest{
				Path:            target,
				Title:           args[1],
				ConversationDir: wired.settings.ConversationDir,
			})
			worker.Enqueue(application.StopRequest{})
			outcome := drainWorker(cmd.Context(), worker)

			for _, line := range outcome.transcript {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			if !outcome.sawRenamed {
				return fmt.Errorf("rename failed for %s", target)
			}

			return nil
		},
	}
}

// resolveConversationPath joins a relative name onto the conversation
// directory. Backend paths are always POSIX, even when the console runs
// on Windows.
func resolveConversationPath(target, baseDir string) string {
	if strings.HasPrefix(target, "/") || baseDir == "" {
		return target
	}
	return path.Join(baseDir, target)
}

func renderMarkdown(text string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}

	pretty, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return pretty
}
