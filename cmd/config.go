package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/codex-console/internal/application"
	"github.com/spf13/cobra"
)

func newConfigCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and update the codex config on the backend",
	}

	cmd.AddCommand(
		newConfigShowCmd(app),
		newConfigApplyCmd(app),
	)

	return cmd
}

func newConfigShowCmd(app *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the backend's ~/.codex/config.toml",
		RunE: func(cmd *cobra.Command, _ []string) error {
			wired, err := app.buildStack(cmd.Context())
			if err != nil {
				return err
			}

			worker := wired.newWorker()
			worker.Enqueue(application.LoadConfigRequest{})
			worker.Enqueue(application.StopRequest{})
			outcome := drainWorker(cmd.Context(), worker)

			if !outcome.sawConfig {
				return fmt.Errorf("config could not be read from %s", wired.driver.Describe())
			}

			text := outcome.configTOML
			if !raw {
				text = renderMarkdown("```toml\n" + strings.TrimRight(text, "\n") + "\n```")
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(text, "\n"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the raw TOML without terminal styling")

	return cmd
}

func newConfigApplyCmd(app *app) *cobra.Command {
	var (
		model     string
		approval  string
		sandbox   string
		webSearch bool
		trust     []string
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Write config changes to the backend and re-read the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if !flags.Changed("model") && !flags.Changed("approval") && !flags.Changed("sandbox") &&
				!flags.Changed("web-search") && !flags.Changed("trust") {
				return fmt.Errorf("no config changes requested")
			}

			wired, err := app.buildStack(cmd.Context())
			if err != nil {
				return err
			}

			opts := wired.settings.Codex
			if flags.Changed("model") {
				opts.Model = model
			}
			if flags.Changed("approval") {
				opts.ApprovalPolicy = approval
			}
			if flags.Changed("sandbox") {
				opts.SandboxMode = sandbox
			}
			if flags.Changed("web-search") {
				opts.WebSearch = webSearch
			}
			if flags.Changed("trust") {
				opts.TrustPaths = trust
			}

			settings := wired.settings
			settings.Codex = opts
			if err := app.repo.Save(cmd.Context(), settings); err != nil {
				return fmt.Errorf("save settings: %w", err)
			}

			worker := wired.newWorker()
			worker.Enqueue(application.SaveConfigRequest{Options: opts})
			worker.Enqueue(application.StopRequest{})

			var outcome *collected
			err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Writing codex config...", func(ctx context.Context) error {
				outcome = drainWorker(ctx, worker)
				return nil
			})
			if err != nil {
				return err
			}

			for _, line := range outcome.transcript {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Model name (empty keeps the CLI default)")
	cmd.Flags().StringVar(&approval, "approval", "", "Approval policy, e.g. never")
	cmd.Flags().StringVar(&sandbox, "sandbox", "", "Sandbox mode, e.g. danger-full-access")
	cmd.Flags().BoolVar(&webSearch, "web-search", true, "Enable the web_search tool")
	cmd.Flags().StringSliceVar(&trust, "trust", nil, "Trusted project paths")

	return cmd
}
