package cmd

import (
	"fmt"
	"time"

	"github.com/bnema/codex-console/internal/domain"
	"github.com/spf13/cobra"
)

func newUseCmd(app *app) *cobra.Command {
	var (
		host    string
		port    int
		user    string
		dir     string
		budget  int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "use [local|wsl|ssh]",
		Short: "Show or change the execution backend and console settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := app.repo.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			flags := cmd.Flags()
			changed := false
			if len(args) == 1 {
				kind := domain.BackendKind(args[0])
				if !kind.Valid() {
					return fmt.Errorf("unknown backend %q (use local, wsl, or ssh)", args[0])
				}
				settings.Backend = kind
				changed = true
			}
			if flags.Changed("host") {
				settings.SSH.Host = host
				changed = true
			}
			if flags.Changed("port") {
				settings.SSH.Port = port
				changed = true
			}
			if flags.Changed("user") {
				settings.SSH.User = user
				changed = true
			}
			if flags.Changed("dir") {
				settings.ConversationDir = dir
				changed = true
			}
			if flags.Changed("budget") {
				settings.TokenBudget = budget
				changed = true
			}
			if flags.Changed("timeout") {
				settings.ExecTimeout = timeout
				changed = true
			}

			if changed {
				if err := settings.Validate(); err != nil {
					return err
				}
				if err := app.repo.Save(cmd.Context(), settings); err != nil {
					return fmt.Errorf("save settings: %w", err)
				}
			}

			printSettings(cmd, settings)
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "SSH host")
	cmd.Flags().IntVar(&port, "port", 22, "SSH port")
	cmd.Flags().StringVar(&user, "user", "root", "SSH user")
	cmd.Flags().StringVar(&dir, "dir", "", "Conversation directory on the backend")
	cmd.Flags().IntVar(&budget, "budget", 0, "Token budget used to seed per-conversation metrics")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "codex exec timeout")

	return cmd
}

func printSettings(cmd *cobra.Command, settings domain.Settings) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "backend: %s\n", settings.Backend)
	if settings.Backend == domain.BackendSSH {
		_, _ = fmt.Fprintf(out, "ssh: %s@%s\n", settings.SSH.User, settings.SSH.Address())
	}
	_, _ = fmt.Fprintf(out, "conversation dir: %s\n", settings.ConversationDir)
	_, _ = fmt.Fprintf(out, "token budget: %d\n", settings.TokenBudget)
	_, _ = fmt.Fprintf(out, "exec timeout: %s\n", settings.ExecTimeout)
}
