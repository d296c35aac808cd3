package cmd

import (
	"fmt"

	"github.com/bnema/codex-console/internal/domain"
	"github.com/spf13/cobra"
)

func newPasswordCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Manage the stored sudo or SSH login password",
	}

	cmd.AddCommand(
		newPasswordSetCmd(app),
		newPasswordClearCmd(app),
	)

	return cmd
}

func newPasswordSetCmd(app *app) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the password for the configured backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := app.repo.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			if err := app.secretStore.Put(cmd.Context(), passwordKeyFor(settings), value); err != nil {
				return fmt.Errorf("store password: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Password stored for %s.\n", passwordScope(settings))
			return nil
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "Password value")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func newPasswordClearCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored password for the configured backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := app.repo.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			if err := app.secretStore.Delete(cmd.Context(), passwordKeyFor(settings)); err != nil {
				return fmt.Errorf("clear password: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Password cleared for %s.\n", passwordScope(settings))
			return nil
		},
	}
}

func passwordScope(settings domain.Settings) string {
	if settings.Backend == domain.BackendSSH {
		return fmt.Sprintf("%s@%s", settings.SSH.User, settings.SSH.Host)
	}
	return fmt.Sprintf("the %s backend", settings.Backend)
}
