package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowershop/admin-api/internal/services"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage staff and customer accounts",
}

var accountsResetPasswordCmd = &cobra.Command{
	Use:   "reset-password USER_ID",
	Short: "Generate a new password and mail it to the user",
	Long: `Generate a new random password for the account owned by USER_ID and send it
to the user's email address through the configured mail driver.

Examples:
  flowershopctl accounts reset-password 665f00000000000000000001 --actor ops01`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
			svc, err := rt.accountService(ctx)
			if err != nil {
				return err
			}
			if err := svc.ResetPassword(ctx, services.ResetPasswordCommand{UserID: args[0], ActorID: actorID}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password reset for %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsResetPasswordCmd)
}
