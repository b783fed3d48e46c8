package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	mongorepo "github.com/flowershop/admin-api/internal/repositories/mongo"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Manage MongoDB collection indexes",
}

var indexesEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create missing collection indexes",
	Long: `Create the unique and lookup indexes every repository relies on. Existing
indexes with the same definition are left untouched.

Examples:
  flowershopctl indexes ensure
  flowershopctl indexes ensure --env-file .env.staging`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
			db, err := rt.provider.Database(ctx)
			if err != nil {
				return err
			}
			names, err := mongorepo.EnsureIndexes(ctx, db)
			if err != nil {
				return fmt.Errorf("ensure indexes: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			fmt.Fprintf(out, "%d indexes ensured\n", len(names))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(indexesCmd)
	indexesCmd.AddCommand(indexesEnsureCmd)
}
