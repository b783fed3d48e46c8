package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowershop/admin-api/internal/platform/requestctx"
)

var (
	// Global flags
	envFile string
	actorID string
	timeout time.Duration
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "flowershopctl",
	Short: "Operator tooling for the flower shop admin backend",
	Long: `flowershopctl runs maintenance tasks against the same MongoDB database and
services the admin API uses.

Commands:
  indexes ensure               - Create the collection indexes
  categories seed --file FILE  - Create categories listed in a YAML file
  orders recompute ID...       - Recalculate stored order totals
  accounts reset-password ID   - Generate and mail a new password`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file layered under the process environment")
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", requestctx.SystemActor, "actor recorded in audit fields")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall deadline for the command")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}
