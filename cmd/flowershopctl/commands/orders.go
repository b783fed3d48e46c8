package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowershop/admin-api/internal/services"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Maintain order aggregates",
}

var ordersRecomputeCmd = &cobra.Command{
	Use:   "recompute ORDER_ID...",
	Short: "Recalculate stored order totals from their details",
	Long: `Recalculate TotalPrice for each order from its details, shipping price and
discount. Orders are processed in the order given and the first failure stops the run.

Examples:
  flowershopctl orders recompute 665f00000000000000000001 665f00000000000000000002`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
			svc, err := rt.orderService()
			if err != nil {
				return err
			}
			return recomputeOrders(ctx, svc, args, cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.AddCommand(ordersCmd)
	ordersCmd.AddCommand(ordersRecomputeCmd)
}

func recomputeOrders(ctx context.Context, svc services.OrderAggregationService, ids []string, out io.Writer) error {
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		order, err := svc.RecalculateOrderTotal(ctx, services.RecalculateOrderCommand{OrderID: id, ActorID: actorID})
		if err != nil {
			return fmt.Errorf("order %s: %w", id, err)
		}
		fmt.Fprintf(out, "%s\t%s\t%.2f\n", order.ID, order.Status, order.TotalPrice)
	}
	return nil
}
