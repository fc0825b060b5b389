package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage scoped sync settings",
	}

	set := &cobra.Command{
		Use:   "set <path> <value>",
		Short: "Set a setting at default scope, or for one store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			storeID, _ := cmd.Flags().GetInt64("store-id")
			if storeID < 0 {
				return fmt.Errorf("--store-id must not be negative")
			}
			scope := ports.ScopeDefault
			if storeID > 0 {
				scope = ports.ScopeStores
			}

			return withContainer(cmd, func(ctx context.Context, c *container) error {
				if err := c.config.SetValue(ctx, args[0], scope, storeID, args[1]); err != nil {
					return err
				}
				c.logger.InfoContext(ctx, "setting saved",
					"path", args[0],
					"scope", string(scope),
					"scope_id", storeID,
				)
				return nil
			})
		},
	}
	set.Flags().Int64("store-id", 0, "Store scope (default: default scope)")

	get := &cobra.Command{
		Use:   "get <path>",
		Short: "Show a setting at default scope, or for one store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storeID, _ := cmd.Flags().GetInt64("store-id")
			scope := ports.ScopeDefault
			if storeID > 0 {
				scope = ports.ScopeStores
			}

			return withContainer(cmd, func(ctx context.Context, c *container) error {
				value, ok, err := c.config.GetValue(ctx, args[0], scope, storeID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"path":  args[0],
					"scope": scope,
					"value": value,
					"set":   ok,
				})
			})
		},
	}
	get.Flags().Int64("store-id", 0, "Store scope (default: default scope)")

	cmd.AddCommand(set, get)
	return cmd
}
