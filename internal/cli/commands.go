package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dejobratic/ordersync/internal/syncorder/app/runner"
	"github.com/dejobratic/ordersync/internal/syncorder/app/services"
	"github.com/dejobratic/ordersync/internal/syncorder/domain"
)

// ViaCLI is recorded on history rows written by one-shot commands.
const ViaCLI = "cli"

func newRunQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run-queue",
		Short: "Process queued and retry orders once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			storeIDs, _ := cmd.Flags().GetInt64Slice("store-id")
			pageSize, _ := cmd.Flags().GetInt("page-size")
			if pageSize < 0 {
				return fmt.Errorf("--page-size must not be negative")
			}

			return withContainer(cmd, func(ctx context.Context, c *container) error {
				summary, err := c.service.RunQueue(ctx, runner.RunInput{
					StoreIDs: storeIDs,
					PageSize: pageSize,
					Via:      ViaCLI,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
	cmd.Flags().Int64Slice("store-id", nil, "Restrict to these stores (default: every sync-enabled store)")
	cmd.Flags().Int("page-size", 0, "Orders per page (default: configured page size)")
	return cmd
}

func newRequeueStuckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requeue-stuck",
		Short: "Requeue orders stuck in PROCESSING",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			storeIDs, _ := cmd.Flags().GetInt64Slice("store-id")
			threshold, err := optionalInt(cmd, "threshold-minutes")
			if err != nil {
				return err
			}

			return withContainer(cmd, func(ctx context.Context, c *container) error {
				result, err := c.service.RequeueStuck(ctx, services.RequeueInput{
					StoreIDs:         storeIDs,
					ThresholdMinutes: threshold,
					Via:              ViaCLI,
				})
				if printErr := printJSON(cmd.OutOrStdout(), result); printErr != nil {
					return printErr
				}
				return err
			})
		},
	}
	cmd.Flags().Int64Slice("store-id", nil, "Restrict to these stores")
	cmd.Flags().Int("threshold-minutes", 0, "Inactivity threshold (default: configured threshold)")
	return cmd
}

func newCleanupHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup-history",
		Short: "Delete expired history of SYNCED and ERROR orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			storeIDs, _ := cmd.Flags().GetInt64Slice("store-id")
			rawStatus, _ := cmd.Flags().GetString("status")
			days, err := optionalInt(cmd, "threshold-days")
			if err != nil {
				return err
			}

			var status domain.Status
			if rawStatus != "" {
				status, err = domain.ParseKnownStatus(rawStatus)
				if err != nil {
					return err
				}
			} else if days != nil {
				return errors.New("--threshold-days requires --status")
			}

			return withContainer(cmd, func(ctx context.Context, c *container) error {
				var (
					result services.SweepResult
					err    error
				)
				if rawStatus == "" {
					result, err = c.service.CleanupAllHistory(ctx, storeIDs)
				} else {
					result, err = c.service.CleanupHistory(ctx, services.RetentionInput{
						SyncStatus:    status,
						StoreIDs:      storeIDs,
						ThresholdDays: days,
					})
				}
				if printErr := printJSON(cmd.OutOrStdout(), result); printErr != nil {
					return printErr
				}
				return err
			})
		},
	}
	cmd.Flags().String("status", "", "Only this status (SYNCED or ERROR); default is both")
	cmd.Flags().Int64Slice("store-id", nil, "Restrict to these stores")
	cmd.Flags().Int("threshold-days", 0, "Retention in days (default: configured retention)")
	return cmd
}

func newMigrateLegacyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate-legacy",
		Short: "Reconcile legacy per-item send flags into sync records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			storeID, _ := cmd.Flags().GetInt64("store-id")
			if storeID < 0 {
				return fmt.Errorf("--store-id must not be negative")
			}

			return withContainer(cmd, func(ctx context.Context, c *container) error {
				reports, err := c.service.MigrateLegacy(ctx, storeID)
				if printErr := printJSON(cmd.OutOrStdout(), reports); printErr != nil {
					return printErr
				}
				return err
			})
		},
	}
	cmd.Flags().Int64("store-id", 0, "Only this store (default: every store)")
	return cmd
}

func newQueueOrderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queue-order <order-id>",
		Short: "Queue one order for sync",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseOrderID(args[0])
			if err != nil {
				return err
			}

			return withContainer(cmd, func(ctx context.Context, c *container) error {
				result, err := c.service.QueueOrder(ctx, orderID, ViaCLI, nil)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
				if !result.Success {
					return fmt.Errorf("order %d was not queued", orderID)
				}
				return nil
			})
		},
	}
}

func newGetOrderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-order <order-id>",
		Short: "Show the sync record and latest history of an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseOrderID(args[0])
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("history-limit")

			return withContainer(cmd, func(ctx context.Context, c *container) error {
				view, err := c.service.GetSyncOrder(ctx, orderID, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), view)
			})
		},
	}
	cmd.Flags().Int("history-limit", 10, "Number of history rows to show")
	return cmd
}
