// Package cli is the ordersync command line: the long-running serve command
// and one-shot commands for every sync operation.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dejobratic/ordersync/internal/config"
	"github.com/dejobratic/ordersync/internal/telemetry"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ordersync",
		Short:         "Order analytics sync",
		Long:          `ordersync tracks the analytics sync state of every order and drives queued orders to the analytics endpoint.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().Bool("debug", false, "Enable debug logging")

	root.AddCommand(
		newServeCmd(),
		newRunQueueCmd(),
		newRequeueStuckCmd(),
		newCleanupHistoryCmd(),
		newMigrateLegacyCmd(),
		newQueueOrderCmd(),
		newGetOrderCmd(),
		newConfigCmd(),
		newDBCmd(),
	)
	return root
}

// setup loads configuration and installs the process logger.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Telemetry.SlogLevel()
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}
	logger := telemetry.NewLoggerTo(cmd.ErrOrStderr(), level)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// withContainer runs fn with a fully wired container and tears it down after.
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *container) error) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := newContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close(context.WithoutCancel(ctx))

	return fn(ctx, c)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func parseOrderID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid order id %q: must be a positive integer", raw)
	}
	return id, nil
}

// optionalInt returns nil when the flag was not set on the command line.
func optionalInt(cmd *cobra.Command, name string) (*int, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return nil, fmt.Errorf("read --%s: %w", name, err)
	}
	return &v, nil
}
