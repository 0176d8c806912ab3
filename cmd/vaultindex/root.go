package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vaultindex/internal/config"
	"vaultindex/internal/contextutil"
)

type rootOptions struct {
	configPath string
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "vaultindex",
		Short:         "Index markdown vaults for lexical and similarity search",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $VAULTINDEX_CONFIG or ./vaultindex.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print results as JSON")

	cmd.AddCommand(
		newScanCmd(opts),
		newIndexCmd(opts),
		newRemoveCmd(opts),
		newSearchCmd(opts),
		newSimilarCmd(opts),
		newRelatedCmd(opts),
		newFilesCmd(opts),
		newStatsCmd(opts),
		newPageCmd(opts),
		newAttachmentCmd(opts),
		newPagesCmd(opts),
		newCleanupCmd(opts),
		newOptimizeCmd(opts),
		newServeCmd(opts),
		newMCPCmd(opts),
	)
	return cmd
}

// loadConfig loads configuration, honouring --config over the environment.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		if err := os.Setenv("VAULTINDEX_CONFIG", o.configPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// run loads configuration, opens the engine and calls fn with a context that is
// cancelled on SIGINT or SIGTERM.
func (o *rootOptions) run(cmd *cobra.Command, withVectors bool, fn func(ctx context.Context, a *app) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := openApp(ctx, cfg, withVectors)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx = contextutil.WithAttrs(contextutil.WithLogger(ctx, a.logger), "command", cmd.Name())
	return fn(ctx, a)
}

// print writes v as indented JSON when --json is set, otherwise calls text.
func (o *rootOptions) print(w io.Writer, v any, text func(w io.Writer)) error {
	if o.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
