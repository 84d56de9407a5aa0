package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mentiongraph/internal/config"
	"mentiongraph/internal/logging"
	"mentiongraph/internal/theme"
)

type options struct {
	configPath string
	cfg        config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "mentiongraph",
		Short:         "Infer a follows graph from @-mentions and rank influencers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts.cfg = cfg
			logging.Setup(os.Stderr, cfg.Log.Level)
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			theme.PrintBanner()
			_ = cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "./mentiongraph.yaml", "config path")

	root.AddCommand(
		newInitCmd(opts),
		newImportCmd(opts),
		newIngestCmd(opts),
		newGraphCmd(opts),
		newInfluencersCmd(opts),
		newActivityCmd(opts),
		newServeCmd(opts),
	)
	return root
}
