package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mentiongraph/internal/analytics"
	"mentiongraph/internal/api"
	"mentiongraph/internal/cmdlog"
	"mentiongraph/internal/config"
	"mentiongraph/internal/ingest"
	"mentiongraph/internal/jobs"
	"mentiongraph/internal/logging"
	"mentiongraph/internal/metrics"
	"mentiongraph/internal/model"
	"mentiongraph/internal/socialnet"
	"mentiongraph/internal/store/sqlite"
	"mentiongraph/internal/theme"
	"mentiongraph/internal/xclient"
)

func openStore(cfg config.Config) (*sqlite.DB, error) {
	db, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Storage.DBPath, err)
	}
	return db, nil
}

func newInitCmd(opts *options) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		// skip config loading; the file may not exist yet
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("init", func() error {
				if err := config.Save(path, config.Default()); err != nil {
					return err
				}
				abs, _ := filepath.Abs(path)
				theme.PrintBanner()
				fmt.Fprintln(cmd.OutOrStdout(), "Config written to:", abs)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&path, "path", "./mentiongraph.yaml", "path to write config")
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load messages from a JSONL file into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("import", func() error {
				var r io.Reader = cmd.InOrStdin()
				if file != "" && file != "-" {
					f, err := os.Open(file)
					if err != nil {
						return err
					}
					defer f.Close()
					r = f
				}
				msgs, err := ingest.ReadJSONL(r)
				if err != nil {
					return err
				}
				db, err := openStore(opts.cfg)
				if err != nil {
					return err
				}
				defer db.Close()
				n, err := db.PutMessages(cmd.Context(), msgs)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d new messages (%d read)\n", n, len(msgs))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSONL file, - for stdin")
	return cmd
}

func newIngestCmd(opts *options) *cobra.Command {
	var loop bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch recent messages from the X API into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("ingest", func() error {
				cfg := opts.cfg
				if cfg.Credentials.BearerToken == "" {
					logging.Warn("missing_bearer_token", map[string]any{"hint": "set X_BEARER_TOKEN"})
				}
				db, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer db.Close()
				client := xclient.NewHTTPClient(cfg.Credentials.BearerToken)
				if !loop {
					n, err := jobs.RunIngestionOnce(cmd.Context(), db, client, cfg.Ingest)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Stored %d new messages\n", n)
					return nil
				}
				interval, err := time.ParseDuration(cfg.Ingest.Interval)
				if err != nil {
					return fmt.Errorf("ingest interval: %w", err)
				}
				metrics.StartServer(cfg.Server.MetricsAddr)
				err = jobs.RunIngestionLoop(cmd.Context(), db, client, cfg.Ingest, interval)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&loop, "loop", false, "keep ingesting on the configured interval")
	return cmd
}

func loadGraph(cmd *cobra.Command, cfg config.Config) (socialnet.FollowsGraph, *sqlite.DB, error) {
	db, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := db.AllMessages(cmd.Context())
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	g, err := socialnet.GuessFollowsGraph(msgs)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	metrics.ObserveGraph(len(msgs), g.Edges())
	return g, db, nil
}

func newGraphCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the follows graph inferred from stored messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("graph", func() error {
				g, db, err := loadGraph(cmd, opts.cfg)
				if err != nil {
					return err
				}
				defer db.Close()
				out := cmd.OutOrStdout()
				if asJSON {
					return json.NewEncoder(out).Encode(g)
				}
				for _, u := range g.Users() {
					fmt.Fprintf(out, "@%s -> %s\n", u, formatUsers(g[u].Sorted()))
				}
				fmt.Fprintf(out, "%d users, %d edges\n", len(g), g.Edges())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func formatUsers(us []string) string {
	if len(us) == 0 {
		return "(none)"
	}
	return "@" + strings.Join(us, " @")
}

func newInfluencersCmd(opts *options) *cobra.Command {
	var top int
	var snapshot bool
	cmd := &cobra.Command{
		Use:   "influencers",
		Short: "Rank users by how many distinct users mention them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("influencers", func() error {
				g, db, err := loadGraph(cmd, opts.cfg)
				if err != nil {
					return err
				}
				defer db.Close()
				ranked, err := socialnet.RankInfluence(g)
				if err != nil {
					return err
				}
				metrics.Rankings.Inc()
				if snapshot {
					snap, err := db.SaveSnapshot(cmd.Context(), time.Now(), ranked)
					if err != nil {
						return err
					}
					logging.Info("snapshot_saved", map[string]any{"run_id": snap.RunID.String(), "entries": len(ranked)})
				}
				if !cmd.Flags().Changed("top") {
					top = opts.cfg.Ranking.Top
				}
				printRanking(cmd.OutOrStdout(), ranked, top)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 0, "show only the top N (0 for all)")
	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "persist the ranking in the store")
	return cmd
}

func printRanking(w io.Writer, ranked []model.Influencer, top int) {
	for i, r := range ranked {
		if top > 0 && i >= top {
			break
		}
		fmt.Fprintf(w, "%3d. @%s followers=%d\n", i+1, r.Username, r.Followers)
	}
}

func newActivityCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "activity",
		Short: "Show hourly message and mention volume",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("activity", func() error {
				db, err := openStore(opts.cfg)
				if err != nil {
					return err
				}
				defer db.Close()
				msgs, err := db.AllMessages(cmd.Context())
				if err != nil {
					return err
				}
				b := analytics.HourlyMentions(msgs)
				for _, k := range analytics.SortedBucketKeys(b) {
					v := b[k]
					fmt.Fprintf(cmd.OutOrStdout(), "%s messages=%d mentions=%d authors=%d\n", k.Format("2006-01-02 15:00"), v.Messages, v.Mentions, v.Authors)
				}
				return nil
			})
		},
	}
}

func newServeCmd(opts *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the graph, rankings and metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("serve", func() error {
				if addr == "" {
					addr = opts.cfg.Server.Addr
				}
				db, err := openStore(opts.cfg)
				if err != nil {
					return err
				}
				defer db.Close()
				srv := &http.Server{Addr: addr, Handler: api.NewRouter(db), ReadHeaderTimeout: 5 * time.Second}
				errCh := make(chan error, 1)
				go func() { errCh <- srv.ListenAndServe() }()
				logging.Info("serve_start", map[string]any{"addr": addr})
				select {
				case err := <-errCh:
					return err
				case <-cmd.Context().Done():
				}
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")
	return cmd
}
